// Package main provides the CLI entry point for framepace.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framepace/pkg/adapters/logger"
	"github.com/user/framepace/pkg/config"
	"github.com/user/framepace/pkg/ports"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "framepace",
		Usage: l10n.T("Decode and present video frames at their timestamps"),
		Description: l10n.T("framepace plays MP4 and GIF files through a bounded decode pipeline, " +
			"probes their streams and builds contact sheets."),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   l10n.T("YAML configuration file"),
			},
			&cli.StringFlag{
				Name:    "ffmpeg",
				Usage:   l10n.T("Path to the ffmpeg executable used for H.264"),
				EnvVars: []string{"FRAMEPACE_FFMPEG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   l10n.T("Log level (debug, info, warn, error)"),
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"Q"},
				Usage:   l10n.T("Suppress all log output"),
			},
		},
		Commands: []*cli.Command{
			playCommand(),
			probeCommand(),
			extractCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("framepace version %s", version))
					return nil
				},
			},
		},
	}
}

// loadConfig reads the --config file, if any, and applies the global flag
// overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	if c.IsSet("ffmpeg") {
		cfg.FFmpegPath = c.String("ffmpeg")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg config.Config) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	return logger.NewConsole(cfg.Level())
}

// mediaArg returns the single media argument of a subcommand.
func mediaArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", errors.New(l10n.T("Media argument is required"))
	}
	return c.Args().First(), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
