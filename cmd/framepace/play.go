package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framepace/pkg/adapters/framedump"
	"github.com/user/framepace/pkg/adapters/ggrenderer"
	"github.com/user/framepace/pkg/adapters/nulldisplay"
	"github.com/user/framepace/pkg/adapters/osfilesystem"
	"github.com/user/framepace/pkg/config"
	"github.com/user/framepace/pkg/player"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/scheduler"
	"github.com/user/framepace/pkg/session"
)

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Play a media file at its own pace"),
		ArgsUsage: "<media>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   l10n.T("Directory to save presented frames as PNG (frames are discarded otherwise)"),
			},
			&cli.IntFlag{
				Name:  "capacity",
				Usage: l10n.T("Number of decoded frames buffered ahead of presentation"),
			},
			&cli.BoolFlag{
				Name:  "repeat",
				Usage: l10n.T("Restart from the beginning after the last frame"),
			},
			&cli.IntFlag{
				Name:  "loops",
				Usage: l10n.T("Exit after this many completed loops (0 = until interrupted with --repeat)"),
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: l10n.T("Target display width"),
			},
			&cli.IntFlag{
				Name:  "height",
				Usage: l10n.T("Target display height"),
			},
			&cli.BoolFlag{
				Name:  "scale",
				Usage: l10n.T("Scale frames to the target display size"),
			},
		},
		Action: runPlay,
	}
}

// applyPlayFlags overrides file configuration with play flags.
func applyPlayFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("out") {
		cfg.OutputDir = c.String("out")
	}
	if c.IsSet("capacity") {
		cfg.FrameBufferCapacity = c.Int("capacity")
	}
	if c.IsSet("width") {
		cfg.TargetWidth = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.TargetHeight = c.Int("height")
	}
	if c.IsSet("scale") {
		cfg.ScaleToTarget = c.Bool("scale")
	}

	// Without --repeat or --loops the configured value decides, and the
	// config default repeats forever. A one-shot CLI run plays once.
	switch {
	case c.Int("loops") > 1:
		cfg.AutoRepeat = true
	case c.IsSet("repeat"):
		cfg.AutoRepeat = c.Bool("repeat")
	case c.String("config") == "":
		cfg.AutoRepeat = false
	}
}

// countingDisplay is a ports.Display that reports how many frames it saw.
type countingDisplay interface {
	ports.Display
	Count() int
}

func runPlay(c *cli.Context) error {
	url, err := mediaArg(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyPlayFlags(c, &cfg)

	log := newLogger(c, cfg)
	ctx, cancel := signalContext(log)
	defer cancel()

	var display countingDisplay
	var dump *framedump.Display
	if cfg.OutputDir != "" {
		fs := osfilesystem.New()
		if err := fs.MkdirAll(cfg.OutputDir); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		dump = framedump.New(cfg.OutputDir, fs, ggrenderer.New(), log)
		display = dump
	} else {
		display = nulldisplay.New()
	}

	loop := scheduler.New()
	opener := session.NewOpener(cfg.ToOpenerOptions(log))
	p := player.New(opener, display, loop, cfg.ToPlayerOptions(log))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var playErr error
	loops := c.Int("loops")
	completed := 0

	p.OnParsed(func(r player.ParseResult) {
		if r.State != player.ParseSuccess {
			playErr = r.Err
			stop()
			return
		}
		log.Debug("Session %s: %s", r.SessionID, r.URL)
		if cfg.TargetWidth > 0 && cfg.TargetHeight > 0 {
			p.Resize(cfg.TargetWidth, cfg.TargetHeight)
		}
		p.Play()
	})
	p.OnFinished(func() {
		completed++
		if !p.AutoRepeat() || (loops > 0 && completed >= loops) {
			p.Stop()
			stop()
		}
	})
	p.OnError(func(err error) {
		playErr = err
		stop()
	})

	log.Info("Playing %s", url)
	loop.Post(func() { p.SetSource(url) })

	err = loop.Run(runCtx)
	p.Close()

	if playErr != nil {
		return playErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("Presented %d frames", display.Count())
	if dump != nil {
		if err := dump.Err(); err != nil {
			return fmt.Errorf("save frames: %w", err)
		}
		log.Info("Saved %d frames to %s", dump.Count(), cfg.OutputDir)
	}
	return nil
}
