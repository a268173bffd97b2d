package main

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/image/draw"

	"github.com/user/framepace/pkg/adapters/framedump"
	"github.com/user/framepace/pkg/adapters/ggrenderer"
	"github.com/user/framepace/pkg/adapters/osfilesystem"
	"github.com/user/framepace/pkg/extract"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/session"
)

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     l10n.T("Decode every frame and build a contact sheet"),
		ArgsUsage: "<media>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output image path, PNG or JPEG by extension (required)"),
				Required: true,
			},
			&cli.IntFlag{
				Name:  "columns",
				Usage: l10n.T("Number of columns (min: 1)"),
			},
			&cli.IntFlag{
				Name:  "max-frames",
				Usage: l10n.T("Stop after this many frames (0 = all)"),
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: l10n.T("Overwrite an existing output file"),
			},
			&cli.StringFlag{
				Name:  "frames-dir",
				Usage: l10n.T("Also save every frame as PNG in this directory"),
			},
		},
		Action: runExtract,
	}
}

func runExtract(c *cli.Context) error {
	url, err := mediaArg(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("columns") {
		cfg.Sheet.Columns = c.Int("columns")
	}
	if c.IsSet("max-frames") {
		cfg.MaxFrames = c.Int("max-frames")
	}

	fs := osfilesystem.New()
	output := c.String("output")
	if exists, err := fs.Exists(output); err != nil {
		return err
	} else if exists && !c.Bool("force") {
		return errors.New(l10n.F("%s already exists (use --force to overwrite)", output))
	}

	log := newLogger(c, cfg)
	ctx, cancel := signalContext(log)
	defer cancel()

	opener := session.NewOpener(cfg.ToOpenerOptions(log))
	frames, err := extract.Frames(ctx, opener, url, extract.Options{
		MaxFrames: cfg.MaxFrames,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	renderer := ggrenderer.New()

	if dir := c.String("frames-dir"); dir != "" {
		if err := fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("create frames directory: %w", err)
		}
		dump := framedump.New(dir, fs, renderer, log)
		for _, f := range frames {
			dump.DeliverFrame(toRGBA(f.Image), f.TimestampMs)
		}
		if err := dump.Err(); err != nil {
			return fmt.Errorf("save frames: %w", err)
		}
		log.Info("Saved %d frames to %s", dump.Count(), dir)
	}

	sheet, err := extract.ContactSheet(ctx, frames, renderer, cfg.ToSheetOptions())
	if err != nil {
		return err
	}
	data, err := renderer.EncodeImage(sheet, sheetFormat(output), 0)
	if err != nil {
		return err
	}
	if err := fs.WriteFile(output, data); err != nil {
		return fmt.Errorf("write contact sheet: %w", err)
	}

	log.Info("Contact sheet saved to %s", output)
	return nil
}

// sheetFormat picks JPEG for .jpg and .jpeg outputs and PNG otherwise.
func sheetFormat(path string) ports.ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return ports.FormatJPEG
	default:
		return ports.FormatPNG
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
