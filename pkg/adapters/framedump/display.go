// Package framedump provides a display that writes every delivered frame to
// a PNG file.
package framedump

import (
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/user/framepace/pkg/ports"
)

// FileName returns the file name used for the index-th frame presented at ptsMs.
func FileName(index int, ptsMs int64) string {
	return fmt.Sprintf("frame-%06d-%08dms.png", index, ptsMs)
}

// Display implements ports.Display by saving frames under a directory.
type Display struct {
	mu       sync.Mutex
	dir      string
	fs       ports.FileSystem
	renderer ports.Renderer
	logger   ports.Logger

	visible bool
	ready   bool
	count   int
	err     error
}

// New creates a display writing into dir.
func New(dir string, fs ports.FileSystem, renderer ports.Renderer, logger ports.Logger) *Display {
	return &Display{
		dir:      dir,
		fs:       fs,
		renderer: renderer,
		logger:   logger.WithComponent("framedump"),
		visible:  true,
	}
}

// DeliverFrame encodes img and writes it. Failures are logged and the first
// one is kept for Err.
func (d *Display) DeliverFrame(img *image.RGBA, ptsMs int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.save(img, ptsMs); err != nil {
		d.logger.Warn("Failed to save frame %d: %v", d.count, err)
		if d.err == nil {
			d.err = err
		}
	}
	d.count++
}

func (d *Display) save(img *image.RGBA, ptsMs int64) error {
	if !d.ready {
		if err := d.fs.MkdirAll(d.dir); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		d.ready = true
	}

	data, err := d.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	path := filepath.Join(d.dir, FileName(d.count, ptsMs))
	if err := d.fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	d.logger.Debug("Saved %s", path)
	return nil
}

// IsVisible reports the visibility set with SetVisible.
func (d *Display) IsVisible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

// SetVisible changes the value reported by IsVisible.
func (d *Display) SetVisible(visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible = visible
}

// Count returns the number of delivered frames.
func (d *Display) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Err returns the first save error, if any.
func (d *Display) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

var _ ports.Display = (*Display)(nil)
