// Package nulldisplay provides a display that discards frames.
package nulldisplay

import (
	"image"
	"sync"

	"github.com/user/framepace/pkg/ports"
)

// Display is a no-op implementation of ports.Display.
// It only counts deliveries.
type Display struct {
	mu      sync.Mutex
	visible bool
	count   int
	lastPTS int64
}

// New creates a visible Display.
func New() *Display {
	return &Display{visible: true, lastPTS: -1}
}

// DeliverFrame counts the frame and drops it.
func (d *Display) DeliverFrame(img *image.RGBA, ptsMs int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count++
	d.lastPTS = ptsMs
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

// LastPTS returns the timestamp of the last delivered frame, or -1.
func (d *Display) LastPTS() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPTS
}

var _ ports.Display = (*Display)(nil)
