package mocks

import (
	"image"
	"sync"

	"github.com/user/framepace/pkg/ports"
)

// DeliveredFrame is one call to Display.DeliverFrame.
type DeliveredFrame struct {
	Image *image.RGBA
	PTS   int64
}

// Display is a mock implementation of ports.Display that records deliveries.
type Display struct {
	mu      sync.RWMutex
	frames  []DeliveredFrame
	visible bool

	DeliverFrameFunc func(img *image.RGBA, ptsMs int64)
}

// NewDisplay creates a visible mock Display.
func NewDisplay() *Display {
	return &Display{visible: true}
}

func (m *Display) DeliverFrame(img *image.RGBA, ptsMs int64) {
	m.mu.Lock()
	m.frames = append(m.frames, DeliveredFrame{Image: img, PTS: ptsMs})
	fn := m.DeliverFrameFunc
	m.mu.Unlock()

	if fn != nil {
		fn(img, ptsMs)
	}
}

func (m *Display) IsVisible() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.visible
}

// SetVisible changes the value reported by IsVisible.
func (m *Display) SetVisible(visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = visible
}

// Frames returns every delivered frame (for test verification).
func (m *Display) Frames() []DeliveredFrame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]DeliveredFrame, len(m.frames))
	copy(result, m.frames)
	return result
}

// PTS returns the presentation times of delivered frames in order.
func (m *Display) PTS() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]int64, len(m.frames))
	for i, f := range m.frames {
		result[i] = f.PTS
	}
	return result
}

var _ ports.Display = (*Display)(nil)
