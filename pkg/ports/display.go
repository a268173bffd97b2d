package ports

import "image"

// Display is the surface that presents frames.
type Display interface {
	// DeliverFrame presents an image. ptsMs is its presentation time.
	DeliverFrame(img *image.RGBA, ptsMs int64)

	// IsVisible reports whether the surface is currently shown.
	IsVisible() bool
}
