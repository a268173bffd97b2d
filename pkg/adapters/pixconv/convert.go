// Package pixconv converts decoded pictures to premultiplied RGBA.
package pixconv

import (
	"errors"
	"fmt"
	"image"

	"github.com/user/framepace/pkg/ports"
	"golang.org/x/image/draw"
)

var (
	// ErrSizeMismatch is returned when a frame's size differs from the size
	// the converter was built for.
	ErrSizeMismatch = errors.New("pixconv: frame size differs from converter size")

	// ErrEmptyFrame is returned for frames without pixels.
	ErrEmptyFrame = errors.New("pixconv: empty frame")
)

// Converter converts frames of one fixed source size. It is built once per
// session from the first decoded frame and reused for every later frame.
type Converter struct {
	width  int
	height int

	targetWidth  int
	targetHeight int
}

// New creates a converter for width x height frames.
func New(width, height int) *Converter {
	return &Converter{width: width, height: height}
}

// SourceSize returns the frame size the converter accepts.
func (c *Converter) SourceSize() (width, height int) {
	return c.width, c.height
}

// SetTarget makes Convert scale its output to width x height.
// A zero size disables scaling.
func (c *Converter) SetTarget(width, height int) {
	if width <= 0 || height <= 0 {
		c.targetWidth, c.targetHeight = 0, 0
		return
	}
	c.targetWidth, c.targetHeight = width, height
}

// OutputSize returns the size of images produced by Convert.
func (c *Converter) OutputSize() (width, height int) {
	if c.targetWidth > 0 {
		return c.targetWidth, c.targetHeight
	}
	return c.width, c.height
}

// Convert returns a newly allocated RGBA copy of img.
func (c *Converter) Convert(img image.Image, rng ports.ColorRange) (*image.RGBA, error) {
	if img == nil {
		return nil, ErrEmptyFrame
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyFrame
	}
	if b.Dx() != c.width || b.Dy() != c.height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrSizeMismatch, b.Dx(), b.Dy(), c.width, c.height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, c.width, c.height))

	switch src := img.(type) {
	case *image.YCbCr:
		if rng == ports.RangeLimited {
			limitedYCbCrToRGBA(dst, src)
		} else {
			draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		}
	default:
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}

	if c.targetWidth == 0 || (c.targetWidth == c.width && c.targetHeight == c.height) {
		return dst, nil
	}

	scaled := image.NewRGBA(image.Rect(0, 0, c.targetWidth, c.targetHeight))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), dst, dst.Bounds(), draw.Src, nil)
	return scaled, nil
}

// limitedYCbCrToRGBA converts BT.601 limited-range samples.
func limitedYCbCrToRGBA(dst *image.RGBA, src *image.YCbCr) {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()

	for y := 0; y < height; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < width; x++ {
			sx, sy := b.Min.X+x, b.Min.Y+y
			yVal := int(src.Y[src.YOffset(sx, sy)])
			ci := src.COffset(sx, sy)
			uVal := int(src.Cb[ci])
			vVal := int(src.Cr[ci])

			c := yVal - 16
			d := uVal - 128
			e := vVal - 128

			idx := x * 4
			row[idx] = uint8(clamp((298*c + 409*e + 128) >> 8))
			row[idx+1] = uint8(clamp((298*c - 100*d - 208*e + 128) >> 8))
			row[idx+2] = uint8(clamp((298*c + 516*d + 128) >> 8))
			row[idx+3] = 255
		}
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
