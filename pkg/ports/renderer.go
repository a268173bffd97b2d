package ports

import (
	"image"
	"image/color"
)

// Renderer draws contact sheets and encodes frame dumps.
type Renderer interface {
	// CreateCanvas creates a canvas filled with bg.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// EncodeImage encodes img. Quality applies to JPEG only; zero picks the
	// encoder default.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage returns a new image scaled to width x height. It must be
	// safe for concurrent use.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas is a drawing surface. It is not safe for concurrent use.
type Canvas interface {
	// DrawImage draws img with its top-left corner at x, y.
	DrawImage(img image.Image, x, y int)

	// DrawRect draws a filled rectangle.
	DrawRect(x, y, w, h int, c color.Color)

	// DrawRectStroke draws a rectangle outline.
	DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64)

	// DrawText draws text vertically centred on y and aligned on x.
	DrawText(text string, x, y int, style TextStyle)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// TextStyle defines text rendering properties. An empty FontPath selects
// the renderer's built-in face.
type TextStyle struct {
	FontSize float64
	FontPath string
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat selects the encoder used by Renderer.EncodeImage.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
)
