package mocks

import (
	"image"
	"image/color"

	"github.com/user/framepace/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image

	Canvases []*Canvas // canvases created by the default CreateCanvas
	Encoded  int
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	c := &Canvas{width: width, height: height}
	m.Canvases = append(m.Canvases, c)
	return c
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	m.Encoded++
	return []byte{}, nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas is a mock implementation of ports.Canvas that records calls.
type Canvas struct {
	width  int
	height int
	img    *image.RGBA

	Placements []image.Rectangle // DrawImage targets
	Fills      []image.Rectangle // DrawRect targets
	Texts      []string
}

func (m *Canvas) DrawImage(img image.Image, x, y int) {
	b := img.Bounds()
	m.Placements = append(m.Placements, image.Rect(x, y, x+b.Dx(), y+b.Dy()))
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) {
	m.Fills = append(m.Fills, image.Rect(x, y, x+w, y+h))
}

func (m *Canvas) DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64) {}

func (m *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	m.Texts = append(m.Texts, text)
}

func (m *Canvas) ToImage() image.Image {
	if m.img != nil {
		return m.img
	}
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

var _ ports.Canvas = (*Canvas)(nil)
