// Package ggrenderer implements ports.Renderer with the gg 2D library. It
// backs contact sheets and PNG frame dumps.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/framepace/pkg/ports"
)

// Renderer implements ports.Renderer.
type Renderer struct {
	// Frame dumps favour encoding speed over file size.
	pngEncoder png.Encoder
}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{pngEncoder: png.Encoder{CompressionLevel: png.BestSpeed}}
}

// CreateCanvas creates a new drawing canvas filled with bg.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc}
}

// EncodeImage encodes img as JPEG or PNG. Quality only applies to JPEG.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := r.pngEncoder.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// ResizeImage scales img to width x height for thumbnails.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas implements ports.Canvas using gg.Context.
type Canvas struct {
	dc       *gg.Context
	fontPath string
	fontSize float64
}

// DrawImage draws an image with its top-left corner at x, y.
func (c *Canvas) DrawImage(img image.Image, x, y int) {
	c.dc.DrawImage(img, x, y)
}

// DrawRect draws a filled rectangle.
func (c *Canvas) DrawRect(x, y, w, h int, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Fill()
}

// DrawRectStroke draws a rectangle outline.
func (c *Canvas) DrawRectStroke(x, y, w, h int, col color.Color, strokeWidth float64) {
	c.dc.SetColor(col)
	c.dc.SetLineWidth(strokeWidth)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Stroke()
}

// DrawText draws text vertically centred on y, aligned on x.
func (c *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	c.useFont(style)
	c.dc.SetColor(style.Color)

	ax := 0.0
	switch style.Align {
	case ports.AlignCenter:
		ax = 0.5
	case ports.AlignRight:
		ax = 1.0
	}

	c.dc.DrawStringAnchored(text, float64(x), float64(y), ax, 0.5)
}

// ToImage returns the canvas as an image.Image.
func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

// useFont loads the style's font face once. Without a font path, or when it
// cannot be loaded, gg's built-in face is used.
func (c *Canvas) useFont(style ports.TextStyle) {
	if style.FontPath == "" || (style.FontPath == c.fontPath && style.FontSize == c.fontSize) {
		return
	}
	if err := c.dc.LoadFontFace(style.FontPath, style.FontSize); err != nil {
		return
	}
	c.fontPath, c.fontSize = style.FontPath, style.FontSize
}

var _ ports.Canvas = (*Canvas)(nil)
