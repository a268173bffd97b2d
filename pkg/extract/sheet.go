package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"

	"github.com/user/framepace/pkg/ports"
)

// ErrNoFrames is returned when a contact sheet is requested for no frames.
var ErrNoFrames = errors.New("extract: no frames")

// SheetOptions configures ContactSheet.
type SheetOptions struct {
	Columns       int
	ThumbWidth    int
	Padding       int
	CaptionHeight int
	FontSize      float64
	FontPath      string
	Background    color.Color
	TextColor     color.Color
	BorderColor   color.Color

	// CaptionBackground fills the strip under each thumbnail. Nil leaves
	// the sheet background.
	CaptionBackground color.Color

	// Workers bounds parallel thumbnail scaling. Zero uses every CPU.
	Workers int
}

// DefaultSheetOptions returns the default contact sheet layout.
func DefaultSheetOptions() SheetOptions {
	return SheetOptions{
		Columns:       4,
		ThumbWidth:    240,
		Padding:       8,
		CaptionHeight: 20,
		FontSize:      12,
		Background:    color.White,
		TextColor:     color.Black,
		BorderColor:   color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff},
	}
}

// SheetLayout is the geometry of a contact sheet.
type SheetLayout struct {
	Columns     int
	Rows        int
	ThumbWidth  int
	ThumbHeight int
	Width       int
	Height      int
}

// Cell returns the top-left corner of the thumbnail of frame i.
func (l SheetLayout) Cell(i, padding, captionHeight int) image.Point {
	col := i % l.Columns
	row := i / l.Columns
	return image.Point{
		X: padding + col*(l.ThumbWidth+padding),
		Y: padding + row*(l.ThumbHeight+captionHeight+padding),
	}
}

// Layout computes the sheet geometry for n frames of the given size.
func Layout(n, frameWidth, frameHeight int, opts SheetOptions) SheetLayout {
	cols := max(min(opts.Columns, n), 1)
	rows := (n + cols - 1) / cols

	thumbW := opts.ThumbWidth
	thumbH := 0
	if frameWidth > 0 {
		thumbH = max(frameHeight*thumbW/frameWidth, 1)
	}

	return SheetLayout{
		Columns:     cols,
		Rows:        rows,
		ThumbWidth:  thumbW,
		ThumbHeight: thumbH,
		Width:       cols*thumbW + (cols+1)*opts.Padding,
		Height:      rows*(thumbH+opts.CaptionHeight) + (rows+1)*opts.Padding,
	}
}

// ContactSheet draws frames in a grid with a timestamp under each one.
func ContactSheet(ctx context.Context, frames []ports.VideoFrame, renderer ports.Renderer, opts SheetOptions) (image.Image, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	opts = withDefaults(opts)

	b := frames[0].Image.Bounds()
	layout := Layout(len(frames), b.Dx(), b.Dy(), opts)

	thumbs, err := scaleThumbnails(ctx, frames, renderer, layout, opts.Workers)
	if err != nil {
		return nil, err
	}

	canvas := renderer.CreateCanvas(layout.Width, layout.Height, opts.Background)
	style := ports.TextStyle{
		FontSize: opts.FontSize,
		FontPath: opts.FontPath,
		Color:    opts.TextColor,
		Align:    ports.AlignCenter,
	}

	for i, thumb := range thumbs {
		at := layout.Cell(i, opts.Padding, opts.CaptionHeight)
		canvas.DrawImage(thumb, at.X, at.Y)
		canvas.DrawRectStroke(at.X, at.Y, layout.ThumbWidth, layout.ThumbHeight, opts.BorderColor, 1)
		if opts.CaptionBackground != nil {
			canvas.DrawRect(at.X, at.Y+layout.ThumbHeight, layout.ThumbWidth, opts.CaptionHeight, opts.CaptionBackground)
		}
		canvas.DrawText(
			FormatTimestamp(frames[i].TimestampMs),
			at.X+layout.ThumbWidth/2,
			at.Y+layout.ThumbHeight+opts.CaptionHeight/2,
			style,
		)
	}

	return canvas.ToImage(), nil
}

func withDefaults(opts SheetOptions) SheetOptions {
	def := DefaultSheetOptions()
	if opts.Columns <= 0 {
		opts.Columns = def.Columns
	}
	if opts.ThumbWidth <= 0 {
		opts.ThumbWidth = def.ThumbWidth
	}
	if opts.Padding < 0 {
		opts.Padding = def.Padding
	}
	if opts.CaptionHeight <= 0 {
		opts.CaptionHeight = def.CaptionHeight
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Background == nil {
		opts.Background = def.Background
	}
	if opts.TextColor == nil {
		opts.TextColor = def.TextColor
	}
	if opts.BorderColor == nil {
		opts.BorderColor = def.BorderColor
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return opts
}

// scaleThumbnails resizes frames with a pool of workers, keeping order.
func scaleThumbnails(ctx context.Context, frames []ports.VideoFrame, renderer ports.Renderer, layout SheetLayout, workers int) ([]image.Image, error) {
	thumbs := make([]image.Image, len(frames))
	jobs := make(chan int, len(frames))
	for i := range frames {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < min(workers, len(frames)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				// Each index is written by exactly one worker.
				thumbs[i] = renderer.ResizeImage(frames[i].Image, layout.ThumbWidth, layout.ThumbHeight)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scale thumbnails: %w", err)
	}
	return thumbs, nil
}
