// Package gifcodec demuxes and decodes animated GIF files.
//
// A GIF is treated as a single video stream with a 1/100 s time base.
// Frames are composited onto a persistent canvas, so only the first frame
// can be decoded without its predecessors.
package gifcodec

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"io"
	"os"

	"github.com/user/framepace/pkg/ports"
	"golang.org/x/image/draw"
)

var (
	// ErrNoFrames is returned for a GIF without images.
	ErrNoFrames = errors.New("gifcodec: no frames")

	// ErrFrameOutOfRange is returned for a packet that names no frame.
	ErrFrameOutOfRange = errors.New("gifcodec: frame index out of range")
)

// minDelay replaces delays of 0 or 1 hundredths, which players treat as
// unspecified.
const minDelay = 10

// Demuxer implements ports.Demuxer for GIF files.
type Demuxer struct {
	anim *gif.GIF
	pts  []int64
	pos  int
	info ports.StreamInfo
}

// Open reads and parses a GIF file.
func Open(path string) (*Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return NewFromReader(f)
}

// NewFromReader parses a GIF stream.
func NewFromReader(r io.Reader) (*Demuxer, error) {
	anim, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(anim.Image) == 0 {
		return nil, ErrNoFrames
	}

	d := &Demuxer{anim: anim}
	var t int64
	for i := range anim.Image {
		d.pts = append(d.pts, t)
		delay := minDelay
		if i < len(anim.Delay) && anim.Delay[i] > 1 {
			delay = anim.Delay[i]
		}
		t += int64(delay)
	}

	width, height := anim.Config.Width, anim.Config.Height
	if width == 0 || height == 0 {
		b := anim.Image[0].Bounds()
		width, height = b.Max.X, b.Max.Y
	}

	d.info = ports.StreamInfo{
		Index:      0,
		MediaType:  ports.MediaVideo,
		Container:  "gif",
		Codec:      "gif",
		Width:      width,
		Height:     height,
		TimeBase:   ports.TimeBase{Num: 1, Den: 100},
		DurationMs: t * 10,
		FrameCount: len(anim.Image),
	}
	return d, nil
}

// LoopCount returns the loop count stored in the file (0 loops forever).
func (d *Demuxer) LoopCount() int {
	return d.anim.LoopCount
}

// Streams returns the single video stream.
func (d *Demuxer) Streams() []ports.StreamInfo {
	return []ports.StreamInfo{d.info}
}

// ReadPacket returns the next frame reference.
func (d *Demuxer) ReadPacket() (ports.Packet, error) {
	if d.pos >= len(d.pts) {
		return ports.Packet{}, io.EOF
	}
	i := d.pos
	d.pos++
	return ports.Packet{
		StreamIndex: 0,
		PTS:         d.pts[i],
		DTS:         d.pts[i],
		Keyframe:    i == 0,
		Index:       i,
	}, nil
}

// SeekKeyframe rewinds to the first frame, the only independent one.
func (d *Demuxer) SeekKeyframe(stream int, ts int64) error {
	d.pos = 0
	return nil
}

// CodecConfig returns nil; GIF has no out-of-band configuration.
func (d *Demuxer) CodecConfig(stream int) []byte {
	return nil
}

// Close does nothing; the file is fully read by Open.
func (d *Demuxer) Close() error {
	return nil
}

// NewDecoder creates a decoder for the frames of this GIF.
func (d *Demuxer) NewDecoder() *Decoder {
	dec := &Decoder{anim: d.anim}
	dec.canvas = image.NewNRGBA(image.Rect(0, 0, d.info.Width, d.info.Height))
	dec.Reset()
	return dec
}

// Decoder composites GIF frames. It implements ports.FrameDecoder.
type Decoder struct {
	anim   *gif.GIF
	canvas *image.NRGBA
	saved  *image.NRGBA
	last   int
}

// Decode renders the frame named by pkt.Index. Frames must arrive in order;
// index 0 restarts the animation.
func (dec *Decoder) Decode(pkt ports.Packet) ([]ports.RawFrame, error) {
	if pkt.Flush {
		return nil, nil
	}
	i := pkt.Index
	if i < 0 || i >= len(dec.anim.Image) {
		return nil, fmt.Errorf("%w: %d", ErrFrameOutOfRange, i)
	}
	if i == 0 {
		dec.Reset()
	}

	if dec.last >= 0 {
		dec.dispose(dec.last)
	}

	frame := dec.anim.Image[i]
	if dec.disposal(i) == gif.DisposalPrevious {
		dec.saved = cloneNRGBA(dec.canvas)
	}
	draw.Draw(dec.canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
	dec.last = i

	return []ports.RawFrame{{
		Image: cloneNRGBA(dec.canvas),
		PTS:   pkt.PTS,
		DTS:   pkt.DTS,
		Range: ports.RangeFull,
	}}, nil
}

func (dec *Decoder) disposal(i int) byte {
	if i < len(dec.anim.Disposal) {
		return dec.anim.Disposal[i]
	}
	return gif.DisposalNone
}

// dispose applies the disposal method of frame i before the next frame.
func (dec *Decoder) dispose(i int) {
	switch dec.disposal(i) {
	case gif.DisposalBackground:
		draw.Draw(dec.canvas, dec.anim.Image[i].Bounds(), image.Transparent, image.Point{}, draw.Src)
	case gif.DisposalPrevious:
		if dec.saved != nil {
			copy(dec.canvas.Pix, dec.saved.Pix)
			dec.saved = nil
		}
	}
}

// Flush returns nothing; every packet yields its frame immediately.
func (dec *Decoder) Flush() ([]ports.RawFrame, error) {
	return nil, nil
}

// Reset clears the canvas.
func (dec *Decoder) Reset() error {
	clear(dec.canvas.Pix)
	dec.saved = nil
	dec.last = -1
	return nil
}

// Close does nothing.
func (dec *Decoder) Close() error {
	return nil
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

var (
	_ ports.Demuxer      = (*Demuxer)(nil)
	_ ports.FrameDecoder = (*Decoder)(nil)
)
