// Package h264decoder decodes H.264 Annex B streams with a long-lived
// ffmpeg process.
//
// Packets are written to ffmpeg's stdin as they arrive and raw yuv420p
// pictures are read back from its stdout. Output order is presentation
// order, so each picture takes the smallest pending packet timestamp.
package h264decoder

import (
	"container/heap"
	"errors"
	"fmt"
	"image"

	"github.com/user/framepace/pkg/ports"
)

var (
	// ErrNotInitialized is returned when decoder methods are called before initialization.
	ErrNotInitialized = errors.New("h264decoder: decoder not initialized")

	// ErrDecodeFailed is returned when ffmpeg rejects the stream.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrFFmpegNotFound is returned when ffmpeg is not found in PATH.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found in PATH")

	// ErrPlatformNotSupported is returned when the platform cannot run ffmpeg.
	ErrPlatformNotSupported = errors.New("h264decoder: platform not supported")

	// ErrInvalidSize is returned for a zero or negative picture size.
	ErrInvalidSize = errors.New("h264decoder: invalid picture size")
)

var customFFmpegPath string

// SetFFmpegPath sets a custom ffmpeg binary used instead of PATH lookup.
func SetFFmpegPath(path string) {
	customFFmpegPath = path
}

// IsAvailable reports whether an ffmpeg binary can be found.
func IsAvailable() bool {
	return checkPlatformAvailability()
}

// Config describes the stream to decode.
type Config struct {
	Width  int
	Height int
}

// Decoder implements ports.FrameDecoder for H.264.
type Decoder struct {
	cfg     Config
	proc    platformProcess
	pending ptsHeap
	lastPTS int64
}

// platformProcess is implemented by platform-specific code.
type platformProcess interface {
	write(data []byte) error
	take() []*image.YCbCr
	finish() ([]*image.YCbCr, error)
	kill()
}

// New creates a decoder for pictures of the configured size.
func New(cfg Config) *Decoder {
	return &Decoder{cfg: cfg}
}

// Init starts the decoding process.
func (d *Decoder) Init() error {
	if d.cfg.Width <= 0 || d.cfg.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, d.cfg.Width, d.cfg.Height)
	}
	proc, err := startPlatformProcess(d.cfg.Width, d.cfg.Height)
	if err != nil {
		return err
	}
	d.proc = proc
	return nil
}

// Decode writes one Annex B packet and returns the pictures ffmpeg has
// produced so far. A flush packet drains the stream.
func (d *Decoder) Decode(pkt ports.Packet) ([]ports.RawFrame, error) {
	if pkt.Flush {
		return d.Flush()
	}
	if d.proc == nil {
		return nil, ErrNotInitialized
	}
	if len(pkt.Data) == 0 {
		return nil, nil
	}

	heap.Push(&d.pending, pkt.PTS)
	if err := d.proc.write(pkt.Data); err != nil {
		return nil, err
	}
	return d.wrap(d.proc.take()), nil
}

// Flush closes the input and returns every remaining picture. The decoder
// must be Reset before further use.
func (d *Decoder) Flush() ([]ports.RawFrame, error) {
	if d.proc == nil {
		return nil, ErrNotInitialized
	}
	imgs, err := d.proc.finish()
	d.proc = nil
	return d.wrap(imgs), err
}

// Reset discards queued input and starts a fresh process.
func (d *Decoder) Reset() error {
	d.Close()
	d.pending = d.pending[:0]
	return d.Init()
}

// Close stops the process. It is idempotent.
func (d *Decoder) Close() error {
	if d.proc != nil {
		d.proc.kill()
		d.proc = nil
	}
	return nil
}

func (d *Decoder) wrap(imgs []*image.YCbCr) []ports.RawFrame {
	if len(imgs) == 0 {
		return nil
	}
	frames := make([]ports.RawFrame, 0, len(imgs))
	for _, img := range imgs {
		pts := d.lastPTS + 1
		if d.pending.Len() > 0 {
			pts = heap.Pop(&d.pending).(int64)
		}
		d.lastPTS = pts
		frames = append(frames, ports.RawFrame{
			Image: img,
			PTS:   pts,
			DTS:   pts,
			Range: ports.RangeLimited,
		})
	}
	return frames
}

// ptsHeap is a min-heap of packet timestamps awaiting a picture.
type ptsHeap []int64

func (h ptsHeap) Len() int           { return len(h) }
func (h ptsHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h ptsHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *ptsHeap) Push(x any)        { *h = append(*h, x.(int64)) }
func (h *ptsHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// pictureSize returns the byte size of one yuv420p picture and its
// chroma plane dimensions.
func pictureSize(width, height int) (size, cw, ch int) {
	cw = (width + 1) / 2
	ch = (height + 1) / 2
	return width*height + 2*cw*ch, cw, ch
}

// yuv420Image wraps one raw yuv420p picture without copying.
func yuv420Image(buf []byte, width, height int) *image.YCbCr {
	_, cw, ch := pictureSize(width, height)
	ySize := width * height
	cSize := cw * ch
	return &image.YCbCr{
		Y:              buf[:ySize],
		Cb:             buf[ySize : ySize+cSize],
		Cr:             buf[ySize+cSize : ySize+2*cSize],
		YStride:        width,
		CStride:        cw,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, width, height),
	}
}

var _ ports.FrameDecoder = (*Decoder)(nil)
