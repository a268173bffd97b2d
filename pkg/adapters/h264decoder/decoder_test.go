package h264decoder

import (
	"bytes"
	"container/heap"
	"errors"
	"image"
	"os/exec"
	"strconv"
	"testing"

	"github.com/user/framepace/pkg/ports"
)

// encodeTestStream produces a raw H.264 stream with ffmpeg's test source.
func encodeTestStream(t *testing.T, width, height, frames int) []byte {
	t.Helper()
	if !IsAvailable() {
		t.Skip("ffmpeg not available")
	}
	path, err := findFFmpeg()
	if err != nil {
		t.Skipf("ffmpeg not available: %v", err)
	}

	var out, stderr bytes.Buffer
	cmd := exec.Command(path,
		"-hide_banner", "-loglevel", "error",
		"-f", "lavfi",
		"-i", "testsrc=size="+strconv.Itoa(width)+"x"+strconv.Itoa(height)+":rate=25",
		"-frames:v", strconv.Itoa(frames),
		"-c:v", "libx264",
		"-bf", "0",
		"-f", "h264",
		"pipe:1",
	)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot encode H.264 test stream: %v: %s", err, stderr.String())
	}
	return out.Bytes()
}

func TestDecoder_StreamAndFlush(t *testing.T) {
	const (
		width  = 64
		height = 48
		count  = 10
	)
	stream := encodeTestStream(t, width, height, count)

	d := New(Config{Width: width, Height: height})
	if err := d.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer d.Close()

	// Split the stream into count chunks; ffmpeg's parser reassembles
	// access units, so chunk boundaries need not match pictures.
	chunk := (len(stream) + count - 1) / count
	var frames []ports.RawFrame
	for i := 0; i < count; i++ {
		start := i * chunk
		end := min(start+chunk, len(stream))
		if start >= end {
			break
		}
		out, err := d.Decode(ports.Packet{Data: stream[start:end], PTS: int64(i * 40)})
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		frames = append(frames, out...)
	}

	out, err := d.Decode(ports.Packet{Flush: true})
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	frames = append(frames, out...)

	if len(frames) != count {
		t.Fatalf("expected %d frames, got %d", count, len(frames))
	}
	for i, f := range frames {
		if f.PTS != int64(i*40) {
			t.Errorf("frame %d: expected pts %d, got %d", i, i*40, f.PTS)
		}
		if b := f.Image.Bounds(); b.Dx() != width || b.Dy() != height {
			t.Errorf("frame %d: expected %dx%d, got %v", i, width, height, b)
		}
		if f.Range != ports.RangeLimited {
			t.Errorf("frame %d: expected limited range", i)
		}
	}
}

func TestDecoder_ResetAfterFlush(t *testing.T) {
	stream := encodeTestStream(t, 32, 32, 2)

	d := New(Config{Width: 32, Height: 32})
	if err := d.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer d.Close()

	if _, err := d.Decode(ports.Packet{Data: stream}); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, err := d.Decode(ports.Packet{Data: stream}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after flush, got %v", err)
	}

	if err := d.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := d.Decode(ports.Packet{Data: stream}); err != nil {
		t.Errorf("Decode after Reset failed: %v", err)
	}
}

func TestDecoder_InvalidSize(t *testing.T) {
	d := New(Config{})
	if err := d.Init(); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestDecoder_NotInitialized(t *testing.T) {
	d := New(Config{Width: 16, Height: 16})
	if _, err := d.Decode(ports.Packet{Data: []byte{0, 0, 0, 1}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close on idle decoder failed: %v", err)
	}
}

func TestDecoder_AssignsSmallestPendingPTS(t *testing.T) {
	d := New(Config{Width: 2, Height: 2})
	for _, pts := range []int64{0, 120, 40, 80} {
		heap.Push(&d.pending, pts)
	}

	frames := d.wrap(make([]*image.YCbCr, 4))
	want := []int64{0, 40, 80, 120}
	for i, f := range frames {
		if f.PTS != want[i] {
			t.Errorf("frame %d: expected pts %d, got %d", i, want[i], f.PTS)
		}
	}
}

func TestPictureSize(t *testing.T) {
	tests := []struct {
		w, h   int
		size   int
		cw, ch int
	}{
		{64, 48, 64*48 + 2*32*24, 32, 24},
		{5, 3, 15 + 2*3*2, 3, 2},
	}
	for _, tt := range tests {
		size, cw, ch := pictureSize(tt.w, tt.h)
		if size != tt.size || cw != tt.cw || ch != tt.ch {
			t.Errorf("pictureSize(%d, %d) = %d, %d, %d; want %d, %d, %d", tt.w, tt.h, size, cw, ch, tt.size, tt.cw, tt.ch)
		}
	}
}
