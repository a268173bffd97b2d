// Package mjpegdecoder decodes Motion-JPEG samples, where every packet is a
// complete JPEG image.
package mjpegdecoder

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"

	"github.com/user/framepace/pkg/ports"
)

// ErrEmptyPacket is returned for packets without data.
var ErrEmptyPacket = errors.New("mjpegdecoder: empty packet")

// Decoder implements ports.FrameDecoder. Every packet yields exactly one
// frame, so it holds no state between calls.
type Decoder struct{}

// New creates a new Motion-JPEG decoder.
func New() *Decoder {
	return &Decoder{}
}

// Decode decodes one JPEG sample.
func (d *Decoder) Decode(pkt ports.Packet) ([]ports.RawFrame, error) {
	if pkt.Flush {
		return nil, nil
	}
	if len(pkt.Data) == 0 {
		return nil, ErrEmptyPacket
	}

	img, err := jpeg.Decode(bytes.NewReader(pkt.Data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg sample %d: %w", pkt.Index, err)
	}

	return []ports.RawFrame{{
		Image: img,
		PTS:   pkt.PTS,
		DTS:   pkt.DTS,
		Range: ports.RangeFull,
	}}, nil
}

// Flush returns nothing; no frames are ever held back.
func (d *Decoder) Flush() ([]ports.RawFrame, error) {
	return nil, nil
}

// Reset does nothing.
func (d *Decoder) Reset() error {
	return nil
}

// Close does nothing.
func (d *Decoder) Close() error {
	return nil
}

var _ ports.FrameDecoder = (*Decoder)(nil)
