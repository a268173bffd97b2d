//go:build !aom

package av1decoder

import "github.com/user/framepace/pkg/ports"

// Decoder is a placeholder used when libaom is not linked.
type Decoder struct{}

// New creates a new AV1 decoder.
func New() *Decoder {
	return &Decoder{}
}

// Init always fails with ErrNotAvailable.
func (d *Decoder) Init() error {
	return ErrNotAvailable
}

func (d *Decoder) Decode(pkt ports.Packet) ([]ports.RawFrame, error) {
	return nil, ErrNotInitialized
}

func (d *Decoder) Flush() ([]ports.RawFrame, error) {
	return nil, ErrNotInitialized
}

func (d *Decoder) Reset() error {
	return ErrNotAvailable
}

func (d *Decoder) Close() error {
	return nil
}

var _ ports.FrameDecoder = (*Decoder)(nil)
