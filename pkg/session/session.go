// Package session implements ports.Session on top of the container and codec
// adapters: one demuxer, one decoder for the selected stream and a pixel
// converter built lazily from the first decoded frame.
package session

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/user/framepace/pkg/adapters/logger"
	"github.com/user/framepace/pkg/adapters/pixconv"
	"github.com/user/framepace/pkg/ports"
)

// Session is one open media source. It is owned by the decode worker and is
// not safe for concurrent use.
type Session struct {
	demux   ports.Demuxer
	decoder ports.FrameDecoder
	info    ports.StreamInfo
	logger  ports.Logger

	scaleToTarget bool
	targetWidth   int
	targetHeight  int
	conv          *pixconv.Converter

	flushed bool
	closed  bool
}

// New assembles a session from an opened demuxer and decoder. The session
// takes ownership of both.
func New(demux ports.Demuxer, decoder ports.FrameDecoder, info ports.StreamInfo, scaleToTarget bool, log ports.Logger) *Session {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Session{
		demux:         demux,
		decoder:       decoder,
		info:          info,
		logger:        log,
		scaleToTarget: scaleToTarget,
	}
}

// Info describes the selected video stream.
func (s *Session) Info() ports.StreamInfo {
	return s.info
}

// ReadPacket returns the next container packet. At the first end of the
// container it returns a single flush packet for the selected stream, then
// io.EOF on every later call.
func (s *Session) ReadPacket() (ports.Packet, error) {
	if s.closed {
		return ports.Packet{}, io.EOF
	}
	pkt, err := s.demux.ReadPacket()
	if errors.Is(err, io.EOF) {
		if s.flushed {
			return ports.Packet{}, io.EOF
		}
		s.flushed = true
		return ports.Packet{StreamIndex: s.info.Index, Flush: true}, nil
	}
	if err != nil {
		return ports.Packet{}, fmt.Errorf("session: read packet: %w", err)
	}
	return pkt, nil
}

// Decode sends pkt to the decoder. Zero frames is not an error.
func (s *Session) Decode(pkt ports.Packet) ([]ports.RawFrame, error) {
	frames, err := s.decoder.Decode(pkt)
	if err != nil {
		return frames, &ports.DecodeError{Err: err}
	}
	return frames, nil
}

// ToDisplayFormat converts frame to premultiplied RGBA. Frames that already
// are origin-based RGBA pass through unchanged unless target scaling is on.
func (s *Session) ToDisplayFormat(frame ports.RawFrame) (*image.RGBA, error) {
	if frame.Image == nil {
		return nil, &ports.ScaleError{Err: pixconv.ErrEmptyFrame}
	}
	if rgba, ok := frame.Image.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && !s.scaling() {
		return rgba, nil
	}

	if s.conv == nil {
		b := frame.Image.Bounds()
		s.conv = pixconv.New(b.Dx(), b.Dy())
		if s.scaling() {
			s.conv.SetTarget(s.targetWidth, s.targetHeight)
		}
		s.logger.Debug("Pixel converter created for %dx%d", b.Dx(), b.Dy())
	}

	out, err := s.conv.Convert(frame.Image, frame.Range)
	if err != nil {
		return nil, &ports.ScaleError{Err: err}
	}
	return out, nil
}

// TimestampMs converts the frame's presentation time to milliseconds.
func (s *Session) TimestampMs(frame ports.RawFrame) int64 {
	return s.info.TimeBase.Millis(frame.PTS)
}

// ReconfigureTargetSize records the display size. Output is only scaled when
// the session was opened with target scaling enabled.
func (s *Session) ReconfigureTargetSize(width, height int) {
	s.targetWidth, s.targetHeight = width, height
	if s.scaleToTarget && s.conv != nil {
		s.conv.SetTarget(width, height)
	}
}

// Seek repositions on the last keyframe at or before tsMs and resets the
// decoder.
func (s *Session) Seek(tsMs int64) error {
	if s.closed {
		return fmt.Errorf("session: seek on closed session")
	}
	if tsMs < 0 {
		tsMs = 0
	}
	if err := s.demux.SeekKeyframe(s.info.Index, s.info.TimeBase.Units(tsMs)); err != nil {
		return fmt.Errorf("session: seek to %d ms: %w", tsMs, err)
	}
	if err := s.decoder.Reset(); err != nil {
		return fmt.Errorf("session: reset decoder: %w", err)
	}
	s.flushed = false
	return nil
}

// Close releases the decoder and the container. It is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.decoder.Close(), s.demux.Close())
}

func (s *Session) scaling() bool {
	return s.scaleToTarget && s.targetWidth > 0 && s.targetHeight > 0
}

var _ ports.Session = (*Session)(nil)
