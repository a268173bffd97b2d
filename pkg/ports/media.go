package ports

import (
	"image"
)

// VideoFrame represents a decoded video frame with timing information.
type VideoFrame struct {
	Image       image.Image
	TimestampMs int64
	Duration    int64 // Duration in milliseconds
}

// TimeBase expresses the duration of one timestamp unit as Num/Den seconds.
type TimeBase struct {
	Num int64
	Den int64
}

// Millis converts a timestamp in this time base to milliseconds.
func (tb TimeBase) Millis(ts int64) int64 {
	if tb.Den == 0 {
		return ts
	}
	return ts * tb.Num * 1000 / tb.Den
}

// Units converts milliseconds to a timestamp in this time base.
func (tb TimeBase) Units(ms int64) int64 {
	if tb.Num == 0 {
		return ms
	}
	return ms * tb.Den / (tb.Num * 1000)
}

// Media types reported in StreamInfo.MediaType.
const (
	MediaVideo = "video"
	MediaAudio = "audio"
	MediaOther = "other"
)

// StreamInfo describes one stream of a container.
type StreamInfo struct {
	Index      int
	MediaType  string
	Container  string
	Codec      string
	Width      int
	Height     int
	TimeBase   TimeBase
	DurationMs int64
	FrameCount int
}

// Packet is one compressed unit read from a container.
type Packet struct {
	StreamIndex int
	Data        []byte
	PTS         int64 // in stream time base units
	DTS         int64
	Keyframe    bool
	Index       int // sample number within its stream

	// Flush marks the synthetic packet emitted once at end of container
	// so the decoder can release frames it still holds.
	Flush bool
}

// ColorRange tells the pixel converter how to interpret YCbCr samples.
type ColorRange int

const (
	// RangeFull is JPEG/JFIF style 0-255 luma and chroma.
	RangeFull ColorRange = iota
	// RangeLimited is video style 16-235 luma and 16-240 chroma.
	RangeLimited
)

// RawFrame is a decoded picture in the decoder's native pixel layout.
type RawFrame struct {
	Image image.Image
	PTS   int64 // in stream time base units
	DTS   int64
	Range ColorRange
}

// Demuxer reads packets from a container.
type Demuxer interface {
	// Streams lists every stream in the container, video or not.
	Streams() []StreamInfo

	// ReadPacket returns the next packet in decode order across all streams.
	// It returns io.EOF when the container is exhausted.
	ReadPacket() (Packet, error)

	// SeekKeyframe positions the reader on the last keyframe of the given
	// stream whose presentation time is at or before ts (stream units).
	SeekKeyframe(stream int, ts int64) error

	// CodecConfig returns out-of-band decoder configuration for a stream,
	// such as H.264 parameter sets in Annex B form.
	CodecConfig(stream int) []byte

	// Close releases the underlying media handle.
	Close() error
}

// FrameDecoder turns packets of one stream into raw frames.
type FrameDecoder interface {
	// Decode sends one packet and returns every frame that became available.
	// Returning no frames is not an error.
	Decode(pkt Packet) ([]RawFrame, error)

	// Flush drains frames still held by the decoder.
	Flush() ([]RawFrame, error)

	// Reset discards decoder state after a seek.
	Reset() error

	// Close releases decoder resources.
	Close() error
}
