package ports

import "image"

// Session is one open media source: container, chosen stream, decoder and
// pixel converter. A Session is owned by a single goroutine and is not safe
// for concurrent use.
type Session interface {
	// Info describes the selected video stream.
	Info() StreamInfo

	// ReadPacket returns the next packet from the container, or io.EOF.
	ReadPacket() (Packet, error)

	// Decode sends a packet to the decoder and returns the frames it produced.
	Decode(pkt Packet) ([]RawFrame, error)

	// ToDisplayFormat converts a raw frame to premultiplied RGBA.
	// The returned image is owned by the caller.
	ToDisplayFormat(frame RawFrame) (*image.RGBA, error)

	// TimestampMs converts the frame's presentation time to milliseconds.
	TimestampMs(frame RawFrame) int64

	// ReconfigureTargetSize records the display size.
	ReconfigureTargetSize(width, height int)

	// Seek repositions the session on the last keyframe at or before tsMs.
	Seek(tsMs int64) error

	// Close releases every resource held by the session. It is idempotent.
	Close() error
}

// Opener creates sessions from media URLs.
type Opener interface {
	// Open resolves the URL, selects the best video stream and prepares a
	// decoder for it. Failures are reported as *OpenError.
	Open(url string) (Session, error)
}
