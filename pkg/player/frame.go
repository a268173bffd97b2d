package player

import (
	"image"
	"math"

	"github.com/user/framepace/pkg/ports"
)

// DecodedFrame is a display-ready frame travelling from the worker to the
// clock through the frame queue.
type DecodedFrame struct {
	Image       *image.RGBA
	PTS         int64 // milliseconds
	DTS         int64 // milliseconds
	EndOfStream bool
}

// EndOfStreamFrame returns the sentinel pushed after the last frame.
func EndOfStreamFrame() DecodedFrame {
	return DecodedFrame{
		PTS:         math.MaxInt64,
		DTS:         math.MaxInt64,
		EndOfStream: true,
	}
}

// ParseState is the outcome of the latest Parse.
type ParseState int

const (
	NotParsed ParseState = iota
	ParseSuccess
	ParseFailed
)

func (s ParseState) String() string {
	switch s {
	case NotParsed:
		return "not parsed"
	case ParseSuccess:
		return "parse success"
	case ParseFailed:
		return "parse failed"
	default:
		return "unknown"
	}
}

// ParseResult is reported to the caller after every Parse.
type ParseResult struct {
	State  ParseState
	URL    string
	Stream ports.StreamInfo
	// SessionID identifies the opened session in logs. Empty on failure.
	SessionID string
	// Err is the *ports.OpenError when State is ParseFailed.
	Err error
}
