package ports

import (
	"errors"
	"fmt"
)

// OpenErrorKind classifies why a source could not be opened.
type OpenErrorKind int

const (
	// NoSuchFile means the URL could not be resolved or read.
	NoSuchFile OpenErrorKind = iota
	// NoVideoStream means the container holds no video stream.
	NoVideoStream
	// UnsupportedCodec means no decoder exists for the selected stream.
	UnsupportedCodec
	// DecoderInitFailed means a decoder exists but could not be started.
	DecoderInitFailed
)

// String returns the string representation of the kind.
func (k OpenErrorKind) String() string {
	switch k {
	case NoSuchFile:
		return "no such file"
	case NoVideoStream:
		return "no video stream"
	case UnsupportedCodec:
		return "unsupported codec"
	case DecoderInitFailed:
		return "decoder init failed"
	default:
		return "unknown"
	}
}

var (
	// ErrNoSuchFile matches OpenError values of kind NoSuchFile.
	ErrNoSuchFile = errors.New("ports: no such file")
	// ErrNoVideoStream matches OpenError values of kind NoVideoStream.
	ErrNoVideoStream = errors.New("ports: no video stream")
	// ErrUnsupportedCodec matches OpenError values of kind UnsupportedCodec.
	ErrUnsupportedCodec = errors.New("ports: unsupported codec")
	// ErrDecoderInitFailed matches OpenError values of kind DecoderInitFailed.
	ErrDecoderInitFailed = errors.New("ports: decoder init failed")
)

// OpenError is returned by Opener.Open.
type OpenError struct {
	Kind OpenErrorKind
	URL  string
	Err  error
}

func (e *OpenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("open %s: %s", e.URL, e.Kind)
	}
	return fmt.Sprintf("open %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an OpenError against the kind sentinels.
func (e *OpenError) Is(target error) bool {
	switch target {
	case ErrNoSuchFile:
		return e.Kind == NoSuchFile
	case ErrNoVideoStream:
		return e.Kind == NoVideoStream
	case ErrUnsupportedCodec:
		return e.Kind == UnsupportedCodec
	case ErrDecoderInitFailed:
		return e.Kind == DecoderInitFailed
	}
	return false
}

// DecodeError reports a failure to read or decode a packet.
// It is fatal to the session.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ScaleError reports a failure to convert a frame to display format.
// It is fatal to the session.
type ScaleError struct {
	Err error
}

func (e *ScaleError) Error() string {
	return "scale: " + e.Err.Error()
}

func (e *ScaleError) Unwrap() error {
	return e.Err
}
