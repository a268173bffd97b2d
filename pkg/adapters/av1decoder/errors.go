// Package av1decoder provides an AV1 video decoder using libaom.
//
// The cgo implementation is built with the aom build tag. Without it, Init
// reports ErrNotAvailable so callers can fall back or fail the open.
package av1decoder

import "errors"

var (
	// ErrNotInitialized is returned when decoder methods are called before initialization.
	ErrNotInitialized = errors.New("av1decoder: decoder not initialized")

	// ErrNotAvailable is returned when the binary was built without libaom.
	ErrNotAvailable = errors.New("av1decoder: built without libaom (use -tags aom)")

	// ErrUnsupportedFormat is returned for pictures other than 8-bit 4:2:0.
	ErrUnsupportedFormat = errors.New("av1decoder: unsupported picture format")
)
