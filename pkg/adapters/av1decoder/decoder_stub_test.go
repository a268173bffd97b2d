//go:build !aom

package av1decoder

import (
	"errors"
	"testing"

	"github.com/user/framepace/pkg/ports"
)

func TestStubDecoder(t *testing.T) {
	d := New()
	if err := d.Init(); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}
	if _, err := d.Decode(ports.Packet{Data: []byte{1}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
