package nulldisplay

import (
	"image"
	"testing"
)

func TestDisplay(t *testing.T) {
	d := New()
	if d.Count() != 0 || d.LastPTS() != -1 {
		t.Fatalf("unexpected initial state: count=%d last=%d", d.Count(), d.LastPTS())
	}

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	d.DeliverFrame(img, 0)
	d.DeliverFrame(img, 40)

	if d.Count() != 2 {
		t.Errorf("count = %d, want 2", d.Count())
	}
	if d.LastPTS() != 40 {
		t.Errorf("last pts = %d, want 40", d.LastPTS())
	}

	d.SetVisible(false)
	if d.IsVisible() {
		t.Error("expected hidden after SetVisible(false)")
	}
}
