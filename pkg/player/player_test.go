package player

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/user/framepace/pkg/mocks"
	"github.com/user/framepace/pkg/ports"
)

type playerHarness struct {
	player  *Player
	sched   *mocks.Scheduler
	display *mocks.Display
	opener  *mocks.Opener

	parsed   []ParseResult
	finishes int
	errs     []error
}

func newPlayerHarness(t *testing.T, opts Options) *playerHarness {
	t.Helper()
	h := &playerHarness{
		sched:   mocks.NewScheduler(),
		display: mocks.NewDisplay(),
		opener:  mocks.NewOpener(),
	}
	h.player = New(h.opener, h.display, h.sched, opts)
	h.player.OnParsed(func(r ParseResult) { h.parsed = append(h.parsed, r) })
	h.player.OnFinished(func() { h.finishes++ })
	h.player.OnError(func(err error) { h.errs = append(h.errs, err) })
	t.Cleanup(h.player.Close)
	return h
}

func (h *playerHarness) runUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	if !h.sched.RunUntil(cond, testTimeout) {
		t.Fatalf("timed out: %s", msg)
	}
}

func (h *playerHarness) load(t *testing.T, s *mocks.Session) {
	t.Helper()
	h.opener.Add("clip", s)
	n := len(h.parsed)
	h.player.SetSource("clip")
	h.runUntil(t, func() bool { return len(h.parsed) > n }, "parsed")
	if h.player.ParseState() != ParseSuccess {
		t.Fatalf("parse state = %s", h.player.ParseState())
	}
}

func noRepeat() Options {
	opts := DefaultOptions()
	opts.AutoRepeat = false
	return opts
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.FrameBufferCapacity != 10 {
		t.Errorf("capacity = %d, want 10", opts.FrameBufferCapacity)
	}
	if !opts.AutoRepeat {
		t.Error("auto-repeat should default to true")
	}
}

func TestPlayer_PlaysClipWithPacing(t *testing.T) {
	h := newPlayerHarness(t, noRepeat())
	h.load(t, mocks.NewClipSession(0, 40, 80, 120))

	var times []int64
	h.display.DeliverFrameFunc = func(img *image.RGBA, ptsMs int64) {
		times = append(times, h.sched.Now())
	}

	h.player.Play()
	if !h.player.IsPlaying() {
		t.Error("expected IsPlaying after Play")
	}
	h.runUntil(t, func() bool { return h.finishes == 1 }, "finished")

	if got := h.display.PTS(); !equalInt64s(got, []int64{0, 40, 80, 120}) {
		t.Errorf("delivered pts = %v", got)
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i] - times[i-1]; gap != 40 {
			t.Errorf("gap %d = %d ms, want 40", i, gap)
		}
	}
	if h.player.IsPlaying() {
		t.Error("expected playback to end without auto-repeat")
	}
}

func TestPlayer_ParseResult(t *testing.T) {
	h := newPlayerHarness(t, noRepeat())
	h.opener.Add("clip", mocks.NewClipSession(0))

	h.player.SetSource("missing")
	h.runUntil(t, func() bool { return len(h.parsed) == 1 }, "parsed")
	if h.parsed[0].State != ParseFailed || !errors.Is(h.parsed[0].Err, ports.ErrNoSuchFile) {
		t.Errorf("unexpected result: %+v", h.parsed[0])
	}
	if h.player.ParseState() != ParseFailed {
		t.Errorf("parse state = %s, want parse failed", h.player.ParseState())
	}

	// Play without a parsed source is ignored.
	h.player.Play()
	if h.player.IsPlaying() {
		t.Error("Play should be ignored when not parsed")
	}

	h.player.SetSource("clip")
	h.runUntil(t, func() bool { return len(h.parsed) == 2 }, "parsed")
	if h.parsed[1].State != ParseSuccess || h.player.Stream().Width != 4 {
		t.Errorf("unexpected result: %+v", h.parsed[1])
	}
}

func TestPlayer_AutoRepeat(t *testing.T) {
	h := newPlayerHarness(t, DefaultOptions())
	s := mocks.NewClipSession(0, 40, 80)
	h.load(t, s)

	h.player.OnFinished(func() {
		h.finishes++
		if h.finishes == 2 {
			h.player.Stop()
		}
	})

	h.player.Play()
	h.runUntil(t, func() bool { return h.finishes == 2 }, "two loops")

	if got := h.display.PTS(); !equalInt64s(got, []int64{0, 40, 80, 0, 40, 80}) {
		t.Errorf("delivered pts = %v", got)
	}
	if seeks := s.Seeks(); len(seeks) != 1 || seeks[0] != 0 {
		t.Errorf("seeks = %v, want [0]", seeks)
	}
	if h.player.IsPlaying() {
		t.Error("Stop in OnFinished should prevent another loop")
	}
	eventually(t, func() bool { return s.CloseCount() == 1 }, "session closed")
}

func TestPlayer_Stop(t *testing.T) {
	opts := noRepeat()
	opts.FrameBufferCapacity = 2
	h := newPlayerHarness(t, opts)
	s := mocks.NewClipSession(0, 40, 80, 120, 160, 200)
	h.load(t, s)

	h.player.Play()
	h.runUntil(t, func() bool { return len(h.display.PTS()) == 1 }, "first frame")

	h.player.Stop()
	if h.player.ParseState() != NotParsed {
		t.Errorf("parse state = %s, want not parsed", h.player.ParseState())
	}
	if h.player.IsPlaying() {
		t.Error("expected IsPlaying false after Stop")
	}
	if h.sched.PendingTimers() != 0 {
		t.Errorf("pending timers = %d, want 0", h.sched.PendingTimers())
	}

	eventually(t, func() bool { return s.CloseCount() == 1 }, "session closed")
	eventually(t, func() bool { return h.player.worker.ParseState() == NotParsed }, "worker stopped")
	if h.player.frames.Size() != 0 {
		t.Errorf("frame queue size = %d, want 0", h.player.frames.Size())
	}

	// Stale notifications from before Stop must not restart presentation.
	h.sched.RunPending()
	if got := len(h.display.PTS()); got != 1 {
		t.Errorf("frames delivered after stop: %d", got)
	}
	if h.player.frames.Size() != 0 {
		t.Errorf("frame queue refilled after stop: %d", h.player.frames.Size())
	}
}

func TestPlayer_PauseResume(t *testing.T) {
	h := newPlayerHarness(t, noRepeat())
	h.load(t, mocks.NewClipSession(0, 40, 80, 120))

	h.player.Play()
	h.runUntil(t, func() bool { return len(h.display.PTS()) == 2 }, "two frames")

	h.player.Pause()
	if h.player.IsPlaying() {
		t.Error("expected IsPlaying false while paused")
	}
	if h.sched.PendingTimers() != 0 {
		t.Errorf("pending timers while paused = %d", h.sched.PendingTimers())
	}
	h.sched.RunPending()
	if got := len(h.display.PTS()); got != 2 {
		t.Errorf("frames delivered while paused: %d", got)
	}

	h.player.Resume()
	if !h.player.IsPlaying() {
		t.Error("expected IsPlaying after Resume")
	}
	h.runUntil(t, func() bool { return h.finishes == 1 }, "finished")
	if got := h.display.PTS(); !equalInt64s(got, []int64{0, 40, 80, 120}) {
		t.Errorf("delivered pts = %v", got)
	}
}

func TestPlayer_VisibilityChanged(t *testing.T) {
	h := newPlayerHarness(t, noRepeat())
	h.load(t, mocks.NewClipSession(0, 40, 80, 120))

	h.player.Play()
	h.runUntil(t, func() bool { return len(h.display.PTS()) == 1 }, "first frame")

	h.display.SetVisible(false)
	h.player.VisibilityChanged()
	if h.player.IsPlaying() {
		t.Error("hidden display should pause playback")
	}

	h.display.SetVisible(true)
	h.player.VisibilityChanged()
	if !h.player.IsPlaying() {
		t.Error("shown display should resume playback")
	}
	h.runUntil(t, func() bool { return h.finishes == 1 }, "finished")

	// A user pause is not undone by visibility changes.
	h.load(t, mocks.NewClipSession(0, 40))
	h.player.Play()
	h.player.Pause()
	h.display.SetVisible(false)
	h.player.VisibilityChanged()
	h.display.SetVisible(true)
	h.player.VisibilityChanged()
	if h.player.IsPlaying() {
		t.Error("visibility should not resume a user pause")
	}
}

func TestPlayer_Seek(t *testing.T) {
	h := newPlayerHarness(t, noRepeat())
	s := mocks.NewClipSession(0, 40, 80, 120)
	for i := range s.Packets {
		s.Packets[i].Keyframe = true
	}
	h.load(t, s)

	h.player.Seek(80)
	h.runUntil(t, func() bool { return h.finishes == 1 }, "finished")

	if got := h.display.PTS(); !equalInt64s(got, []int64{80, 120}) {
		t.Errorf("delivered pts = %v, want [80 120]", got)
	}
	if seeks := s.Seeks(); len(seeks) != 1 || seeks[0] != 80 {
		t.Errorf("seeks = %v, want [80]", seeks)
	}

	// Play after the end restarts from the beginning through a seek.
	h.player.Play()
	h.runUntil(t, func() bool { return h.finishes == 2 }, "finished again")
	if got := h.display.PTS(); !equalInt64s(got[2:], []int64{0, 40, 80, 120}) {
		t.Errorf("delivered pts after replay = %v", got)
	}
}

func TestPlayer_CommandDuringFirstReadKeepsFeeding(t *testing.T) {
	h := newPlayerHarness(t, noRepeat())
	s := mocks.NewClipSession(0, 40, 80)
	// The first packet belongs to another stream so the interrupted feed
	// completes with nothing buffered.
	s.Packets = append([]ports.Packet{{StreamIndex: 1}}, s.Packets...)

	reading := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.BeforeReadFunc = func(n int) {
		if n == 1 {
			close(reading)
			<-release
		}
	}
	h.load(t, s)
	t.Cleanup(func() { once.Do(func() { close(release) }) })

	h.player.Play()
	select {
	case <-reading:
	case <-time.After(testTimeout):
		t.Fatal("first read not started")
	}
	h.player.Resize(320, 240)
	once.Do(func() { close(release) })

	h.runUntil(t, func() bool { return h.finishes == 1 }, "finished")
	if got := h.display.PTS(); !equalInt64s(got, []int64{0, 40, 80}) {
		t.Errorf("delivered pts = %v, want [0 40 80]", got)
	}
	if sizes := s.TargetSizes(); len(sizes) != 1 || sizes[0] != image.Pt(320, 240) {
		t.Errorf("target sizes = %v, want [(320,240)]", sizes)
	}
}

func TestPlayer_DecodeErrorStopsSession(t *testing.T) {
	h := newPlayerHarness(t, noRepeat())
	s := mocks.NewClipSession(0, 40)
	s.DecodeFunc = func(ports.Packet) ([]ports.RawFrame, error) {
		return nil, &ports.DecodeError{Err: errors.New("corrupt")}
	}
	h.load(t, s)

	h.player.Play()
	h.runUntil(t, func() bool { return len(h.errs) == 1 }, "error reported")

	var decErr *ports.DecodeError
	if !errors.As(h.errs[0], &decErr) {
		t.Errorf("expected *ports.DecodeError, got %v", h.errs[0])
	}
	if h.player.ParseState() != NotParsed {
		t.Errorf("parse state = %s, want not parsed", h.player.ParseState())
	}
	if h.player.IsPlaying() {
		t.Error("expected playback to stop on error")
	}
	if s.CloseCount() != 1 {
		t.Errorf("session closed %d times, want 1", s.CloseCount())
	}
}

func TestPlayer_ResizeAndCapacity(t *testing.T) {
	h := newPlayerHarness(t, noRepeat())
	s := mocks.NewClipSession(0)
	h.load(t, s)

	h.player.Resize(640, 360)
	eventually(t, func() bool { return len(s.TargetSizes()) == 1 }, "resize forwarded")

	h.player.SetFrameBufferCapacity(3)
	if h.player.FrameBufferCapacity() != 3 {
		t.Errorf("capacity = %d, want 3", h.player.FrameBufferCapacity())
	}
	h.player.SetFrameBufferCapacity(0)
	if h.player.FrameBufferCapacity() != 1 {
		t.Errorf("capacity = %d, want 1", h.player.FrameBufferCapacity())
	}

	h.player.SetAutoRepeat(true)
	if !h.player.AutoRepeat() {
		t.Error("expected auto-repeat enabled")
	}
}

func TestPlayer_CloseShutsDownWorker(t *testing.T) {
	h := newPlayerHarness(t, noRepeat())
	s := mocks.NewClipSession(0, 40, 80)
	h.load(t, s)
	h.player.Play()

	h.player.Close()
	select {
	case <-h.player.worker.Done():
	default:
		t.Fatal("worker still running after Close")
	}
	if s.CloseCount() != 1 {
		t.Errorf("session closed %d times, want 1", s.CloseCount())
	}

	// Calls after Close are ignored.
	h.player.SetSource("clip")
	h.player.Play()
	h.player.Close()
}
