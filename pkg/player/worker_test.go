package player

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/user/framepace/pkg/adapters/logger"
	"github.com/user/framepace/pkg/mocks"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/queue"
)

const testTimeout = 2 * time.Second

type workerHarness struct {
	worker *Worker
	frames *queue.BoundedQueue[DecodedFrame]
	notes  chan Notification
	opener *mocks.Opener
}

func newWorkerHarness(t *testing.T, capacity int) *workerHarness {
	t.Helper()
	h := &workerHarness{
		frames: queue.New[DecodedFrame](capacity),
		notes:  make(chan Notification, 64),
		opener: mocks.NewOpener(),
	}
	h.worker = NewWorker(h.opener, h.frames, func(n Notification) { h.notes <- n }, logger.NewNoop())
	h.worker.Start()
	t.Cleanup(h.worker.Shutdown)
	return h
}

func (h *workerHarness) wait(t *testing.T, kind NotificationKind) Notification {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case n := <-h.notes:
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("timed out waiting for notification %d", kind)
			return Notification{}
		}
	}
}

func (h *workerHarness) parse(t *testing.T, url string, s ports.Session) {
	t.Helper()
	h.opener.Add(url, s)
	h.worker.Send(ParseCommand(url))
	if n := h.wait(t, NotifyParsed); n.Parse.State != ParseSuccess {
		t.Fatalf("parse failed: %v", n.Parse.Err)
	}
}

func (h *workerHarness) drainPTS() []int64 {
	var pts []int64
	for {
		f, ok := h.frames.TryGet()
		if !ok {
			return pts
		}
		pts = append(pts, f.PTS)
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %s", msg)
		}
		time.Sleep(time.Millisecond)
	}
}

func equalInt64s(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWorker_Parse(t *testing.T) {
	h := newWorkerHarness(t, 10)
	s := mocks.NewClipSession(0, 40)
	h.opener.Add("clip", s)

	h.worker.Send(ParseCommand("clip"))
	n := h.wait(t, NotifyParsed)
	if n.Parse.State != ParseSuccess {
		t.Fatalf("state = %s, want parse success", n.Parse.State)
	}
	if n.Parse.URL != "clip" || n.Parse.Stream.Width != 4 {
		t.Errorf("unexpected result: %+v", n.Parse)
	}
	if h.worker.ParseState() != ParseSuccess {
		t.Errorf("worker state = %s", h.worker.ParseState())
	}

	h.worker.Send(ParseCommand("missing"))
	n = h.wait(t, NotifyParsed)
	if n.Parse.State != ParseFailed {
		t.Fatalf("state = %s, want parse failed", n.Parse.State)
	}
	if !errors.Is(n.Parse.Err, ports.ErrNoSuchFile) {
		t.Errorf("expected ErrNoSuchFile, got %v", n.Parse.Err)
	}
	if s.CloseCount() != 1 {
		t.Errorf("previous session closed %d times, want 1", s.CloseCount())
	}
}

func TestWorker_ParseAssignsSessionID(t *testing.T) {
	h := newWorkerHarness(t, 10)
	h.opener.Add("first", mocks.NewClipSession(0))
	h.opener.Add("second", mocks.NewClipSession(0))

	h.worker.Send(ParseCommand("first"))
	first := h.wait(t, NotifyParsed).Parse
	h.worker.Send(ParseCommand("second"))
	second := h.wait(t, NotifyParsed).Parse
	h.worker.Send(ParseCommand("missing"))
	failed := h.wait(t, NotifyParsed).Parse

	if first.SessionID == "" || second.SessionID == "" {
		t.Fatalf("session ids = %q, %q, want non-empty", first.SessionID, second.SessionID)
	}
	if first.SessionID == second.SessionID {
		t.Errorf("sessions share id %q", first.SessionID)
	}
	if failed.SessionID != "" {
		t.Errorf("failed parse has session id %q", failed.SessionID)
	}
}

func TestWorker_PlayFeedsUntilEndOfStream(t *testing.T) {
	h := newWorkerHarness(t, 10)
	h.parse(t, "clip", mocks.NewClipSession(0, 40, 80, 120))

	h.worker.Send(PlayCommand())
	n := h.wait(t, NotifyFeedCompleted)
	if n.Result != FeedFinished {
		t.Errorf("result = %s, want finished", n.Result)
	}
	if n.Buffered != 5 {
		t.Errorf("buffered = %d, want 5", n.Buffered)
	}

	var frames []DecodedFrame
	for {
		f, ok := h.frames.TryGet()
		if !ok {
			break
		}
		frames = append(frames, f)
	}
	for i, want := range []int64{0, 40, 80, 120} {
		if frames[i].PTS != want || frames[i].EndOfStream || frames[i].Image == nil {
			t.Errorf("frame %d = %+v, want pts %d", i, frames[i], want)
		}
	}
	if last := frames[4]; !last.EndOfStream || last.PTS != EndOfStreamFrame().PTS || last.Image != nil {
		t.Errorf("expected sentinel, got %+v", last)
	}

	// Another Play at end of stream reports Finished without a second sentinel.
	h.worker.Send(PlayCommand())
	n = h.wait(t, NotifyFeedCompleted)
	if n.Result != FeedFinished || n.Buffered != 0 {
		t.Errorf("got %s with %d buffered, want finished with 0", n.Result, n.Buffered)
	}
	if h.frames.Size() != 0 {
		t.Errorf("frame queue size = %d, want 0", h.frames.Size())
	}
}

func TestWorker_Backpressure(t *testing.T) {
	h := newWorkerHarness(t, 2)
	s := mocks.NewClipSession(0, 40, 80, 120, 160)
	h.parse(t, "clip", s)

	h.worker.Send(PlayCommand())
	n := h.wait(t, NotifyFeedCompleted)
	if n.Result != FeedReady || n.Buffered != 2 {
		t.Fatalf("got %s with %d buffered, want ready with 2", n.Result, n.Buffered)
	}
	if s.ReadCount() != 2 {
		t.Errorf("reads = %d, want 2", s.ReadCount())
	}

	var pts []int64
	for {
		pts = append(pts, h.drainPTS()...)
		h.worker.Send(PlayCommand())
		if n := h.wait(t, NotifyFeedCompleted); n.Result == FeedFinished {
			break
		}
	}
	pts = append(pts, h.drainPTS()...)

	want := []int64{0, 40, 80, 120, 160, EndOfStreamFrame().PTS}
	if !equalInt64s(pts, want) {
		t.Errorf("pts = %v, want %v", pts, want)
	}
}

func TestWorker_SkipsOtherStreams(t *testing.T) {
	h := newWorkerHarness(t, 10)
	s := mocks.NewClipSession(0, 40)
	s.Packets = append([]ports.Packet{{StreamIndex: 1, PTS: 0}}, s.Packets...)
	s.Packets = append(s.Packets, ports.Packet{StreamIndex: 1, PTS: 20})
	h.parse(t, "clip", s)

	h.worker.Send(PlayCommand())
	h.wait(t, NotifyFeedCompleted)

	if s.DecodeCount() != 2 {
		t.Errorf("decodes = %d, want 2", s.DecodeCount())
	}
	if got := h.drainPTS(); !equalInt64s(got, []int64{0, 40, EndOfStreamFrame().PTS}) {
		t.Errorf("pts = %v", got)
	}
}

func TestWorker_IgnoresPlayWhenNotParsedOrPaused(t *testing.T) {
	h := newWorkerHarness(t, 10)

	h.worker.Send(PlayCommand())
	if n := h.wait(t, NotifyFeedCompleted); n.Buffered != 0 {
		t.Errorf("buffered = %d, want 0", n.Buffered)
	}

	s := mocks.NewClipSession(0, 40)
	h.parse(t, "clip", s)

	h.worker.Send(PauseCommand())
	h.worker.Send(PlayCommand())
	h.wait(t, NotifyFeedCompleted)
	if s.ReadCount() != 0 {
		t.Errorf("reads while paused = %d, want 0", s.ReadCount())
	}

	// Resume implies Play.
	h.worker.Send(ResumeCommand())
	if n := h.wait(t, NotifyFeedCompleted); n.Result != FeedFinished {
		t.Errorf("result = %s, want finished", n.Result)
	}
}

func TestWorker_StopObservedBeforeNextRead(t *testing.T) {
	h := newWorkerHarness(t, 10)
	s := mocks.NewClipSession(0, 40, 80, 120)

	var mu sync.Mutex
	pos := 0
	s.ReadPacketFunc = func() (ports.Packet, error) {
		mu.Lock()
		defer mu.Unlock()
		pkt := s.Packets[pos]
		pos++
		if pos == 2 {
			h.worker.Send(StopCommand())
		}
		return pkt, nil
	}
	h.parse(t, "clip", s)

	h.worker.Send(PlayCommand())
	if n := h.wait(t, NotifyFeedCompleted); n.Result != FeedReady {
		t.Errorf("result = %s, want ready", n.Result)
	}
	if s.ReadCount() != 2 {
		t.Errorf("reads = %d, want 2", s.ReadCount())
	}

	eventually(t, func() bool { return s.CloseCount() == 1 }, "session closed")
	if h.worker.ParseState() != NotParsed {
		t.Errorf("state = %s, want not parsed", h.worker.ParseState())
	}
	if h.frames.Size() != 0 {
		t.Errorf("frame queue size = %d, want 0", h.frames.Size())
	}
}

func TestWorker_Seek(t *testing.T) {
	h := newWorkerHarness(t, 10)
	s := mocks.NewClipSession(0, 40, 80, 120)
	for i := range s.Packets {
		s.Packets[i].Keyframe = true
	}
	h.parse(t, "clip", s)

	h.worker.Send(PlayCommand())
	h.wait(t, NotifyFeedCompleted)

	h.worker.Send(SeekCommand(90))
	n := h.wait(t, NotifyFeedCompleted)
	if n.Result != FeedFinished {
		t.Errorf("result = %s, want finished", n.Result)
	}
	if got := h.drainPTS(); !equalInt64s(got, []int64{80, 120, EndOfStreamFrame().PTS}) {
		t.Errorf("pts after seek = %v", got)
	}
	if seeks := s.Seeks(); len(seeks) != 1 || seeks[0] != 90 {
		t.Errorf("seeks = %v, want [90]", seeks)
	}
}

func TestWorker_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(s *mocks.Session)
		cmd   Command
		check func(t *testing.T, err error)
	}{
		{
			name: "decode",
			setup: func(s *mocks.Session) {
				s.DecodeFunc = func(ports.Packet) ([]ports.RawFrame, error) {
					return nil, &ports.DecodeError{Err: boom}
				}
			},
			cmd: PlayCommand(),
			check: func(t *testing.T, err error) {
				var decErr *ports.DecodeError
				if !errors.As(err, &decErr) {
					t.Errorf("expected *ports.DecodeError, got %v", err)
				}
			},
		},
		{
			name: "scale",
			setup: func(s *mocks.Session) {
				s.ToDisplayFormatFunc = func(ports.RawFrame) (*image.RGBA, error) {
					return nil, &ports.ScaleError{Err: boom}
				}
			},
			cmd: PlayCommand(),
			check: func(t *testing.T, err error) {
				var scaleErr *ports.ScaleError
				if !errors.As(err, &scaleErr) {
					t.Errorf("expected *ports.ScaleError, got %v", err)
				}
			},
		},
		{
			name: "read",
			setup: func(s *mocks.Session) {
				s.ReadPacketFunc = func() (ports.Packet, error) { return ports.Packet{}, boom }
			},
			cmd: PlayCommand(),
			check: func(t *testing.T, err error) {
				if !errors.Is(err, boom) {
					t.Errorf("expected boom, got %v", err)
				}
			},
		},
		{
			name: "seek",
			setup: func(s *mocks.Session) {
				s.SeekFunc = func(int64) error { return boom }
			},
			cmd: SeekCommand(0),
			check: func(t *testing.T, err error) {
				if !errors.Is(err, boom) {
					t.Errorf("expected boom, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newWorkerHarness(t, 10)
			s := mocks.NewClipSession(0, 40)
			tt.setup(s)
			h.parse(t, "clip", s)

			h.worker.Send(tt.cmd)
			n := h.wait(t, NotifyError)
			tt.check(t, n.Err)

			if s.CloseCount() != 1 {
				t.Errorf("session closed %d times, want 1", s.CloseCount())
			}
			if h.worker.ParseState() != NotParsed {
				t.Errorf("state = %s, want not parsed", h.worker.ParseState())
			}
			if h.frames.Size() != 0 {
				t.Errorf("frame queue size = %d, want 0", h.frames.Size())
			}
		})
	}
}

func TestWorker_Resize(t *testing.T) {
	h := newWorkerHarness(t, 10)
	s := mocks.NewClipSession(0)
	h.parse(t, "clip", s)

	h.worker.Send(ResizeCommand(320, 240))
	eventually(t, func() bool { return len(s.TargetSizes()) == 1 }, "resize forwarded")
	if got := s.TargetSizes()[0]; got != image.Pt(320, 240) {
		t.Errorf("target = %v, want (320,240)", got)
	}
}

func TestWorker_ShutdownWhileBlockedInPut(t *testing.T) {
	h := newWorkerHarness(t, 1)
	s := mocks.NewClipSession(0)
	s.DecodeFunc = func(pkt ports.Packet) ([]ports.RawFrame, error) {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		return []ports.RawFrame{{Image: img, PTS: 0}, {Image: img, PTS: 10}, {Image: img, PTS: 20}}, nil
	}
	h.parse(t, "clip", s)

	h.worker.Send(PlayCommand())
	eventually(t, func() bool { return h.frames.Full() && s.DecodeCount() == 1 }, "worker blocked in Put")

	shutdownWithin(t, h.worker)
	if s.CloseCount() != 1 {
		t.Errorf("session closed %d times, want 1", s.CloseCount())
	}
}

func TestWorker_ShutdownDuringRead(t *testing.T) {
	h := newWorkerHarness(t, 10)
	s := mocks.NewClipSession(0)
	reading := make(chan struct{})
	release := make(chan struct{})
	s.ReadPacketFunc = func() (ports.Packet, error) {
		close(reading)
		<-release
		return s.Packets[0], nil
	}
	h.parse(t, "clip", s)

	h.worker.Send(PlayCommand())
	select {
	case <-reading:
	case <-time.After(testTimeout):
		t.Fatal("read never started")
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	shutdownWithin(t, h.worker)

	if s.ReadCount() != 1 {
		t.Errorf("reads = %d, want 1", s.ReadCount())
	}
	if s.DecodeCount() != 0 {
		t.Errorf("decodes = %d, want 0", s.DecodeCount())
	}
	if s.CloseCount() != 1 {
		t.Errorf("session closed %d times, want 1", s.CloseCount())
	}
}

func shutdownWithin(t *testing.T, w *Worker) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		w.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("worker did not shut down")
	}
}
