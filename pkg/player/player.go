// Package player plays a media source onto a display surface.
//
// A Player couples three pieces:
//   - a Worker goroutine that owns the media session and fills a bounded
//     frame queue
//   - a Clock on the caller goroutine that takes frames off the queue at
//     their presentation time
//   - a ports.Scheduler that runs the clock's timers and the worker's
//     notifications on the caller goroutine
//
// Every Player method must be called on the scheduler goroutine.
package player

import (
	"github.com/user/framepace/pkg/adapters/logger"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/queue"
)

// Default option values.
const (
	DefaultFrameBufferCapacity = 10
	DefaultAutoRepeat          = true
)

// Options configures a Player.
type Options struct {
	// FrameBufferCapacity bounds the number of decoded frames held ahead
	// of presentation.
	FrameBufferCapacity int

	// AutoRepeat restarts playback from the beginning after the end of the
	// stream.
	AutoRepeat bool

	// Logger receives component logs. Nil disables logging.
	Logger ports.Logger
}

// DefaultOptions returns the default player options.
func DefaultOptions() Options {
	return Options{
		FrameBufferCapacity: DefaultFrameBufferCapacity,
		AutoRepeat:          DefaultAutoRepeat,
	}
}

// Player is the caller-side API.
type Player struct {
	display ports.Display
	sched   ports.Scheduler
	logger  ports.Logger

	frames *queue.BoundedQueue[DecodedFrame]
	worker *Worker
	clock  *Clock

	autoRepeat bool
	parseState ParseState
	stream     ports.StreamInfo
	url        string

	// gen changes on every SetSource and Stop so that notifications about
	// an older source are ignored.
	gen uint64

	started      bool
	playing      bool
	paused       bool
	hiddenPaused bool
	closed       bool

	onParsed   func(ParseResult)
	onFinished func()
	onError    func(error)
}

// New creates a player and starts its worker goroutine.
func New(opener ports.Opener, display ports.Display, sched ports.Scheduler, opts Options) *Player {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	capacity := opts.FrameBufferCapacity
	if capacity < 1 {
		capacity = DefaultFrameBufferCapacity
	}

	p := &Player{
		display:    display,
		sched:      sched,
		logger:     log.WithComponent("player"),
		frames:     queue.New[DecodedFrame](capacity),
		autoRepeat: opts.AutoRepeat,
	}

	p.worker = NewWorker(opener, p.frames, func(n Notification) {
		sched.Post(func() { p.handle(n) })
	}, log)

	p.clock = newClock(p.frames, display, sched, log)
	p.clock.requestStart = p.requestStart
	p.clock.requestRefill = func() { p.worker.Send(PlayCommand()) }
	p.clock.finished = p.finished

	p.worker.Start()
	return p
}

// OnParsed registers the callback run after every SetSource.
func (p *Player) OnParsed(fn func(ParseResult)) {
	p.onParsed = fn
}

// OnFinished registers the callback run when playback reaches the end.
func (p *Player) OnFinished(fn func()) {
	p.onFinished = fn
}

// OnError registers the callback run when decoding fails. The session is
// already stopped when it runs.
func (p *Player) OnError(fn func(error)) {
	p.onError = fn
}

// SetSource stops any playback and asks the worker to open url. The result
// is reported through OnParsed.
func (p *Player) SetSource(url string) {
	if p.closed {
		return
	}
	p.clock.Stop()
	p.frames.Clear()
	p.gen++
	p.resetPlayback()
	p.url = url

	cmd := ParseCommand(url)
	cmd.gen = p.gen
	p.worker.Send(cmd)
	p.logger.Debug("Source set to %s", url)
}

// Play starts playback from the beginning.
func (p *Player) Play() {
	p.playFrom(0)
}

// Seek restarts playback at tsMs, rounded down to the nearest keyframe.
func (p *Player) Seek(tsMs int64) {
	if tsMs < 0 {
		tsMs = 0
	}
	p.playFrom(tsMs)
}

func (p *Player) playFrom(tsMs int64) {
	if p.closed {
		return
	}
	if p.parseState != ParseSuccess {
		p.logger.Warn("Cannot play: %s", p.parseState)
		return
	}
	if p.paused {
		p.paused = false
		p.hiddenPaused = false
		p.worker.Send(ResumeCommand())
	}
	if p.playing {
		p.frames.Clear()
	}
	p.playing = true
	p.clock.Start(tsMs)
}

// requestStart sends Play for the first playback after a parse and Seek for
// every later one.
func (p *Player) requestStart(fromMs int64) {
	if !p.started && fromMs == 0 {
		p.started = true
		p.worker.Send(PlayCommand())
		return
	}
	p.started = true
	p.worker.Send(SeekCommand(fromMs))
}

// Pause freezes presentation and decoding. Queued frames are kept.
func (p *Player) Pause() {
	if !p.playing || p.paused {
		return
	}
	p.paused = true
	p.clock.Pause()
	p.worker.Send(PauseCommand())
}

// Resume continues after Pause.
func (p *Player) Resume() {
	if !p.playing || !p.paused {
		return
	}
	p.paused = false
	p.hiddenPaused = false
	p.worker.Send(ResumeCommand())
	p.clock.MarkRefillPending()
	p.clock.Resume()
}

// Stop ends playback and closes the session. A new SetSource is needed to
// play again.
func (p *Player) Stop() {
	if p.closed {
		return
	}
	p.clock.Stop()
	p.gen++
	cmd := StopCommand()
	cmd.gen = p.gen
	p.worker.Send(cmd)
	// Wakes a worker blocked in Put so it sees the command.
	p.frames.Clear()
	p.resetPlayback()
}

// Resize forwards the display size to the session.
func (p *Player) Resize(width, height int) {
	if p.closed {
		return
	}
	p.worker.Send(ResizeCommand(width, height))
}

// SetAutoRepeat enables or disables restarting at the end of the stream.
func (p *Player) SetAutoRepeat(enabled bool) {
	p.autoRepeat = enabled
}

// AutoRepeat reports whether auto-repeat is enabled.
func (p *Player) AutoRepeat() bool {
	return p.autoRepeat
}

// SetFrameBufferCapacity changes how many decoded frames may be queued.
// Values below 1 are raised to 1.
func (p *Player) SetFrameBufferCapacity(n int) {
	if n < 1 {
		n = 1
	}
	p.frames.SetCapacity(n)
}

// FrameBufferCapacity returns the frame queue capacity.
func (p *Player) FrameBufferCapacity() int {
	return p.frames.Capacity()
}

// VisibilityChanged pauses playback while the display is hidden and
// resumes it when the display is shown again.
func (p *Player) VisibilityChanged() {
	if p.display.IsVisible() {
		if p.hiddenPaused {
			p.Resume()
		}
		return
	}
	if p.playing && !p.paused {
		p.Pause()
		p.hiddenPaused = true
	}
}

// ParseState returns the state of the latest parse as seen by the caller.
func (p *Player) ParseState() ParseState {
	return p.parseState
}

// Stream returns the selected stream of the parsed source.
func (p *Player) Stream() ports.StreamInfo {
	return p.stream
}

// IsPlaying reports whether playback is running and not paused.
func (p *Player) IsPlaying() bool {
	return p.playing && !p.paused
}

// Close stops playback and shuts the worker down. The session is closed
// before Close returns.
func (p *Player) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.clock.Stop()
	p.frames.Clear()
	p.worker.Shutdown()
	p.resetPlayback()
}

func (p *Player) resetPlayback() {
	p.parseState = NotParsed
	p.stream = ports.StreamInfo{}
	p.started = false
	p.playing = false
	p.paused = false
	p.hiddenPaused = false
}

func (p *Player) finished() {
	p.playing = false
	p.logger.Info("Playback finished: %s", p.url)
	if p.onFinished != nil {
		p.onFinished()
	}
	if p.autoRepeat && !p.playing && !p.closed && p.parseState == ParseSuccess {
		p.playing = true
		p.clock.Start(0)
	}
}

func (p *Player) handle(n Notification) {
	if p.closed || n.gen != p.gen {
		return
	}

	switch n.Kind {
	case NotifyParsed:
		p.parseState = n.Parse.State
		p.stream = n.Parse.Stream
		if n.Parse.State == ParseSuccess {
			p.logger.Info("Parsed %s as session %s: %s %dx%d", n.Parse.URL, n.Parse.SessionID, n.Parse.Stream.Codec, n.Parse.Stream.Width, n.Parse.Stream.Height)
		}
		if p.onParsed != nil {
			p.onParsed(n.Parse)
		}

	case NotifyFeedCompleted:
		p.clock.RefillDone()
		// A feed cut short by a command still needs a tick to request more.
		if n.Buffered > 0 || n.Result == FeedReady {
			p.clock.FramesAvailable()
		}

	case NotifyError:
		p.clock.Stop()
		p.gen++
		p.resetPlayback()
		p.logger.Error("Playback failed: %v", n.Err)
		if p.onError != nil {
			p.onError(n.Err)
		}
	}
}
