package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/queue"
)

// FeedResult tells why the feed loop returned.
type FeedResult int

const (
	// FeedReady means decoding yielded to a command or to a full frame queue.
	FeedReady FeedResult = iota
	// FeedFinished means the end-of-stream sentinel has been queued.
	FeedFinished
	// FeedError means a read, decode or conversion failed.
	FeedError
	// FeedCancelled means the worker is shutting down.
	FeedCancelled
)

func (r FeedResult) String() string {
	switch r {
	case FeedReady:
		return "ready"
	case FeedFinished:
		return "finished"
	case FeedError:
		return "error"
	case FeedCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// NotificationKind identifies a worker notification.
type NotificationKind int

const (
	NotifyParsed NotificationKind = iota
	NotifyFeedCompleted
	NotifyError
)

// Notification is sent from the worker goroutine to the caller.
type Notification struct {
	Kind NotificationKind

	// Parse is set for NotifyParsed.
	Parse ParseResult

	// Result and Buffered are set for NotifyFeedCompleted. Buffered is the
	// frame queue length when the feed loop returned.
	Result   FeedResult
	Buffered int

	// Err is set for NotifyError.
	Err error

	gen uint64
}

// Worker decodes the current source on its own goroutine. It owns the
// session exclusively and talks to the caller only through the command
// queue, the frame queue and notifications.
type Worker struct {
	opener   ports.Opener
	commands *queue.BoundedQueue[Command]
	frames   *queue.BoundedQueue[DecodedFrame]
	notify   func(Notification)
	logger   ports.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	state atomic.Int32

	// Owned by the worker goroutine.
	session   ports.Session
	sessionID string
	gen       uint64
	paused    bool
	eos       bool
}

// NewWorker creates a worker that pushes into frames and reports through
// notify. notify is called on the worker goroutine and must not block.
func NewWorker(opener ports.Opener, frames *queue.BoundedQueue[DecodedFrame], notify func(Notification), logger ports.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		opener:   opener,
		commands: queue.New[Command](0),
		frames:   frames,
		notify:   notify,
		logger:   logger.WithComponent("worker"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Send queues a command. It never blocks.
func (w *Worker) Send(cmd Command) {
	if err := w.commands.Put(w.ctx, cmd); err != nil {
		w.logger.Debug("Dropped %s: worker stopped", cmd)
	}
}

// ParseState returns the worker's current parse state.
func (w *Worker) ParseState() ParseState {
	return ParseState(w.state.Load())
}

// Shutdown cancels the worker, wakes any blocked queue call and waits for
// the goroutine to exit. It is safe to call more than once.
func (w *Worker) Shutdown() {
	w.once.Do(w.cancel)
	<-w.done
}

// Done is closed when the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.closeSession()

	for {
		cmd, err := w.commands.Get(w.ctx)
		if err != nil {
			return
		}
		if !w.dispatch(cmd) {
			return
		}
	}
}

// dispatch handles one command and reports whether the worker should keep
// running.
func (w *Worker) dispatch(cmd Command) bool {
	w.logger.Debug("Command %s", cmd)

	switch cmd.Type {
	case CmdParse:
		w.parse(cmd)
	case CmdPlay:
		return w.play()
	case CmdStop:
		w.stop()
		w.gen = cmd.gen
	case CmdPause:
		w.paused = true
	case CmdResume:
		w.paused = false
		w.Send(PlayCommand())
	case CmdSeek:
		return w.seek(cmd.TimestampMs)
	case CmdResize:
		if w.session != nil {
			w.session.ReconfigureTargetSize(cmd.Width, cmd.Height)
		}
	}
	return w.ctx.Err() == nil
}

func (w *Worker) parse(cmd Command) {
	w.closeSession()
	w.frames.Clear()
	w.eos = false
	w.paused = false
	w.gen = cmd.gen
	w.setState(NotParsed)

	result := ParseResult{URL: cmd.URL}
	s, err := w.opener.Open(cmd.URL)
	if err != nil {
		w.setState(ParseFailed)
		result.State = ParseFailed
		result.Err = err
		w.logger.Warn("Failed to open %s: %v", cmd.URL, err)
	} else {
		w.session = s
		w.sessionID = uuid.NewString()
		w.setState(ParseSuccess)
		result.State = ParseSuccess
		result.Stream = s.Info()
		result.SessionID = w.sessionID
		w.logger.Debug("Session %s opened %s", w.sessionID, cmd.URL)
	}

	w.notify(Notification{Kind: NotifyParsed, Parse: result, gen: w.gen})
}

func (w *Worker) play() bool {
	if w.ParseState() != ParseSuccess || w.paused {
		w.notifyFeed(FeedReady)
		return true
	}
	if w.eos {
		w.notifyFeed(FeedFinished)
		return true
	}

	result, err := w.feed()
	switch result {
	case FeedCancelled:
		return false
	case FeedError:
		w.fail(err)
	default:
		w.notifyFeed(result)
	}
	return true
}

func (w *Worker) seek(tsMs int64) bool {
	if w.ParseState() != ParseSuccess {
		return true
	}
	w.frames.Clear()
	if err := w.session.Seek(tsMs); err != nil {
		w.fail(err)
		return true
	}
	w.eos = false
	w.logger.Debug("Session %s seeked to %d ms", w.sessionID, tsMs)
	return w.play()
}

func (w *Worker) stop() {
	w.closeSession()
	w.frames.Clear()
	w.paused = false
	w.eos = false
	w.setState(NotParsed)
}

func (w *Worker) fail(err error) {
	w.logger.Error("Session %s failed: %v", w.sessionID, err)
	gen := w.gen
	w.stop()
	w.notify(Notification{Kind: NotifyError, Err: err, gen: gen})
}

// feed decodes until it has to yield.
func (w *Worker) feed() (FeedResult, error) {
	info := w.session.Info()

	for {
		if w.ctx.Err() != nil {
			return FeedCancelled, nil
		}
		if !w.commands.IsEmpty() {
			return FeedReady, nil
		}
		if w.frames.Full() {
			return FeedReady, nil
		}

		pkt, err := w.session.ReadPacket()
		if w.ctx.Err() != nil {
			return FeedCancelled, nil
		}
		if errors.Is(err, io.EOF) {
			if err := w.frames.Put(w.ctx, EndOfStreamFrame()); err != nil {
				return FeedCancelled, nil
			}
			w.eos = true
			w.logger.Debug("Session %s reached end of stream", w.sessionID)
			return FeedFinished, nil
		}
		if err != nil {
			return FeedError, err
		}
		if pkt.StreamIndex != info.Index {
			continue
		}

		raws, err := w.session.Decode(pkt)
		if err != nil {
			return FeedError, err
		}
		for _, raw := range raws {
			img, err := w.session.ToDisplayFormat(raw)
			if err != nil {
				return FeedError, err
			}
			frame := DecodedFrame{
				Image: img,
				PTS:   w.session.TimestampMs(raw),
				DTS:   info.TimeBase.Millis(raw.DTS),
			}
			if err := w.frames.Put(w.ctx, frame); err != nil {
				return FeedCancelled, nil
			}
		}
	}
}

func (w *Worker) notifyFeed(result FeedResult) {
	w.notify(Notification{
		Kind:     NotifyFeedCompleted,
		Result:   result,
		Buffered: w.frames.Size(),
		gen:      w.gen,
	})
}

func (w *Worker) closeSession() {
	if w.session == nil {
		return
	}
	if err := w.session.Close(); err != nil {
		w.logger.Warn("Failed to close session %s: %v", w.sessionID, err)
	}
	w.logger.Debug("Session %s closed", w.sessionID)
	w.session = nil
	w.sessionID = ""
}

func (w *Worker) setState(s ParseState) {
	w.state.Store(int32(s))
}
