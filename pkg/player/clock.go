package player

import (
	"math"

	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/queue"
)

// Clock paces frames from the frame queue onto the display. It runs on the
// scheduler goroutine and never blocks on the queue.
type Clock struct {
	frames  *queue.BoundedQueue[DecodedFrame]
	display ports.Display
	sched   ports.Scheduler
	logger  ports.Logger

	// requestStart asks the worker to feed from fromMs.
	requestStart func(fromMs int64)
	// requestRefill asks the worker to keep feeding.
	requestRefill func()
	// finished is called after the end-of-stream sentinel was consumed.
	finished func()

	running  bool
	paused   bool
	playTime int64
	lastPTS  int64

	timer    ports.Timer
	timerPTS int64

	refillPending bool
}

func newClock(frames *queue.BoundedQueue[DecodedFrame], display ports.Display, sched ports.Scheduler, logger ports.Logger) *Clock {
	return &Clock{
		frames:  frames,
		display: display,
		sched:   sched,
		logger:  logger.WithComponent("clock"),
		lastPTS: math.MinInt64,
	}
}

// Start begins presentation at fromMs and asks the worker for frames.
func (c *Clock) Start(fromMs int64) {
	c.cancelTimer()
	c.running = true
	c.paused = false
	c.playTime = fromMs
	c.lastPTS = math.MinInt64
	c.refillPending = true
	c.requestStart(fromMs)
	c.tick()
}

// Stop cancels the pending timer and resets the play position.
func (c *Clock) Stop() {
	c.cancelTimer()
	c.running = false
	c.paused = false
	c.playTime = 0
	c.lastPTS = math.MinInt64
	c.refillPending = false
}

// Pause cancels the pending timer. Queued frames are kept.
func (c *Clock) Pause() {
	if !c.running {
		return
	}
	c.paused = true
	c.cancelTimer()
}

// Resume re-arms presentation after Pause.
func (c *Clock) Resume() {
	if !c.running || !c.paused {
		return
	}
	c.paused = false
	c.tick()
}

// Running reports whether the clock has been started and not stopped.
func (c *Clock) Running() bool {
	return c.running
}

// PlayTime returns the presentation time of the last scheduled delivery.
func (c *Clock) PlayTime() int64 {
	return c.playTime
}

// FramesAvailable is called when the worker reports buffered frames.
func (c *Clock) FramesAvailable() {
	c.tick()
}

// RefillDone clears the pending refill request.
func (c *Clock) RefillDone() {
	c.refillPending = false
}

// MarkRefillPending records that the worker was asked to feed by other means.
func (c *Clock) MarkRefillPending() {
	c.refillPending = true
}

func (c *Clock) tick() {
	if !c.running || c.paused {
		return
	}

	for {
		frame, ok := c.frames.TryPeek()
		if !ok {
			c.cancelTimer()
			c.refill()
			return
		}

		if frame.EndOfStream {
			c.frames.TryGet()
			c.logger.Debug("End of stream at %d ms", c.playTime)
			c.Stop()
			c.finished()
			return
		}

		if frame.PTS < c.lastPTS {
			c.frames.TryGet()
			c.logger.Debug("Dropped out-of-order frame %d ms after %d ms", frame.PTS, c.lastPTS)
			continue
		}

		if frame.PTS < c.playTime {
			c.frames.TryGet()
			c.deliver(frame)
			continue
		}

		if c.timer != nil && c.timerPTS == frame.PTS {
			return
		}
		c.cancelTimer()
		pts := frame.PTS
		c.timerPTS = pts
		c.timer = c.sched.ScheduleOnce(pts-c.playTime, func() {
			c.timer = nil
			c.fire(pts)
		})
		return
	}
}

// fire delivers the head frame if it is still due at pts.
func (c *Clock) fire(pts int64) {
	if !c.running || c.paused {
		return
	}
	if frame, ok := c.frames.TryPeek(); ok && !frame.EndOfStream && frame.PTS <= pts && frame.PTS >= c.lastPTS {
		c.frames.TryGet()
		c.playTime = frame.PTS
		c.deliver(frame)
	}
	c.tick()
}

func (c *Clock) deliver(frame DecodedFrame) {
	c.display.DeliverFrame(frame.Image, frame.PTS)
	c.lastPTS = frame.PTS

	if c.frames.Size() <= c.frames.Capacity()/2 {
		c.refill()
	}
}

func (c *Clock) refill() {
	if c.refillPending {
		return
	}
	c.refillPending = true
	c.requestRefill()
}

func (c *Clock) cancelTimer() {
	if c.timer != nil {
		c.timer.Cancel()
		c.timer = nil
	}
}
