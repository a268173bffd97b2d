// Package scheduler provides a cooperative single-goroutine event loop.
//
// Every callback, whether posted or scheduled, runs on the goroutine that
// called Run, one at a time. Components that live on the loop therefore
// need no locking of their own.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/framepace/pkg/ports"
)

// Loop is a ports.Scheduler backed by a single goroutine.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// New creates an idle loop. Callbacks posted before Run are kept.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post queues fn. It is safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// ScheduleOnce runs fn on the loop after delayMs milliseconds.
// Negative delays are treated as zero.
func (l *Loop) ScheduleOnce(delayMs int64, fn func()) ports.Timer {
	if delayMs < 0 {
		delayMs = 0
	}
	t := &timer{}
	t.t = time.AfterFunc(time.Duration(delayMs)*time.Millisecond, func() {
		l.Post(func() {
			if t.cancelled.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

// Run executes callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for _, fn := range l.drain() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) drain() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := l.pending
	l.pending = nil
	return fns
}

// timer is cancelled or fired exactly once; the flag is claimed by
// whichever happens first.
type timer struct {
	t         *time.Timer
	cancelled atomic.Bool
}

func (t *timer) Cancel() bool {
	t.t.Stop()
	return t.cancelled.CompareAndSwap(false, true)
}

var _ ports.Scheduler = (*Loop)(nil)
