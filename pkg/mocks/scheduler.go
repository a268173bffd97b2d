package mocks

import (
	"sync"
	"time"

	"github.com/user/framepace/pkg/ports"
)

// Scheduler is a mock implementation of ports.Scheduler driven by virtual
// time. Callbacks run on the test goroutine when it calls RunPending,
// FireNext or RunUntil.
type Scheduler struct {
	mu     sync.Mutex
	now    int64
	seq    int
	timers []*Timer
	posted []func()
	delays []int64
	signal chan struct{}
}

// Timer is a pending callback of the mock Scheduler.
type Timer struct {
	s    *Scheduler
	at   int64
	seq  int
	fn   func()
	done bool
}

// NewScheduler creates a mock Scheduler at virtual time 0.
func NewScheduler() *Scheduler {
	return &Scheduler{signal: make(chan struct{}, 1)}
}

func (m *Scheduler) Post(fn func()) {
	m.mu.Lock()
	m.posted = append(m.posted, fn)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *Scheduler) ScheduleOnce(delayMs int64, fn func()) ports.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if delayMs < 0 {
		delayMs = 0
	}
	m.seq++
	t := &Timer{s: m, at: m.now + delayMs, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	m.delays = append(m.delays, delayMs)
	return t
}

func (t *Timer) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Now returns the virtual time in milliseconds.
func (m *Scheduler) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Delays returns the delay of every ScheduleOnce call so far.
func (m *Scheduler) Delays() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]int64, len(m.delays))
	copy(result, m.delays)
	return result
}

// PendingTimers returns the number of timers that have neither fired nor
// been cancelled.
func (m *Scheduler) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// RunPending runs posted callbacks until none are left and returns how
// many ran.
func (m *Scheduler) RunPending() int {
	ran := 0
	for {
		m.mu.Lock()
		fns := m.posted
		m.posted = nil
		m.mu.Unlock()

		if len(fns) == 0 {
			return ran
		}
		for _, fn := range fns {
			fn()
			ran++
		}
	}
}

// FireNext advances virtual time to the earliest pending timer, runs it
// and then any posted callbacks. It reports whether a timer fired.
func (m *Scheduler) FireNext() bool {
	m.mu.Lock()
	var next *Timer
	for _, t := range m.timers {
		if t.done {
			continue
		}
		if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
			next = t
		}
	}
	if next == nil {
		m.mu.Unlock()
		return false
	}
	next.done = true
	if next.at > m.now {
		m.now = next.at
	}
	m.compact()
	m.mu.Unlock()

	next.fn()
	m.RunPending()
	return true
}

// WaitPosted blocks until a callback is posted or the timeout elapses.
func (m *Scheduler) WaitPosted(timeout time.Duration) bool {
	m.mu.Lock()
	if len(m.posted) > 0 {
		m.mu.Unlock()
		return true
	}
	m.mu.Unlock()

	select {
	case <-m.signal:
		return true
	case <-time.After(timeout):
		return false
	}
}

// RunUntil drives the scheduler until cond holds. Posted callbacks run
// first; when there are none, the next timer fires; when there are no
// timers either, it waits for other goroutines to post.
func (m *Scheduler) RunUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		m.RunPending()
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		if m.FireNext() {
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		m.WaitPosted(remaining)
	}
}

// compact drops finished timers. It must be called with mu held.
func (m *Scheduler) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	m.timers = live
}

var _ ports.Scheduler = (*Scheduler)(nil)
