package ports

// Timer is a pending ScheduleOnce callback.
type Timer interface {
	// Cancel prevents the callback from running. It reports whether the
	// callback was still pending.
	Cancel() bool
}

// Scheduler runs callbacks on a single goroutine.
type Scheduler interface {
	// ScheduleOnce runs fn once after delayMs milliseconds.
	ScheduleOnce(delayMs int64, fn func()) Timer

	// Post queues fn to run as soon as possible. Post is safe to call from
	// any goroutine.
	Post(fn func())
}
