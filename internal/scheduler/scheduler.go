// Package scheduler provides the single delivery context that reactive
// pipelines run on.
//
// Every callback handed to a Scheduler runs on that scheduler's context, one
// at a time, in the order it was posted. Delayed callbacks are posted to the
// same context once their delay elapses.
package scheduler

import "time"

// Timer is a pending delayed callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Scheduler runs callbacks on one designated context.
type Scheduler interface {
	// Post enqueues fn to run on the delivery context. Never blocks.
	Post(fn func())

	// AfterFunc posts fn to the delivery context once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}
