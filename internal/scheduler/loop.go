package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a Scheduler backed by a single goroutine.
// It plays the role of a UI main loop: callbacks never run in parallel.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	timers  map[*loopTimer]struct{}
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	closed  bool
}

// NewLoop creates a loop and starts its goroutine.
func NewLoop() *Loop {
	l := &Loop{
		timers:  make(map[*loopTimer]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post enqueues fn. Posting to a closed loop is a no-op.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop and waits for it to finish.
// Returns false if the loop is closed before fn ran.
// Must not be called from the loop goroutine.
func (l *Loop) Do(fn func()) bool {
	ran := make(chan struct{})
	l.Post(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
		return true
	case <-l.stopped:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// AfterFunc schedules fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{loop: l}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		lt.fired.Store(true)
		return lt
	}
	lt.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.fired.Swap(true) {
				return
			}
			l.forget(lt)
			fn()
		})
	})
	l.timers[lt] = struct{}{}
	l.mu.Unlock()
	return lt
}

// Close stops the loop goroutine and every outstanding timer.
// Queued callbacks that have not started are dropped. Close is idempotent
// and waits for the goroutine to exit.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.stopped
		return
	}
	l.closed = true
	l.queue = nil
	timers := l.timers
	l.timers = nil
	l.mu.Unlock()

	for lt := range timers {
		lt.fired.Store(true)
		if lt.timer != nil {
			lt.timer.Stop()
		}
	}

	close(l.done)
	<-l.stopped
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if l.closed || len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			fn()
		}
	}
}

func (l *Loop) forget(lt *loopTimer) {
	l.mu.Lock()
	delete(l.timers, lt)
	l.mu.Unlock()
}

type loopTimer struct {
	loop  *Loop
	timer *time.Timer
	fired atomic.Bool
}

func (lt *loopTimer) Stop() bool {
	if lt.fired.Swap(true) {
		return false
	}
	if lt.timer != nil {
		lt.timer.Stop()
	}
	lt.loop.forget(lt)
	return true
}
