package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by a virtual clock.
//
// Posted callbacks run synchronously on the calling goroutine; callbacks
// posted while another callback is running are queued and run afterwards,
// so callbacks never nest. Delayed callbacks only fire when Advance moves
// the clock past their deadline.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	timers  []*manualTimer
	queue   []func()
	running bool
	closed  bool
}

// NewManual creates a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Post runs fn now, or after the callback currently running.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, fn)
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.drain()
}

// AfterFunc schedules fn for now+d. A non-positive d posts fn immediately.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d <= 0 {
		t := &manualTimer{m: m, fired: true}
		m.Post(fn)
		return t
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{m: m, when: m.now.Add(d), seq: m.seq, fn: fn}
	if m.closed {
		t.fired = true
		return t
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing due timers in deadline order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.popDue(target)
		if t == nil {
			break
		}
		m.Post(t.fn)
	}

	m.mu.Lock()
	if target.After(m.now) {
		m.now = target
	}
	m.mu.Unlock()
}

// Settle advances the clock until no timers are pending.
func (m *Manual) Settle() {
	for {
		m.mu.Lock()
		if len(m.timers) == 0 {
			m.mu.Unlock()
			return
		}
		last := m.timers[0].when
		for _, t := range m.timers[1:] {
			if t.when.After(last) {
				last = t.when
			}
		}
		d := last.Sub(m.now)
		m.mu.Unlock()

		m.Advance(d)
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Close drops pending timers and queued callbacks; later posts are ignored.
func (m *Manual) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, t := range m.timers {
		t.fired = true
	}
	m.timers = nil
	m.queue = nil
}

func (m *Manual) drain() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.running = false
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.mu.Unlock()

		fn()
	}
}

func (m *Manual) popDue(target time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].when.Equal(m.timers[j].when) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].when.Before(m.timers[j].when)
	})

	t := m.timers[0]
	if t.when.After(target) {
		return nil
	}
	m.timers = m.timers[1:]
	t.fired = true
	if t.when.After(m.now) {
		m.now = t.when
	}
	return t
}

func (m *Manual) remove(t *manualTimer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.fired {
		return false
	}
	t.fired = true
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			break
		}
	}
	return true
}

type manualTimer struct {
	m     *Manual
	when  time.Time
	seq   uint64
	fn    func()
	fired bool
}

func (t *manualTimer) Stop() bool {
	return t.m.remove(t)
}
