// Package observable provides push-based value streams and the operators
// used to compose them into derived signals.
//
// Streams are cold: every Subscribe builds its own chain of operator state.
// Nothing here is safe for concurrent use; all subscriptions, sets and
// emissions are expected to happen on one scheduler context.
package observable

// Stream is a source of values over time.
type Stream[T any] interface {
	// Subscribe registers fn for every value the stream emits and returns a
	// function that detaches it. Calling the returned function more than
	// once is safe.
	Subscribe(fn func(T)) (cancel func())
}

// StreamFunc adapts a subscribe function to Stream.
type StreamFunc[T any] func(fn func(T)) func()

// Subscribe calls f.
func (f StreamFunc[T]) Subscribe(fn func(T)) func() {
	return f(fn)
}

// Cell holds a current value and notifies subscribers whenever it is set.
// New subscribers immediately receive the current value.
type Cell[T any] struct {
	value T
	subs  []*cellSub[T]
}

type cellSub[T any] struct {
	fn     func(T)
	active bool
}

// NewCell creates a cell holding v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	return c.value
}

// Set stores v and notifies every subscriber, even when v is unchanged.
func (c *Cell[T]) Set(v T) {
	c.value = v
	subs := append([]*cellSub[T](nil), c.subs...)
	for _, s := range subs {
		if s.active {
			s.fn(v)
		}
	}
}

// Subscribe delivers the current value to fn, then every later Set.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	s := &cellSub[T]{fn: fn, active: true}
	c.subs = append(c.subs, s)
	fn(c.value)

	return func() {
		if !s.active {
			return
		}
		s.active = false
		for i, other := range c.subs {
			if other == s {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
	}
}

// Subscribers returns the number of attached subscribers.
func (c *Cell[T]) Subscribers() int {
	return len(c.subs)
}
