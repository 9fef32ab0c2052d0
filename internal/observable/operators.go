package observable

import (
	"time"

	"github.com/zjrosen/regform/internal/scheduler"
)

// Map transforms every value of src with fn.
func Map[T, U any](src Stream[T], fn func(T) U) Stream[U] {
	return StreamFunc[U](func(out func(U)) func() {
		return src.Subscribe(func(v T) {
			out(fn(v))
		})
	})
}

// Tap calls fn for every value of src before passing it on.
func Tap[T any](src Stream[T], fn func(T)) Stream[T] {
	return StreamFunc[T](func(out func(T)) func() {
		return src.Subscribe(func(v T) {
			fn(v)
			out(v)
		})
	})
}

// Dedupe drops values equal to the value emitted just before them.
// The first value always passes.
func Dedupe[T comparable](src Stream[T]) Stream[T] {
	return DedupeFunc(src, func(a, b T) bool { return a == b })
}

// DedupeFunc is Dedupe with a caller supplied equality.
func DedupeFunc[T any](src Stream[T], equal func(a, b T) bool) Stream[T] {
	return StreamFunc[T](func(out func(T)) func() {
		var (
			last T
			seen bool
		)
		return src.Subscribe(func(v T) {
			if seen && equal(last, v) {
				return
			}
			last, seen = v, true
			out(v)
		})
	})
}

// Debounce emits the latest value of src once no new value has arrived for
// d. Each new value cancels the pending emission and schedules a fresh one.
// A non-positive d returns src unchanged.
func Debounce[T any](src Stream[T], d time.Duration, sched scheduler.Scheduler) Stream[T] {
	if d <= 0 {
		return src
	}
	return StreamFunc[T](func(out func(T)) func() {
		var (
			pending   scheduler.Timer
			cancelled bool
		)
		cancelUp := src.Subscribe(func(v T) {
			if cancelled {
				return
			}
			if pending != nil {
				pending.Stop()
			}
			pending = sched.AfterFunc(d, func() {
				pending = nil
				if !cancelled {
					out(v)
				}
			})
		})

		return func() {
			if cancelled {
				return
			}
			cancelled = true
			cancelUp()
			if pending != nil {
				pending.Stop()
				pending = nil
			}
		}
	})
}

// CombineLatest2 emits fn of the latest values of a and b whenever either
// emits, once both have emitted at least once.
func CombineLatest2[A, B, R any](a Stream[A], b Stream[B], fn func(A, B) R) Stream[R] {
	return StreamFunc[R](func(out func(R)) func() {
		var (
			va         A
			vb         B
			hasA, hasB bool
		)
		emit := func() {
			if hasA && hasB {
				out(fn(va, vb))
			}
		}
		cancelA := a.Subscribe(func(v A) {
			va, hasA = v, true
			emit()
		})
		cancelB := b.Subscribe(func(v B) {
			vb, hasB = v, true
			emit()
		})
		return func() {
			cancelA()
			cancelB()
		}
	})
}

// CombineLatest3 is CombineLatest2 over three streams.
func CombineLatest3[A, B, C, R any](a Stream[A], b Stream[B], c Stream[C], fn func(A, B, C) R) Stream[R] {
	return StreamFunc[R](func(out func(R)) func() {
		var (
			va               A
			vb               B
			vc               C
			hasA, hasB, hasC bool
		)
		emit := func() {
			if hasA && hasB && hasC {
				out(fn(va, vb, vc))
			}
		}
		cancelA := a.Subscribe(func(v A) {
			va, hasA = v, true
			emit()
		})
		cancelB := b.Subscribe(func(v B) {
			vb, hasB = v, true
			emit()
		})
		cancelC := c.Subscribe(func(v C) {
			vc, hasC = v, true
			emit()
		})
		return func() {
			cancelA()
			cancelB()
			cancelC()
		}
	})
}
