package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// ListenCmd turns the next event on ch into a tea.Msg. The command yields
// nil once ctx is done or ch is closed, which ends the listen chain.
func ListenCmd[T any](ctx context.Context, ch <-chan Event[T]) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			return event
		}
	}
}

// ContinuousListener feeds a Bubble Tea program from one subscription. The
// form uses one for registration.Change events from its session and,
// with --debug, another for log lines. Update re-arms it by returning
// Listen after each event it handles.
type ContinuousListener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewContinuousListener subscribes to src for the lifetime of ctx.
func NewContinuousListener[T any](ctx context.Context, src Subscriber[T]) *ContinuousListener[T] {
	return &ContinuousListener[T]{
		ctx: ctx,
		ch:  src.Subscribe(ctx),
	}
}

// Listen waits for the next event. A nil listener yields a nil command so
// optional feeds can be batched unconditionally.
func (l *ContinuousListener[T]) Listen() tea.Cmd {
	if l == nil {
		return nil
	}
	return ListenCmd(l.ctx, l.ch)
}
