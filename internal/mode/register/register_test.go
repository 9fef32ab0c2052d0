package register

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/pubsub"
	"github.com/zjrosen/regform/internal/registration"
	"github.com/zjrosen/regform/internal/scheduler"
)

// newTestModel creates a form over a session with no debouncing on a manual
// scheduler, so every edit settles synchronously.
func newTestModel(t *testing.T) (Model, *registration.Session) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	sched := scheduler.NewManual(time.Unix(0, 0))
	s := registration.New(sched, registration.Fields{}, registration.NoDebounce())
	t.Cleanup(func() {
		s.Close()
		sched.Close()
		cancel()
	})

	return New(ctx, s, DefaultOptions()), s
}

func updateModel(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	result, _ := m.Update(msg)
	return result.(Model)
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestModel_TypingWritesSession(t *testing.T) {
	m, s := newTestModel(t)

	m = typeText(t, m, "alice")
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "AAAaaa999999")
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, FieldPasswordAgain, m.Focus())
	m = typeText(t, m, "AAAaaa999999")

	require.Equal(t, registration.Fields{
		Username:      "alice",
		Password:      "AAAaaa999999",
		PasswordAgain: "AAAaaa999999",
	}, s.Fields())

	st := s.State()
	require.True(t, st.IsValid)
	require.Equal(t, "veryStrong", st.PasswordLevelMessage)
}

func TestModel_ChangeEventUpdatesState(t *testing.T) {
	m, s := newTestModel(t)

	want := registration.FormState{UsernameMessage: registration.UsernameMessage, PasswordLevelMessage: "weak"}
	m = updateModel(t, m, pubsub.Event[registration.Change]{
		Type:    pubsub.UpdatedEvent,
		Payload: registration.Change{SessionID: s.ID(), Output: registration.OutputUsernameMessage, State: want},
	})

	require.Equal(t, want, m.State())
	require.Contains(t, m.View(), registration.UsernameMessage)
}

func TestModel_ClosedEvent(t *testing.T) {
	m, _ := newTestModel(t)

	m = updateModel(t, m, pubsub.Event[registration.Change]{Type: pubsub.ClosedEvent})
	require.True(t, m.SessionClosed())
}

func TestModel_FocusWraps(t *testing.T) {
	m, _ := newTestModel(t)

	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, FieldPasswordAgain, m.Focus())

	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, FieldUsername, m.Focus())
}

func TestModel_SubmitRequiresValidState(t *testing.T) {
	m, _ := newTestModel(t)

	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(Model)
	require.False(t, m.Submitted())
	require.Nil(t, cmd)

	m = updateModel(t, m, pubsub.Event[registration.Change]{
		Type:    pubsub.UpdatedEvent,
		Payload: registration.Change{State: registration.FormState{IsValid: true}},
	})
	result, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(Model)
	require.True(t, m.Submitted())
	require.NotNil(t, cmd)
}

func TestModel_ToggleMask(t *testing.T) {
	m, _ := newTestModel(t)

	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "secret1")
	require.NotContains(t, m.View(), "secret1")

	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Contains(t, m.View(), "secret1")
}

func TestModel_LogFooter(t *testing.T) {
	cleanup := log.InitWriter(io.Discard)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewManual(time.Unix(0, 0))
	s := registration.New(sched, registration.Fields{}, registration.NoDebounce())
	defer sched.Close()
	defer s.Close()

	opts := DefaultOptions()
	opts.Logs = log.NewListener(ctx)
	require.NotNil(t, opts.Logs)
	m := New(ctx, s, opts)

	for i := 1; i <= 4; i++ {
		m = updateModel(t, m, log.LogEvent{
			Type:    pubsub.CreatedEvent,
			Payload: fmt.Sprintf("2026-01-01T00:00:00 [INFO] [ui] entry-%d\n", i),
		})
	}

	view := m.View()
	require.NotContains(t, view, "entry-1", "only the latest lines are kept")
	require.Contains(t, view, "entry-2")
	require.Contains(t, view, "entry-4")
}

func TestModel_LogEventsIgnoredWithoutFooter(t *testing.T) {
	m, _ := newTestModel(t)

	m = updateModel(t, m, log.LogEvent{Type: pubsub.CreatedEvent, Payload: "entry-1\n"})
	require.NotContains(t, m.View(), "entry-1")
}

func TestModel_Program(t *testing.T) {
	loop := scheduler.NewLoop()
	defer loop.Close()

	s := registration.New(loop, registration.Fields{}, registration.NoDebounce())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm := teatest.NewTestModel(t, New(ctx, s, DefaultOptions()), teatest.WithInitialTermSize(80, 40))

	tm.Type("alice")
	tm.Send(tea.KeyMsg{Type: tea.KeyTab})
	tm.Type("AAAaaa999999")
	tm.Send(tea.KeyMsg{Type: tea.KeyTab})
	tm.Type("AAAaaa999999")

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte(ReadyHint))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	final := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second)).(Model)
	require.True(t, final.Submitted())
	require.True(t, final.State().IsValid)
}
