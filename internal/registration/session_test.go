package registration

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
	"pgregory.net/rapid"

	"github.com/zjrosen/regform/internal/metrics"
	"github.com/zjrosen/regform/internal/password"
	"github.com/zjrosen/regform/internal/pubsub"
	"github.com/zjrosen/regform/internal/scheduler"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newManualSession(t *testing.T, initial Fields, cfg Config, opts ...Option) (*Session, *scheduler.Manual) {
	t.Helper()
	sched := scheduler.NewManual(epoch)
	s := New(sched, initial, cfg, opts...)
	t.Cleanup(s.Close)
	return s, sched
}

// record subscribes to a cell on the manual scheduler and returns every value
// written after subscription.
func record[T any](sub func(func(T)) func()) *[]T {
	var got []T
	first := true
	sub(func(v T) {
		if first {
			first = false
			return
		}
		got = append(got, v)
	})
	return &got
}

func TestSession_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		check  func(t *testing.T, st FormState)
	}{
		{
			name:   "short username",
			fields: Fields{Username: "ab", Password: "Abc123", PasswordAgain: "Abc123"},
			check: func(t *testing.T, st FormState) {
				require.NotEmpty(t, st.UsernameMessage)
				require.False(t, st.IsValid)
			},
		},
		{
			name:   "very strong",
			fields: Fields{Username: "alice", Password: "AAAaaa999999", PasswordAgain: "AAAaaa999999"},
			check: func(t *testing.T, st FormState) {
				require.Equal(t, "veryStrong", st.PasswordLevelMessage)
				require.Equal(t, password.ColorGreen, st.PasswordLevelColor)
				require.Empty(t, st.PasswordMessage)
				require.Empty(t, st.UsernameMessage)
				require.True(t, st.IsValid)
			},
		},
		{
			name:   "mismatch",
			fields: Fields{Username: "alice", Password: "abc", PasswordAgain: "xyz"},
			check: func(t *testing.T, st FormState) {
				require.Equal(t, "Password don't match", st.PasswordMessage)
				require.False(t, st.IsValid)
			},
		},
		{
			name:   "empty",
			fields: Fields{Username: "alice"},
			check: func(t *testing.T, st FormState) {
				require.Equal(t, "Password is empty", st.PasswordMessage)
				require.Equal(t, password.ColorNone, st.PasswordLevelColor)
				require.False(t, st.IsValid)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sched := newManualSession(t, Fields{}, DefaultConfig())
			s.SetFields(tt.fields)
			sched.Settle()

			tt.check(t, s.State())
			require.Equal(t, Evaluate(tt.fields), s.State())
		})
	}
}

func TestSession_OutputsWaitForQuietPeriod(t *testing.T) {
	s, sched := newManualSession(t, Fields{Username: "alice", Password: "abc", PasswordAgain: "abc"}, DefaultConfig())

	require.Equal(t, FormState{}, s.State(), "nothing is derived before the first quiet period")

	sched.Advance(200 * time.Millisecond)
	st := s.State()
	require.Equal(t, "weak", st.PasswordLevelMessage, "strength uses the short quiet period")
	require.Empty(t, st.UsernameMessage)
	require.Empty(t, st.PasswordMessage, "status waits for the empty check")

	sched.Advance(300 * time.Millisecond)
	require.Equal(t, "Password not strong enough", s.State().PasswordMessage)
}

func TestSession_DebounceCollapsesBurst(t *testing.T) {
	s, sched := newManualSession(t, Fields{Username: "alice"}, DefaultConfig())
	sched.Settle()

	writes := record(s.Outputs().UsernameMessage.Subscribe)
	for _, v := range []string{"a", "ab", "abc"} {
		s.SetUsername(v)
		sched.Advance(100 * time.Millisecond)
	}
	require.Empty(t, *writes, "no emission inside the quiet period")

	sched.Settle()
	require.Equal(t, []string{UsernameMessage}, *writes, "one emission carrying the last value")
	require.Equal(t, "abc", s.Fields().Username)
}

func TestSession_DedupeSuppressesRecomputation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	fields := Fields{Username: "alice", Password: "AAAaaa999999", PasswordAgain: "AAAaaa999999"}
	s, sched := newManualSession(t, fields, DefaultConfig(), WithMetrics(m))
	sched.Settle()

	usernameWrites := record(s.Outputs().UsernameMessage.Subscribe)
	levelWrites := record(s.Outputs().PasswordLevelMessage.Subscribe)
	before := map[string]float64{}
	for _, sig := range []string{SignalUsernameValid, SignalPasswordLevel, SignalPasswordEmpty} {
		before[sig] = testutil.ToFloat64(m.Recomputations.WithLabelValues(sig))
	}

	s.SetUsername("alice")
	s.SetPassword("AAAaaa999999")
	sched.Settle()

	// A burst that ends on the previous value is a duplicate too
	s.SetUsername("alicex")
	s.SetUsername("alice")
	sched.Settle()

	require.Empty(t, *usernameWrites)
	require.Empty(t, *levelWrites)
	for sig, v := range before {
		require.Equal(t, v, testutil.ToFloat64(m.Recomputations.WithLabelValues(sig)), sig)
	}
}

func TestSession_RewritingSamePasswordDoesNotRecompute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	fields := Fields{Username: "alice", Password: "AAAaaa999999", PasswordAgain: "AAAaaa999999"}
	s, sched := newManualSession(t, fields, DefaultConfig(), WithMetrics(m))
	sched.Settle()

	messageWrites := record(s.Outputs().PasswordMessage.Subscribe)
	validWrites := record(s.Outputs().IsValid.Subscribe)
	signals := []string{SignalPasswordEqual, SignalPasswordStatus, SignalFormValid}
	before := map[string]float64{}
	for _, sig := range signals {
		before[sig] = testutil.ToFloat64(m.Recomputations.WithLabelValues(sig))
	}

	s.SetPassword("AAAaaa999999")
	sched.Settle()
	s.SetPasswordAgain("AAAaaa999999")
	sched.Settle()

	require.Empty(t, *messageWrites)
	require.Empty(t, *validWrites)
	for _, sig := range signals {
		require.Equal(t, before[sig], testutil.ToFloat64(m.Recomputations.WithLabelValues(sig)), sig)
	}

	// A real change of either field still reaches the equality check
	s.SetPasswordAgain("AAAaaa99999")
	sched.Settle()
	require.Equal(t, []string{"Password don't match"}, *messageWrites)
	require.Equal(t, []bool{false}, *validWrites)
}

func TestSession_NoDebounceIsImmediate(t *testing.T) {
	s, sched := newManualSession(t, Fields{}, NoDebounce())
	require.Equal(t, 0, sched.Pending())

	s.SetUsername("alice")
	s.SetPassword("AAAaaa999999")
	require.Equal(t, "Password don't match", s.State().PasswordMessage)

	s.SetPasswordAgain("AAAaaa999999")
	require.True(t, s.State().IsValid)
	require.Equal(t, 0, sched.Pending())
}

func TestSession_CombineLatestDoesNotCoalesce(t *testing.T) {
	s, _ := newManualSession(t, Fields{Username: "alice"}, NoDebounce())

	writes := record(s.Outputs().IsValid.Subscribe)
	s.SetPassword("AAAaaa999999")
	s.SetPasswordAgain("AAAaaa999999")

	// The password write reaches the form through three sub-checks and each
	// one recomputes it; the confirmation recomputes it once more.
	require.Equal(t, []bool{false, false, false, true}, *writes)
}

func TestSession_SubscribeReceivesChanges(t *testing.T) {
	s, sched := newManualSession(t, Fields{}, NoDebounce())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Subscribe(ctx)

	s.SetUsername("alice")
	sched.Settle()

	select {
	case ev := <-ch:
		require.Equal(t, pubsub.UpdatedEvent, ev.Type)
		require.Equal(t, OutputUsernameMessage, ev.Payload.Output)
		require.Equal(t, s.ID(), ev.Payload.SessionID)
		require.Empty(t, ev.Payload.State.UsernameMessage)
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for change")
	}
}

func TestSession_Close(t *testing.T) {
	s, sched := newManualSession(t, Fields{Username: "alice"}, DefaultConfig())
	require.Positive(t, sched.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Subscribe(ctx)

	s.Close()
	s.Close()
	require.True(t, s.Closed())
	require.Equal(t, 0, sched.Pending(), "pending debounce timers are cancelled")
	require.Equal(t, 0, s.username.Subscribers())
	require.Equal(t, 0, s.password.Subscribers())
	require.Equal(t, 0, s.passwordAgain.Subscribers())

	s.SetUsername("ab")
	sched.Settle()
	require.Equal(t, FormState{}, s.State())
	require.Equal(t, "alice", s.Fields().Username, "writes after close are ignored")

	ev, ok := <-ch
	require.True(t, ok)
	require.Equal(t, pubsub.ClosedEvent, ev.Type)
	_, ok = <-ch
	require.False(t, ok, "channel closes with the session")
}

func TestSession_TracesProjection(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	s, _ := newManualSession(t, Fields{Username: "alice"}, NoDebounce(),
		WithTracer(provider.Tracer("test")), WithID("session-1"))
	require.Equal(t, "session-1", s.ID())

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	for _, span := range spans {
		require.Equal(t, "registration.project", span.Name())
		var sessionID string
		for _, kv := range span.Attributes() {
			if kv.Key == "session.id" {
				sessionID = kv.Value.AsString()
			}
		}
		require.Equal(t, "session-1", sessionID)
	}
}

func TestSession_SettledStateMatchesEvaluate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		gen := rapid.StringMatching(`[ a-zA-Z0-9]{0,14}`)
		sched := scheduler.NewManual(epoch)
		s := New(sched, Fields{}, DefaultConfig())
		defer s.Close()

		var last Fields
		steps := rapid.IntRange(1, 8).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(rt, "field") {
			case 0:
				last.Username = gen.Draw(rt, "username")
				s.SetUsername(last.Username)
			case 1:
				last.Password = gen.Draw(rt, "password")
				s.SetPassword(last.Password)
			default:
				last.PasswordAgain = gen.Draw(rt, "passwordAgain")
				s.SetPasswordAgain(last.PasswordAgain)
			}
			sched.Advance(time.Duration(rapid.IntRange(0, 600).Draw(rt, "wait")) * time.Millisecond)
		}
		sched.Settle()

		st := s.State()
		require.Equal(rt, Evaluate(last), st)
		require.Equal(rt, IsUsernameValid(last.Username) &&
			password.Check(last.Password, last.PasswordAgain) == password.StatusValid, st.IsValid)
		require.Equal(rt, st.UsernameMessage == "", IsUsernameValid(last.Username))
	})
}

func TestSession_LoopLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := scheduler.NewLoop()
	defer loop.Close()

	cfg := Config{
		Username:         20 * time.Millisecond,
		PasswordEmpty:    20 * time.Millisecond,
		PasswordEquality: 10 * time.Millisecond,
		Strength:         10 * time.Millisecond,
	}
	s := New(loop, Fields{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)

	s.SetFields(Fields{Username: "alice", Password: "AAAaaa999999", PasswordAgain: "AAAaaa999999"})

	require.Eventually(t, func() bool { return s.State().IsValid }, time.Second, 5*time.Millisecond)
	require.NotEmpty(t, ch)

	// Pending edits are dropped on close
	s.SetUsername("ab")
	s.Close()
	time.Sleep(50 * time.Millisecond)
	require.True(t, s.State().IsValid)

	cancel()
	loop.Close()
	time.Sleep(10 * time.Millisecond)
}
