package registration

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/metrics"
	"github.com/zjrosen/regform/internal/observable"
	"github.com/zjrosen/regform/internal/password"
	"github.com/zjrosen/regform/internal/pubsub"
	"github.com/zjrosen/regform/internal/scheduler"
)

// Output names one observable output of a session.
type Output string

const (
	OutputUsernameMessage Output = "username_message"
	OutputPasswordMessage Output = "password_message"
	OutputPasswordLevel   Output = "password_level"
	OutputIsValid         Output = "is_valid"
)

// Change is published whenever an output write alters the form state.
type Change struct {
	SessionID string
	Output    Output
	State     FormState
}

// Outputs are the session's output cells. They may only be read or
// subscribed to from the session's scheduler context.
type Outputs struct {
	UsernameMessage      *observable.Cell[string]
	PasswordMessage      *observable.Cell[string]
	PasswordLevelMessage *observable.Cell[string]
	PasswordLevelColor   *observable.Cell[password.Color]
	IsValid              *observable.Cell[bool]
}

// Option configures a Session.
type Option func(*Session)

// WithMetrics reports stage emissions and recomputations into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTracer records a span for every output write.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// syncRunner is implemented by schedulers that can run a callback and wait
// for it, such as scheduler.Loop.
type syncRunner interface {
	Do(fn func()) bool
}

// Session is one registration attempt: three input cells, the derived
// pipeline and the projected outputs.
//
// Setters and State are safe to call from any goroutine. Pipeline work runs
// on the scheduler passed to New.
type Session struct {
	id      string
	sched   scheduler.Scheduler
	cfg     Config
	metrics *metrics.Metrics
	tracer  trace.Tracer

	username      *observable.Cell[string]
	password      *observable.Cell[string]
	passwordAgain *observable.Cell[string]
	outputs       Outputs
	pipeline      Pipeline
	cancels       []func()

	broker *pubsub.Broker[Change]

	mu     sync.RWMutex
	inputs Fields
	state  FormState

	closed atomic.Bool
}

// New creates a session with the given initial inputs and starts its
// pipeline on sched.
func New(sched scheduler.Scheduler, initial Fields, cfg Config, opts ...Option) *Session {
	s := &Session{
		id:            uuid.NewString(),
		sched:         sched,
		cfg:           cfg,
		tracer:        noop.NewTracerProvider().Tracer("regform"),
		username:      observable.NewCell(initial.Username),
		password:      observable.NewCell(initial.Password),
		passwordAgain: observable.NewCell(initial.PasswordAgain),
		outputs: Outputs{
			UsernameMessage:      observable.NewCell(""),
			PasswordMessage:      observable.NewCell(""),
			PasswordLevelMessage: observable.NewCell(""),
			PasswordLevelColor:   observable.NewCell(password.ColorNone),
			IsValid:              observable.NewCell(false),
		},
		broker: pubsub.NewBroker[Change](),
		inputs: initial,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pipeline = NewPipeline(s.username, s.password, s.passwordAgain, cfg, sched, s.metrics)
	s.metrics.SessionOpened()

	log.Info(log.CatSession, "session created",
		"id", s.id,
		"username_debounce", cfg.Username,
		"password_empty_debounce", cfg.PasswordEmpty,
		"password_equality_debounce", cfg.PasswordEquality,
		"strength_debounce", cfg.Strength)

	sched.Post(s.start)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Config returns the debounce configuration the session was created with.
func (s *Session) Config() Config {
	return s.cfg
}

// Outputs returns the output cells.
func (s *Session) Outputs() Outputs {
	return s.outputs
}

// Pipeline returns the session's derived streams.
func (s *Session) Pipeline() Pipeline {
	return s.pipeline
}

// SetUsername writes the username input.
func (s *Session) SetUsername(v string) {
	s.write(func(f *Fields) { f.Username = v }, s.username, v)
}

// SetPassword writes the password input.
func (s *Session) SetPassword(v string) {
	s.write(func(f *Fields) { f.Password = v }, s.password, v)
}

// SetPasswordAgain writes the password confirmation input.
func (s *Session) SetPasswordAgain(v string) {
	s.write(func(f *Fields) { f.PasswordAgain = v }, s.passwordAgain, v)
}

// SetFields writes all three inputs in order username, password,
// passwordAgain.
func (s *Session) SetFields(f Fields) {
	s.SetUsername(f.Username)
	s.SetPassword(f.Password)
	s.SetPasswordAgain(f.PasswordAgain)
}

// Fields returns the latest written inputs.
func (s *Session) Fields() Fields {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputs
}

// State returns a snapshot of the projected outputs.
func (s *Session) State() FormState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a channel of output changes. The channel is closed when
// ctx is cancelled or the session is closed.
func (s *Session) Subscribe(ctx context.Context) <-chan pubsub.Event[Change] {
	return s.broker.Subscribe(ctx)
}

// Broker exposes the change broker for listeners such as
// pubsub.NewContinuousListener.
func (s *Session) Broker() *pubsub.Broker[Change] {
	return s.broker
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Close cancels pending debounce timers, detaches all subscriptions and
// closes the change broker. It is idempotent. When the scheduler supports
// waiting, Close returns after the teardown ran; it must then not be called
// from the scheduler's own goroutine.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}

	if r, ok := s.sched.(syncRunner); ok {
		r.Do(s.stop)
	} else {
		s.sched.Post(s.stop)
	}

	s.broker.Publish(pubsub.ClosedEvent, Change{SessionID: s.id, State: s.State()})
	s.broker.Close()
	s.metrics.SessionClosed()

	log.Info(log.CatSession, "session closed", "id", s.id)
}

func (s *Session) write(update func(*Fields), cell *observable.Cell[string], v string) {
	if s.closed.Load() {
		return
	}

	s.mu.Lock()
	update(&s.inputs)
	s.mu.Unlock()

	s.sched.Post(func() {
		if s.closed.Load() {
			return
		}
		cell.Set(v)
	})
}

func (s *Session) start() {
	if s.closed.Load() {
		return
	}
	s.cancels = newProjector(s).attach(s.pipeline)
}

func (s *Session) stop() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}
