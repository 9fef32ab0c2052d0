package registration

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/password"
	"github.com/zjrosen/regform/internal/pubsub"
	"github.com/zjrosen/regform/internal/tracing"
)

// projector is the only writer of a session's outputs. It runs entirely on
// the session's scheduler.
type projector struct {
	s *Session
}

func newProjector(s *Session) *projector {
	return &projector{s: s}
}

// attach subscribes to the pipeline and returns the cancel functions.
func (p *projector) attach(pl Pipeline) []func() {
	return []func(){
		pl.UsernameValid.Subscribe(p.usernameValid),
		pl.PasswordStatus.Subscribe(p.passwordStatus),
		pl.Strength.Subscribe(p.strength),
		pl.FormValid.Subscribe(p.formValid),
	}
}

func (p *projector) usernameValid(valid bool) {
	msg := UsernameMessageFor(valid)
	p.apply(OutputUsernameMessage, func(st *FormState) {
		st.UsernameMessage = msg
	}, func() {
		p.s.outputs.UsernameMessage.Set(msg)
	}, attribute.Bool(tracing.AttrUsernameValid, valid))
}

func (p *projector) passwordStatus(status password.Status) {
	msg := status.Message()
	p.apply(OutputPasswordMessage, func(st *FormState) {
		st.PasswordMessage = msg
	}, func() {
		p.s.outputs.PasswordMessage.Set(msg)
	}, attribute.String(tracing.AttrStatus, status.String()))
}

func (p *projector) strength(st Strength) {
	name := st.Level.String()
	p.apply(OutputPasswordLevel, func(fs *FormState) {
		fs.PasswordLevelMessage = name
		fs.PasswordLevelColor = st.Color
	}, func() {
		p.s.outputs.PasswordLevelMessage.Set(name)
		p.s.outputs.PasswordLevelColor.Set(st.Color)
	}, attribute.String(tracing.AttrLevel, name))
}

func (p *projector) formValid(valid bool) {
	p.apply(OutputIsValid, func(st *FormState) {
		st.IsValid = valid
	}, func() {
		p.s.outputs.IsValid.Set(valid)
	}, attribute.Bool(tracing.AttrFormValid, valid))
}

// apply updates the snapshot, writes the output cells and publishes a
// Change when the snapshot differs from before.
func (p *projector) apply(out Output, mutate func(*FormState), write func(), attrs ...attribute.KeyValue) {
	s := p.s
	if s.closed.Load() {
		return
	}

	_, span := s.tracer.Start(context.Background(), tracing.SpanProject)
	defer span.End()
	span.SetAttributes(append(attrs,
		attribute.String(tracing.AttrSessionID, s.id),
		attribute.String(tracing.AttrOutput, string(out)),
	)...)

	s.mu.Lock()
	before := s.state
	mutate(&s.state)
	after := s.state
	s.mu.Unlock()

	write()

	if before == after {
		return
	}

	log.Debug(log.CatPipeline, "output changed",
		"id", s.id,
		"output", out,
		"valid", after.IsValid)
	s.broker.Publish(pubsub.UpdatedEvent, Change{SessionID: s.id, Output: out, State: after})
}
