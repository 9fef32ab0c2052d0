package registration

import (
	"github.com/zjrosen/regform/internal/metrics"
	"github.com/zjrosen/regform/internal/observable"
	"github.com/zjrosen/regform/internal/password"
	"github.com/zjrosen/regform/internal/scheduler"
)

// Signal and stage names used for metrics and logging.
const (
	SignalUsernameValid  = "username_valid"
	SignalPasswordEmpty  = "password_empty"
	SignalPasswordEqual  = "password_equal"
	SignalPasswordLevel  = "password_level"
	SignalPasswordStatus = "password_status"
	SignalFormValid      = "form_valid"

	StageUsername         = "username"
	StagePasswordEmpty    = "password_empty"
	StagePasswordEquality = "password_equality"
	StageStrength         = "strength"
)

type credentials struct {
	password      string
	passwordAgain string
}

// Pipeline holds the derived streams of one session. Every stream is cold:
// each subscription gets its own debounce timers and dedupe state.
type Pipeline struct {
	UsernameValid  observable.Stream[bool]
	PasswordEmpty  observable.Stream[bool]
	PasswordEqual  observable.Stream[bool]
	Strength       observable.Stream[Strength]
	PasswordLevel  observable.Stream[password.Level]
	PasswordStatus observable.Stream[password.Status]
	FormValid      observable.Stream[bool]
}

// NewPipeline wires the combinators and aggregators over the input streams.
// m may be nil.
func NewPipeline(
	username, pw, pwAgain observable.Stream[string],
	cfg Config,
	sched scheduler.Scheduler,
	m *metrics.Metrics,
) Pipeline {
	stage := func(name string, src observable.Stream[string]) observable.Stream[string] {
		return observable.Tap(src, func(string) { m.Emitted(name) })
	}
	recompute := func(name string) func(any) {
		return func(any) { m.Recomputed(name) }
	}

	usernameIn := stage(StageUsername,
		observable.Dedupe(observable.Debounce(username, cfg.Username, sched)))
	emptyIn := stage(StagePasswordEmpty,
		observable.Dedupe(observable.Debounce(pw, cfg.PasswordEmpty, sched)))
	strengthIn := stage(StageStrength,
		observable.Dedupe(observable.Debounce(pw, cfg.Strength, sched)))

	// Equality reacts to either field; rewriting the same pair is a duplicate.
	pair := observable.CombineLatest2(pw, pwAgain, func(a, b string) credentials {
		return credentials{password: a, passwordAgain: b}
	})
	equalIn := observable.Tap(
		observable.Dedupe(observable.Debounce(pair, cfg.PasswordEquality, sched)),
		func(credentials) { m.Emitted(StagePasswordEquality) })

	usernameValid := observable.Map(usernameIn, IsUsernameValid)
	passwordEmpty := observable.Map(emptyIn, password.IsEmpty)
	passwordEqual := observable.Map(equalIn, func(c credentials) bool {
		return c.password == c.passwordAgain
	})
	strength := observable.Map(strengthIn, MeasureStrength)
	level := observable.Map(strength, func(s Strength) password.Level { return s.Level })

	p := Pipeline{
		UsernameValid: tapAny(usernameValid, recompute(SignalUsernameValid)),
		PasswordEmpty: tapAny(passwordEmpty, recompute(SignalPasswordEmpty)),
		PasswordEqual: tapAny(passwordEqual, recompute(SignalPasswordEqual)),
		Strength:      strength,
		PasswordLevel: tapAny(level, recompute(SignalPasswordLevel)),
	}

	p.PasswordStatus = tapAny(
		observable.CombineLatest3(p.PasswordEmpty, p.PasswordEqual, p.PasswordLevel, password.Combine),
		recompute(SignalPasswordStatus),
	)
	p.FormValid = tapAny(
		observable.CombineLatest2(p.UsernameValid, p.PasswordStatus, func(u bool, s password.Status) bool {
			return u && s == password.StatusValid
		}),
		recompute(SignalFormValid),
	)

	return p
}

func tapAny[T any](src observable.Stream[T], fn func(any)) observable.Stream[T] {
	return observable.Tap(src, func(v T) { fn(v) })
}
