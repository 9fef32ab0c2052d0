package prompt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/password"
	"github.com/zjrosen/regform/internal/registration"
	"github.com/zjrosen/regform/internal/scheduler"
)

// Result is the outcome of a completed prompt flow.
type Result struct {
	Fields registration.Fields
	State  registration.FormState
}

// Run asks for username, password and confirmation in order. Each answer is
// written into a session that runs without debouncing, so the state shown
// after every answer is already settled.
func Run(ctx context.Context, d Driver, initial registration.Fields, opts ...registration.Option) (Result, error) {
	sched := scheduler.NewManual(time.Now())
	defer sched.Close()

	s := registration.New(sched, initial, registration.NoDebounce(), opts...)
	defer s.Close()

	username, err := d.Input(ctx, InputConfig{
		Message:   "User name",
		Default:   initial.Username,
		Help:      fmt.Sprintf("At least %d characters.", registration.MinUsernameLength),
		Validator: validateUsername,
	})
	if err != nil {
		return Result{}, err
	}
	s.SetUsername(username)

	pw, err := d.Password(ctx, InputConfig{
		Message:   "Password",
		Help:      "7 to 23 characters; mix upper, lower case and digits for a stronger password.",
		Validator: validatePassword,
	})
	if err != nil {
		return Result{}, err
	}
	s.SetPassword(pw)

	if err := d.Info(ctx, "Strength: "+s.State().PasswordLevelMessage); err != nil {
		return Result{}, err
	}

	again, err := d.Password(ctx, InputConfig{
		Message: "Password again",
		Validator: func(v string) error {
			if v != pw {
				return errors.New(password.StatusNotMatch.Message())
			}
			return nil
		},
	})
	if err != nil {
		return Result{}, err
	}
	s.SetPasswordAgain(again)

	st := s.State()
	log.Debug(log.CatUI, "prompt finished", "id", s.ID(), "valid", st.IsValid)

	return Result{Fields: s.Fields(), State: st}, nil
}

func validateUsername(v string) error {
	if !registration.IsUsernameValid(v) {
		return errors.New(registration.UsernameMessage)
	}
	return nil
}

func validatePassword(v string) error {
	if password.IsEmpty(v) {
		return errors.New(password.StatusEmpty.Message())
	}
	if !password.Classify(v).Acceptable() {
		return errors.New(password.StatusNotStrongEnough.Message())
	}
	return nil
}
