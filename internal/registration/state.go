// Package registration derives the validation state of a registration form
// from its username, password and password confirmation inputs.
//
// A Session owns the three input cells and a pipeline of debounced,
// deduplicated streams feeding pure combinators. A single projector writes
// the results into observable output cells on the session's scheduler.
package registration

import (
	"strings"

	"github.com/zjrosen/regform/internal/password"
)

// MinUsernameLength is the minimum number of characters in a trimmed username.
const MinUsernameLength = 4

// UsernameMessage is shown while the username check fails.
const UsernameMessage = "User name must at least have 4 characters"

// Fields are the three form inputs.
type Fields struct {
	Username      string `yaml:"username" json:"username"`
	Password      string `yaml:"password" json:"password"`
	PasswordAgain string `yaml:"password_again" json:"password_again"`
}

// FormState is everything the presentation layer reads.
type FormState struct {
	UsernameMessage      string         `yaml:"username_message" json:"username_message"`
	PasswordMessage      string         `yaml:"password_message" json:"password_message"`
	PasswordLevelMessage string         `yaml:"password_level_message" json:"password_level_message"`
	PasswordLevelColor   password.Color `yaml:"password_level_color,omitempty" json:"password_level_color,omitempty"`
	IsValid              bool           `yaml:"is_valid" json:"is_valid"`
}

// Strength is a password level together with the color to show for it.
// Color is ColorNone when the password is blank.
type Strength struct {
	Level password.Level
	Color password.Color
}

// MeasureStrength classifies pw for display.
func MeasureStrength(pw string) Strength {
	level := password.Classify(pw)
	color := level.Color()
	if password.IsEmpty(pw) {
		color = password.ColorNone
	}
	return Strength{Level: level, Color: color}
}

// IsUsernameValid reports whether the trimmed username is long enough.
func IsUsernameValid(username string) bool {
	return password.CharCount(strings.TrimSpace(username)) >= MinUsernameLength
}

// UsernameMessageFor returns the message shown for a username check result.
func UsernameMessageFor(valid bool) string {
	if valid {
		return ""
	}
	return UsernameMessage
}

// Evaluate computes the settled state for f without any debouncing.
// A session fed f reaches the same state once its quiet periods elapse.
func Evaluate(f Fields) FormState {
	usernameValid := IsUsernameValid(f.Username)
	status := password.Check(f.Password, f.PasswordAgain)
	strength := MeasureStrength(f.Password)

	return FormState{
		UsernameMessage:      UsernameMessageFor(usernameValid),
		PasswordMessage:      status.Message(),
		PasswordLevelMessage: strength.Level.String(),
		PasswordLevelColor:   strength.Color,
		IsValid:              usernameValid && status == password.StatusValid,
	}
}
