package password

import "strings"

// Status is the composite outcome of the password checks.
// Exactly one status holds at a time.
type Status int

const (
	StatusValid Status = iota
	StatusEmpty
	StatusNotMatch
	StatusNotStrongEnough
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusEmpty:
		return "empty"
	case StatusNotMatch:
		return "notMatch"
	case StatusNotStrongEnough:
		return "notStrongEnough"
	default:
		return "unknown"
	}
}

// Message returns the user-visible message for the status.
// A valid password has no message.
func (s Status) Message() string {
	switch s {
	case StatusEmpty:
		return "Password is empty"
	case StatusNotMatch:
		return "Password don't match"
	case StatusNotStrongEnough:
		return "Password not strong enough"
	default:
		return ""
	}
}

// IsEmpty reports whether the password is blank after trimming whitespace.
func IsEmpty(pw string) bool {
	return strings.TrimSpace(pw) == ""
}

// Combine derives the status from the three sub-checks.
// Emptiness beats mismatch, mismatch beats weakness.
func Combine(empty, equal bool, level Level) Status {
	switch {
	case empty:
		return StatusEmpty
	case !equal:
		return StatusNotMatch
	case !level.Acceptable():
		return StatusNotStrongEnough
	default:
		return StatusValid
	}
}

// Check classifies a password pair without any debouncing.
func Check(pw, again string) Status {
	return Combine(IsEmpty(pw), pw == again, Classify(pw))
}
