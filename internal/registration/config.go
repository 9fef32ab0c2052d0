package registration

import "time"

// Config holds the quiet periods of each debounce stage.
// A zero duration disables debouncing for that stage.
type Config struct {
	Username         time.Duration
	PasswordEmpty    time.Duration
	PasswordEquality time.Duration
	Strength         time.Duration
}

// DefaultConfig returns the tuned quiet periods: a longer one for the
// emptiness and username checks, a shorter one for equality and strength.
func DefaultConfig() Config {
	return Config{
		Username:         500 * time.Millisecond,
		PasswordEmpty:    500 * time.Millisecond,
		PasswordEquality: 200 * time.Millisecond,
		Strength:         200 * time.Millisecond,
	}
}

// NoDebounce returns a configuration where every change propagates
// immediately.
func NoDebounce() Config {
	return Config{}
}

// Longest returns the largest quiet period, the time after the last edit
// by which every output has settled.
func (c Config) Longest() time.Duration {
	longest := c.Username
	for _, d := range []time.Duration{c.PasswordEmpty, c.PasswordEquality, c.Strength} {
		if d > longest {
			longest = d
		}
	}
	return longest
}
