// Package password classifies password strength and derives the composite
// password status shown next to a registration form.
package password

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// Level is the discrete strength of a password.
type Level int

const (
	LevelWeak Level = iota
	LevelReasonable
	LevelStrong
	LevelVeryStrong
)

// Color is the display color associated with a Level.
// ColorNone means no color should be shown.
type Color string

const (
	ColorNone   Color = ""
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorOrange Color = "orange"
	ColorGreen  Color = "green"
)

const (
	minReasonableExclusive = 6
	maxReasonableExclusive = 24
	minCasedChars          = 3
	minDigitsExclusive     = 3
)

func (l Level) String() string {
	switch l {
	case LevelWeak:
		return "weak"
	case LevelReasonable:
		return "reasonable"
	case LevelStrong:
		return "strong"
	case LevelVeryStrong:
		return "veryStrong"
	default:
		return "unknown"
	}
}

// Color returns the display color for the level.
func (l Level) Color() Color {
	switch l {
	case LevelReasonable:
		return ColorYellow
	case LevelStrong:
		return ColorOrange
	case LevelVeryStrong:
		return ColorGreen
	default:
		return ColorRed
	}
}

// Acceptable reports whether the level is good enough to register with.
func (l Level) Acceptable() bool {
	return l >= LevelReasonable
}

// Classify maps a password to a strength level.
//
// Rules form a ladder where each step requires the previous one:
//   - length (spaces removed) strictly between 6 and 24: reasonable
//   - at least 3 uppercase and 3 lowercase characters: strong
//   - more than 3 numeric characters: veryStrong
//
// Only U+0020 is removed before counting; tabs and other whitespace count
// as characters. Lengths are measured in grapheme clusters.
func Classify(pw string) Level {
	text := strings.ReplaceAll(pw, " ", "")

	n := uniseg.GraphemeClusterCount(text)
	if n <= minReasonableExclusive || n >= maxReasonableExclusive {
		return LevelWeak
	}

	var upper, lower, digits int
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		r := g.Runes()[0]
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsNumber(r):
			digits++
		}
	}

	if upper < minCasedChars || lower < minCasedChars {
		return LevelReasonable
	}
	if digits <= minDigitsExclusive {
		return LevelStrong
	}
	return LevelVeryStrong
}

// CharCount returns the number of user-perceived characters in s.
func CharCount(s string) int {
	return uniseg.GraphemeClusterCount(s)
}
