// Package strength provides the password strength bands shared by the
// evaluator and anything that renders its reports.
//
// A band is selected from a 0-100 score. Bands are checked in ascending
// order and the lower bound is inclusive: a score of 30 is already Weak.
package strength

import "strings"

// Level represents a password strength band.
type Level string

const (
	// VeryWeak - score below 30.
	VeryWeak Level = "Very Weak"

	// Weak - score in [30, 50).
	Weak Level = "Weak"

	// Moderate - score in [50, 70).
	Moderate Level = "Moderate"

	// Strong - score in [70, 90).
	Strong Level = "Strong"

	// VeryStrong - score of 90 or more.
	VeryStrong Level = "Very Strong"
)

// band is an exclusive upper bound paired with its level and display color.
type band struct {
	below int
	level Level
	color string
}

// bands must stay sorted by upper bound; the last entry catches everything else.
var bands = []band{
	{30, VeryWeak, "#ff0055"},
	{50, Weak, "#ffb700"},
	{70, Moderate, "#ff8800"},
	{90, Strong, "#00ff9d"},
}

const veryStrongColor = "#00d4ff"

// String returns the display label of the level.
func (l Level) String() string {
	return string(l)
}

// Color returns the hex display color of the level, or "" for a value
// that is not one of the bands.
func (l Level) Color() string {
	if l == VeryStrong {
		return veryStrongColor
	}
	for _, b := range bands {
		if b.level == l {
			return b.color
		}
	}
	return ""
}

// Rank returns the numeric rank of the level.
// Higher numbers = stronger passwords.
func (l Level) Rank() int {
	switch l {
	case VeryStrong:
		return 5
	case Strong:
		return 4
	case Moderate:
		return 3
	case Weak:
		return 2
	case VeryWeak:
		return 1
	default:
		return 0
	}
}

// IsAtLeast returns true if this level is at least as strong as the other.
func (l Level) IsAtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

// MetricLabel returns a lowercase, underscore separated form of the level
// suitable for use as a metric label value.
func (l Level) MetricLabel() string {
	return strings.ReplaceAll(strings.ToLower(string(l)), " ", "_")
}

// FromScore maps a 0-100 score to its band.
func FromScore(score int) Level {
	for _, b := range bands {
		if score < b.below {
			return b.level
		}
	}
	return VeryStrong
}
