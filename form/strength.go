package form

import "unicode/utf8"

// Hint is the advisory strength of a password. It never blocks submission.
type Hint string

const (
	HintNone     Hint = ""
	HintWeak     Hint = "Weak"
	HintModerate Hint = "Moderate"
	HintStrong   Hint = "Strong"
)

// Strength derives the hint from the password length. Empty passwords get no hint.
func Strength(password string) Hint {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return HintNone
	case n < 6:
		return HintWeak
	case n < 10:
		return HintModerate
	default:
		return HintStrong
	}
}
