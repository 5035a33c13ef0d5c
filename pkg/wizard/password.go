package wizard

import "unicode/utf8"

// StrengthScore is the number of password criteria met, 0 to 4.
type StrengthScore int

// Strength is the class shown by the strength meter.
type Strength string

// Strength classes.
const (
	StrengthEmpty  Strength = "empty"
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// MinPasswordLength is the length criterion of the strength score.
const MinPasswordLength = 8

// ScorePasswordStrength adds one point for each of: at least eight
// characters, an uppercase letter, a digit, and a character that is
// neither an ASCII letter nor a digit.
func ScorePasswordStrength(password string) StrengthScore {
	var score StrengthScore
	if utf8.RuneCountInString(password) >= MinPasswordLength {
		score++
	}

	var upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
		default:
			special = true
		}
	}
	if upper {
		score++
	}
	if digit {
		score++
	}
	if special {
		score++
	}
	return score
}

// Class maps a score to its strength class. It never returns StrengthEmpty;
// use ClassifyPassword for raw input.
func (s StrengthScore) Class() Strength {
	switch {
	case s < 2:
		return StrengthWeak
	case s < 4:
		return StrengthMedium
	default:
		return StrengthStrong
	}
}

// ClassifyPassword returns the meter class for password. An empty password
// is neutral rather than weak.
func ClassifyPassword(password string) Strength {
	if password == "" {
		return StrengthEmpty
	}
	return ScorePasswordStrength(password).Class()
}
