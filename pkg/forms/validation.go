package forms

import (
	"errors"
	"strings"
)

// Validator validates a field value.
type Validator interface {
	// Validate checks if the value is valid.
	Validate(value string) error
}

var errRequired = errors.New("required")

// RequiredValidator rejects values that are empty after trimming whitespace.
type RequiredValidator struct{}

func (v RequiredValidator) Validate(value string) error {
	if strings.TrimSpace(value) == "" {
		return errRequired
	}
	return nil
}

// ChoiceValidator rejects non-empty values that are not one of Options.
type ChoiceValidator struct {
	Options []Option
}

func (v ChoiceValidator) Validate(value string) error {
	if value == "" {
		return nil
	}
	for _, o := range v.Options {
		if o.Value == value {
			return nil
		}
	}
	return errors.New("invalid choice")
}
