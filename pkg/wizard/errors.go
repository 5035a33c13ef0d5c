package wizard

import (
	"errors"
	"fmt"
	"strings"
)

// Common wizard errors.
var (
	ErrValidation       = errors.New("required fields are empty")
	ErrInvalidDirection = errors.New("direction must be +1 or -1")
	ErrStepOutOfRange   = errors.New("step out of range")
	ErrNoSteps          = errors.New("no steps defined")
	ErrDuplicateStep    = errors.New("duplicate step id")
	ErrEmptyStepID      = errors.New("step id is empty")
	ErrUnknownField     = errors.New("required field is not listed in fields")
)

// ValidationError reports the required fields of a step that are empty.
// It is the only failure the wizard produces while the user fills the form,
// and it is always recoverable by filling the listed fields.
type ValidationError struct {
	Step   int
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d: %s: %s", e.Step, ErrValidation, strings.Join(e.Fields, ", "))
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsValidationError reports whether err carries a ValidationError and returns it.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
