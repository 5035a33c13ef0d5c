package wizard

import "strings"

// Navigation directions accepted by Advance.
const (
	Forward = 1
	Back    = -1
)

// FieldSource provides the current value of a form field.
type FieldSource interface {
	Value(field string) string
}

// FieldSourceFunc adapts a function to FieldSource.
type FieldSourceFunc func(field string) string

// Value calls f(field).
func (f FieldSourceFunc) Value(field string) string {
	return f(field)
}

// ValidationResult is the outcome of checking one step.
type ValidationResult struct {
	Step    int
	Valid   bool
	Invalid []string
}

// Err returns the ValidationError for an invalid result, or nil.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Step: r.Step, Fields: r.Invalid}
}

// SubmitResult is the outcome of Submit. On failure Step is the first
// invalid step, which is also the new current step.
type SubmitResult struct {
	OK      bool
	Step    int
	Invalid []string
}

// Controller owns the current step of a wizard and enforces the
// navigation protocol. It is not safe for concurrent use; callers
// serialize access the same way they serialize UI events.
type Controller struct {
	steps    Steps
	fields   FieldSource
	observer Observer
	current  int
}

// New creates a controller positioned on step 1. A nil observer discards
// all signals.
func New(steps Steps, fields FieldSource, observer Observer) (*Controller, error) {
	if err := steps.Validate(); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = FieldSourceFunc(func(string) string { return "" })
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Controller{
		steps:    steps,
		fields:   fields,
		observer: observer,
		current:  1,
	}, nil
}

// Current returns the 1-based current step.
func (c *Controller) Current() int {
	return c.current
}

// Total returns the number of steps.
func (c *Controller) Total() int {
	return len(c.steps)
}

// Initialize moves back to step 1 and asks the presentation to clear all
// markers and resync. Called whenever the wizard is opened.
func (c *Controller) Initialize() {
	c.current = 1
	c.observer.ValidationCleared()
	c.observer.StepChanged(c.current)
}

// ValidateStep checks the required fields of step. A field is invalid when
// its value is empty after trimming whitespace. The current step is left
// untouched.
func (c *Controller) ValidateStep(step int) (ValidationResult, error) {
	def, ok := c.steps.At(step)
	if !ok {
		return ValidationResult{}, ErrStepOutOfRange
	}
	result := c.check(step, def)
	if result.Valid {
		c.observer.ValidationPassed(step)
	} else {
		c.observer.ValidationFailed(step, result.Invalid)
	}
	return result, nil
}

func (c *Controller) check(step int, def StepDefinition) ValidationResult {
	result := ValidationResult{Step: step, Valid: true}
	seen := make(map[string]bool, len(def.Required))
	for _, field := range def.Required {
		if seen[field] {
			continue
		}
		seen[field] = true
		if strings.TrimSpace(c.fields.Value(field)) == "" {
			result.Invalid = append(result.Invalid, field)
		}
	}
	result.Valid = len(result.Invalid) == 0
	return result
}

// Advance moves one step in direction, which must be Forward or Back.
// Going forward first validates the current step, even on the last step,
// and returns a *ValidationError without moving when it fails. Going back
// never validates. Moves past either end are ignored.
func (c *Controller) Advance(direction int) error {
	if direction != Forward && direction != Back {
		return ErrInvalidDirection
	}
	if direction == Forward {
		result, err := c.ValidateStep(c.current)
		if err != nil {
			return err
		}
		if !result.Valid {
			return result.Err()
		}
	}
	next := c.current + direction
	if next < 1 || next > len(c.steps) {
		return nil
	}
	c.current = next
	c.observer.StepChanged(next)
	return nil
}

// Jump moves to step without validation.
func (c *Controller) Jump(step int) error {
	if step < 1 || step > len(c.steps) {
		return ErrStepOutOfRange
	}
	c.current = step
	c.observer.StepChanged(step)
	return nil
}

// Submit validates every step in order and stops at the first invalid one,
// jumping to it. Steps after the failing one are not checked. On success
// the current step is unchanged.
func (c *Controller) Submit() (SubmitResult, error) {
	for step := 1; step <= len(c.steps); step++ {
		result, err := c.ValidateStep(step)
		if err != nil {
			return SubmitResult{}, err
		}
		if result.Valid {
			continue
		}
		if err := c.Jump(step); err != nil {
			return SubmitResult{}, err
		}
		c.observer.SubmissionFailed(step)
		return SubmitResult{Step: step, Invalid: result.Invalid}, result.Err()
	}
	c.observer.SubmissionSucceeded()
	return SubmitResult{OK: true, Step: c.current}, nil
}
