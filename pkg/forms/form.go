// Package forms holds field definitions and the values typed into them.
package forms

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownField is returned when setting a field the form does not define.
var ErrUnknownField = errors.New("unknown field")

// Form is a set of fields and their current values. It is safe for
// concurrent use.
type Form struct {
	// Name is the form identifier.
	Name string

	fields []Field
	data   map[string]string
	errors map[string]bool

	mu sync.RWMutex
}

// NewForm creates a form with fields set to their defaults.
func NewForm(name string, fields ...Field) *Form {
	f := &Form{
		Name:   name,
		fields: make([]Field, 0, len(fields)),
	}
	f.fields = append(f.fields, fields...)
	f.Reset()
	return f
}

// Fields returns the field definitions in declaration order.
func (f *Form) Fields() []Field {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Field, len(f.fields))
	copy(out, f.fields)
	return out
}

// Field returns the definition of name.
func (f *Form) Field(name string) (Field, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.field(name)
}

func (f *Form) field(name string) (Field, bool) {
	for _, field := range f.fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Set stores the value of a field.
func (f *Form) Set(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.field(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	f.data[name] = value
	return nil
}

// Value returns the current value of a field, or "" when unknown.
func (f *Form) Value(name string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.data[name]
}

// Values returns a snapshot of all values.
func (f *Form) Values() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]string, len(f.data))
	for k, v := range f.data {
		out[k] = v
	}
	return out
}

// PublicValues returns a snapshot without secret fields.
func (f *Form) PublicValues() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]string, len(f.data))
	for _, field := range f.fields {
		if field.Secret() {
			continue
		}
		out[field.Name] = f.data[field.Name]
	}
	return out
}

// Validate runs the validators of every field and records which fail.
func (f *Form) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = make(map[string]bool)
	for _, field := range f.fields {
		for _, v := range field.Validators {
			if err := v.Validate(f.data[field.Name]); err != nil {
				f.errors[field.Name] = true
			}
		}
	}
	return len(f.errors) == 0
}

// ErrorFields returns the sorted names of fields that failed the last
// Validate.
func (f *Form) ErrorFields() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.errors))
	for name := range f.errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset restores every field to its default and clears errors.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = make(map[string]string, len(f.fields))
	for _, field := range f.fields {
		f.data[field.Name] = field.Default
	}
	f.errors = make(map[string]bool)
}
