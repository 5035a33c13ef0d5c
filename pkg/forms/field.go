package forms

// FieldType identifies the input rendered for a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldTel      FieldType = "tel"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
)

// Field describes one input of a form.
type Field struct {
	// Name is the field id, used as the key of the form data.
	Name string

	// Type is the input type.
	Type FieldType

	// Label is the display label.
	Label string

	// Placeholder is the placeholder text.
	Placeholder string

	// Required marks fields the wizard checks before leaving their step.
	Required bool

	// Options are the choices of a select field.
	Options []Option

	// Default is the value restored by Form.Reset.
	Default string

	// Help is shown below the input.
	Help string

	// Validators run in addition to the required check.
	Validators []Validator
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Secret reports whether the field value must never be logged or echoed.
func (f Field) Secret() bool {
	return f.Type == FieldPassword
}

// OptionLabel returns the label of the option with the given value.
func (f Field) OptionLabel(value string) string {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return ""
}

// FieldOption configures a field.
type FieldOption func(*Field)

// NewField creates a new field.
func NewField(name string, fieldType FieldType, label string, opts ...FieldOption) Field {
	field := Field{
		Name:  name,
		Type:  fieldType,
		Label: label,
	}
	for _, opt := range opts {
		opt(&field)
	}
	return field
}

// WithRequired marks the field as required.
func WithRequired() FieldOption {
	return func(f *Field) {
		f.Required = true
		f.Validators = append(f.Validators, RequiredValidator{})
	}
}

// WithPlaceholder sets the placeholder text.
func WithPlaceholder(placeholder string) FieldOption {
	return func(f *Field) {
		f.Placeholder = placeholder
	}
}

// WithDefault sets the value the field starts with after a reset.
func WithDefault(value string) FieldOption {
	return func(f *Field) {
		f.Default = value
	}
}

// WithHelp sets the help text.
func WithHelp(help string) FieldOption {
	return func(f *Field) {
		f.Help = help
	}
}

// WithOptions sets the select options.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = options
	}
}

// WithValidator adds a validator.
func WithValidator(v Validator) FieldOption {
	return func(f *Field) {
		f.Validators = append(f.Validators, v)
	}
}

// TextField creates a text field.
func TextField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldText, label, opts...)
}

// EmailField creates an email field.
func EmailField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldEmail, label, opts...)
}

// PasswordField creates a password field.
func PasswordField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldPassword, label, opts...)
}

// TelField creates a phone field.
func TelField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldTel, label, opts...)
}

// NumberField creates a number field.
func NumberField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldNumber, label, opts...)
}

// SelectField creates a select field.
func SelectField(name, label string, options []Option, opts ...FieldOption) Field {
	field := NewField(name, FieldSelect, label, opts...)
	field.Options = options
	return field
}
