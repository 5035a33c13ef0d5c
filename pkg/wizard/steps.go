package wizard

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed team_steps.yaml
var defaultStepsYAML []byte

// StepDefinition describes one page of the wizard and the fields that must
// be filled before the user may leave it going forward.
type StepDefinition struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Icon     string   `yaml:"icon,omitempty"`
	Fields   []string `yaml:"fields,omitempty"`
	Required []string `yaml:"required,omitempty"`
}

// FieldNames returns every field shown on the step. Steps that do not list
// their fields show only the required ones.
func (d StepDefinition) FieldNames() []string {
	if len(d.Fields) == 0 {
		return d.Required
	}
	return d.Fields
}

// IsRequired reports whether field must be filled on this step.
func (d StepDefinition) IsRequired(field string) bool {
	return contains(d.Required, field)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Steps is the ordered list of step definitions. Step indexes are 1-based.
type Steps []StepDefinition

type stepsFile struct {
	Steps Steps `yaml:"steps"`
}

// At returns the definition of the 1-based step index.
func (s Steps) At(step int) (StepDefinition, bool) {
	if step < 1 || step > len(s) {
		return StepDefinition{}, false
	}
	return s[step-1], true
}

// StepOf returns the 1-based index of the first step showing field, or 0.
func (s Steps) StepOf(field string) int {
	for i, def := range s {
		for _, name := range def.FieldNames() {
			if name == field {
				return i + 1
			}
		}
	}
	return 0
}

// Validate checks that the definitions can drive a controller.
func (s Steps) Validate() error {
	if len(s) == 0 {
		return ErrNoSteps
	}
	seen := make(map[string]bool, len(s))
	for i, def := range s {
		if def.ID == "" {
			return fmt.Errorf("step %d: %w", i+1, ErrEmptyStepID)
		}
		if seen[def.ID] {
			return fmt.Errorf("step %d (%s): %w", i+1, def.ID, ErrDuplicateStep)
		}
		seen[def.ID] = true
		if len(def.Fields) == 0 {
			continue
		}
		for _, name := range def.Required {
			if !contains(def.Fields, name) {
				return fmt.Errorf("step %d (%s): field %q: %w", i+1, def.ID, name, ErrUnknownField)
			}
		}
	}
	return nil
}

// LoadSteps decodes step definitions from YAML of the form:
//
//	steps:
//	  - id: personal
//	    title: Personal data
//	    icon: ti-user
//	    fields: [first_name, last_name, nickname]
//	    required: [first_name, last_name]
func LoadSteps(r io.Reader) (Steps, error) {
	var f stepsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding steps: %w", err)
	}
	if err := f.Steps.Validate(); err != nil {
		return nil, err
	}
	return f.Steps, nil
}

// LoadStepsFile reads step definitions from path.
func LoadStepsFile(path string) (Steps, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening steps file: %w", err)
	}
	defer file.Close()
	return LoadSteps(file)
}

// TeamSteps returns the built-in definitions of the team member form.
func TeamSteps() Steps {
	steps, err := LoadSteps(bytes.NewReader(defaultStepsYAML))
	if err != nil {
		panic(fmt.Sprintf("wizard: invalid embedded steps: %v", err))
	}
	return steps
}

// Encode renders the steps in the same layout LoadSteps reads.
func (s Steps) Encode() ([]byte, error) {
	return yaml.Marshal(stepsFile{Steps: s})
}
