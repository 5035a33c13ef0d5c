package teamform

import (
	"fmt"
	"slices"
	"sort"

	"github.com/vendapay/teamwizard/pkg/forms"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

// User types accepted by the back office.
const (
	UserTypeAdmin   = "ADMIN"
	UserTypeSeller  = "SELLER"
	UserTypeManager = "MANAGER"
)

// DefaultCommissionRate is the commission, in percent, given to new members.
const DefaultCommissionRate = "0.50"

// UserTypes are the choices of the user_type field.
var UserTypes = []forms.Option{
	{Value: UserTypeAdmin, Label: "Admin"},
	{Value: UserTypeSeller, Label: "Seller"},
	{Value: UserTypeManager, Label: "Manager"},
}

// Fields returns the inputs of the new team member form.
func Fields() []forms.Field {
	return []forms.Field{
		forms.TextField("first_name", "First name", forms.WithRequired()),
		forms.TextField("last_name", "Last name", forms.WithRequired()),
		forms.TextField("document", "Document",
			forms.WithRequired(),
			forms.WithPlaceholder("000.000.000-00"),
		),
		forms.EmailField("email", "Email",
			forms.WithRequired(),
			forms.WithPlaceholder("name@company.com"),
		),
		forms.TelField("phone", "Phone", forms.WithPlaceholder("(00) 00000-0000")),
		forms.TextField("username", "Username", forms.WithRequired()),
		forms.PasswordField("password", "Password",
			forms.WithRequired(),
			forms.WithHelp("Use 8+ characters with upper case letters, numbers and symbols"),
		),
		forms.PasswordField("password_confirm", "Confirm password", forms.WithRequired()),
		forms.SelectField("user_type", "User type", UserTypes,
			forms.WithRequired(),
			forms.WithDefault(UserTypeSeller),
			forms.WithValidator(forms.ChoiceValidator{Options: UserTypes}),
		),
		forms.NumberField("commission_rate", "Commission rate (%)",
			forms.WithDefault(DefaultCommissionRate),
			forms.WithHelp("Applied to sellers with an active commission"),
		),
	}
}

// NewForm creates an empty team member form.
func NewForm() *forms.Form {
	return forms.NewForm("team_member", Fields()...)
}

// CheckSteps verifies that every field named by steps exists in form.
func CheckSteps(steps wizard.Steps, form *forms.Form) error {
	for _, def := range steps {
		for _, name := range def.FieldNames() {
			if _, ok := form.Field(name); !ok {
				return fmt.Errorf("step %q: %w: %s", def.ID, forms.ErrUnknownField, name)
			}
		}
	}
	return nil
}

// CheckValues runs the field validators and compares the two password
// fields. Fields no step shows are skipped since the user cannot fix
// them. It returns the failing fields in step order and the step showing
// the first one, or 0 and nil when every value is acceptable.
func CheckValues(steps wizard.Steps, form *forms.Form) (int, []string) {
	var bad []string
	if !form.Validate() {
		bad = append(bad, form.ErrorFields()...)
	}
	if form.Value("password") != form.Value("password_confirm") && !slices.Contains(bad, "password_confirm") {
		bad = append(bad, "password_confirm")
	}

	shown := bad[:0]
	for _, name := range bad {
		if steps.StepOf(name) > 0 {
			shown = append(shown, name)
		}
	}
	if len(shown) == 0 {
		return 0, nil
	}
	sort.SliceStable(shown, func(i, j int) bool {
		return steps.StepOf(shown[i]) < steps.StepOf(shown[j])
	})
	return steps.StepOf(shown[0]), shown
}
