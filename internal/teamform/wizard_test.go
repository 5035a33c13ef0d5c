package teamform

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendapay/teamwizard/pkg/core"
	"github.com/vendapay/teamwizard/pkg/forms"
	"github.com/vendapay/teamwizard/pkg/livetest"
	"github.com/vendapay/teamwizard/pkg/metrics"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

type captureSender struct {
	regs []Registration
	err  error
}

func (s *captureSender) Send(ctx context.Context, reg Registration) error {
	s.regs = append(s.regs, reg)
	return s.err
}

func newWizard(t *testing.T, opts ...Option) *Wizard {
	t.Helper()
	w, err := New(opts...)
	require.NoError(t, err)
	return w
}

func mountOpen(t *testing.T, w *Wizard) *livetest.LiveViewTest {
	t.Helper()
	return livetest.Mount(t, w, livetest.WithParams(core.Params{"open": "1"}))
}

func set(lvt *livetest.LiveViewTest, field, value string) {
	lvt.Event(EventUpdateField, livetest.Values("field", field, "value", value))
}

func fillStep(lvt *livetest.LiveViewTest, step int) {
	switch step {
	case 1:
		set(lvt, "first_name", "Ana")
		set(lvt, "last_name", "Souza")
		set(lvt, "document", "123.456.789-00")
	case 2:
		set(lvt, "email", "ana@example.com")
	case 3:
		set(lvt, "username", "ana")
		set(lvt, "password", "Secr3t!pass")
		set(lvt, "password_confirm", "Secr3t!pass")
	case 4:
		set(lvt, "user_type", UserTypeSeller)
	}
}

func TestNew_RejectsUnknownStepField(t *testing.T) {
	steps := wizard.Steps{{ID: "x", Title: "X", Required: []string{"nickname"}}}

	_, err := New(WithSteps(steps))
	assert.ErrorIs(t, err, forms.ErrUnknownField)

	_, err = Factory(WithSteps(steps))
	assert.Error(t, err)
}

func TestFactory_BuildsIndependentComponents(t *testing.T) {
	factory, err := Factory()
	require.NoError(t, err)

	a := factory().(*Wizard)
	b := factory().(*Wizard)
	require.NoError(t, a.Form().Set("first_name", "Ana"))
	assert.Empty(t, b.Form().Value("first_name"))
}

func TestWizard_InitialRender(t *testing.T) {
	lvt := livetest.Mount(t, newWizard(t))

	w := lvt.Component().(*Wizard)
	assert.Equal(t, 1, w.Current())
	assert.False(t, w.IsOpen())

	lvt.AssertNoClass("userFormModal", "show").
		AssertClass("step-circle-1", "active").
		AssertNoClass("step-circle-2", "active").
		AssertClass("step-1", "active").
		AssertNoClass("step-2", "active").
		AssertElement("progressBar", `data-progress="0.0"`).
		AssertElement("prevBtn", " hidden").
		AssertText(`<span id="step-info" class="step-info">Step 1 of 4</span>`).
		AssertElement("user_type", "form-select").
		AssertText(`<option value="SELLER" selected>`).
		AssertElement("commission_rate", `value="0.50"`).
		AssertElement("document", `placeholder="000.000.000-00"`, " required").
		AssertAssign("step", 1)
}

func TestWizard_OpenModalResets(t *testing.T) {
	lvt := mountOpen(t, newWizard(t))
	lvt.AssertClass("userFormModal", "show")

	fillStep(lvt, 1)
	lvt.Event(EventNextStep, nil)
	lvt.Event(EventNextStep, nil)
	lvt.AssertElement("email", "is-invalid")
	lvt.Event(EventCloseModal, nil).AssertNoClass("userFormModal", "show")

	lvt.Event(EventOpenModal, nil)

	w := lvt.Component().(*Wizard)
	assert.True(t, w.IsOpen())
	assert.Equal(t, 1, w.Current())
	assert.Empty(t, w.InvalidFields())
	assert.Empty(t, w.Form().Value("first_name"))
	assert.Equal(t, UserTypeSeller, w.Form().Value("user_type"))
	lvt.AssertClass("userFormModal", "show").
		AssertClass("step-1", "active").
		AssertNoClass("email", "is-invalid")
}

func TestWizard_NextValidatesCurrentStep(t *testing.T) {
	lvt := mountOpen(t, newWizard(t))
	w := lvt.Component().(*Wizard)

	set(lvt, "first_name", "Ana")
	lvt.Event(EventNextStep, nil)

	assert.Equal(t, 1, w.Current())
	assert.Equal(t, []string{"document", "last_name"}, w.InvalidFields())
	lvt.AssertClass("last_name", "is-invalid").
		AssertClass("document", "is-invalid").
		AssertNoClass("first_name", "is-invalid").
		AssertText("This field is required")

	set(lvt, "last_name", "Souza")
	assert.Equal(t, []string{"document"}, w.InvalidFields(), "typing clears the marker")

	set(lvt, "document", "123")
	lvt.Event(EventNextStep, nil)

	assert.Equal(t, 2, w.Current())
	assert.Empty(t, w.InvalidFields())
	lvt.AssertClass("step-circle-1", "completed").
		AssertText(`<i class="ti ti-check">`).
		AssertClass("step-circle-2", "active").
		AssertClass("step-2", "active").
		AssertElement("progressBar", `data-progress="33.3"`).
		AssertAssign("step", 2)
	assert.NotContains(t, lvt.Tag("prevBtn"), " hidden")
}

func TestWizard_BackNeverValidates(t *testing.T) {
	lvt := mountOpen(t, newWizard(t))
	w := lvt.Component().(*Wizard)

	fillStep(lvt, 1)
	lvt.Event(EventNextStep, nil)
	require.Equal(t, 2, w.Current())

	lvt.Event(EventPrevStep, nil)
	assert.Equal(t, 1, w.Current())
	assert.Empty(t, w.InvalidFields())

	lvt.Event(EventPrevStep, nil)
	assert.Equal(t, 1, w.Current(), "back on the first step is ignored")
}

func TestWizard_LastStepShowsSubmit(t *testing.T) {
	lvt := mountOpen(t, newWizard(t))
	w := lvt.Component().(*Wizard)

	for step := 1; step <= 3; step++ {
		fillStep(lvt, step)
		lvt.Event(EventNextStep, nil)
	}
	require.Equal(t, 4, w.Current())

	lvt.AssertElement("nextBtn", " hidden").
		AssertElement("progressBar", `data-progress="100.0"`).
		AssertText("Step 4 of 4")
	assert.NotContains(t, lvt.Tag("submitBtn"), " hidden")

	set(lvt, "user_type", "")
	lvt.Event(EventNextStep, nil)
	assert.Equal(t, 4, w.Current())
	assert.Equal(t, []string{"user_type"}, w.InvalidFields(), "next on the last step still validates")
}

func TestWizard_KeyboardOnlyWhileOpen(t *testing.T) {
	lvt := livetest.Mount(t, newWizard(t))
	w := lvt.Component().(*Wizard)

	fillStep(lvt, 1)
	lvt.Event(EventKeydown, livetest.Values("key", "ArrowRight"))
	assert.Equal(t, 1, w.Current(), "closed modal ignores keys")

	lvt.Event(EventOpenModal, nil)
	fillStep(lvt, 1)
	lvt.Event(EventKeydown, livetest.Values("key", "ArrowRight"))
	assert.Equal(t, 2, w.Current())

	lvt.Event(EventKeydown, livetest.Values("key", "ArrowRight"))
	assert.Equal(t, 2, w.Current())
	assert.Equal(t, []string{"email"}, w.InvalidFields())

	lvt.Event(EventKeydown, livetest.Values("key", "Enter"))
	assert.Equal(t, 2, w.Current())

	lvt.Event(EventKeydown, livetest.Values("key", "ArrowLeft"))
	assert.Equal(t, 1, w.Current())
	lvt.Event(EventKeydown, livetest.Values("key", "ArrowLeft"))
	assert.Equal(t, 1, w.Current())
}

func TestWizard_SubmitJumpsToFirstInvalidStep(t *testing.T) {
	sender := &captureSender{}
	lvt := mountOpen(t, newWizard(t, WithSender(sender)))
	w := lvt.Component().(*Wizard)

	fillStep(lvt, 1)
	lvt.Event(EventNextStep, nil)
	fillStep(lvt, 2)
	lvt.Event(EventNextStep, nil)
	fillStep(lvt, 3)
	lvt.Event(EventNextStep, nil)
	require.Equal(t, 4, w.Current())

	set(lvt, "email", "  ")
	lvt.Event(EventSubmit, nil)

	assert.Equal(t, 2, w.Current())
	assert.Equal(t, []string{"email"}, w.InvalidFields())
	assert.Empty(t, sender.regs)
	msg, ok := w.Flash()
	assert.Equal(t, MsgFixFields, msg)
	assert.False(t, ok)
	lvt.AssertClass("step-2", "active").
		AssertClass("flash", "alert-danger")
}

func TestWizard_SubmitSendsPublicValues(t *testing.T) {
	sender := &captureSender{}
	lvt := mountOpen(t, newWizard(t, WithSender(sender)))
	w := lvt.Component().(*Wizard)

	for step := 1; step <= 4; step++ {
		fillStep(lvt, step)
		if step < 4 {
			lvt.Event(EventNextStep, nil)
		}
	}
	lvt.Event(EventSubmit, nil)

	require.Len(t, sender.regs, 1)
	reg := sender.regs[0]
	assert.Equal(t, "ana", reg.Values["username"])
	assert.Equal(t, UserTypeSeller, reg.Values["user_type"])
	assert.Equal(t, DefaultCommissionRate, reg.Values["commission_rate"])
	assert.NotContains(t, reg.Values, "password")
	assert.NotContains(t, reg.Values, "password_confirm")
	assert.False(t, reg.SubmittedAt.IsZero())
	assert.Len(t, reg.ID, 26)

	assert.Equal(t, 4, w.Current())
	msg, ok := w.Flash()
	assert.Equal(t, MsgSaved, msg)
	assert.True(t, ok)
	lvt.AssertClass("flash", "alert-success").AssertText(MsgSaved)
}

func TestWizard_SubmitRejectsUnknownUserType(t *testing.T) {
	sender := &captureSender{}
	lvt := mountOpen(t, newWizard(t, WithSender(sender)))
	w := lvt.Component().(*Wizard)

	for step := 1; step <= 4; step++ {
		fillStep(lvt, step)
		if step < 4 {
			lvt.Event(EventNextStep, nil)
		}
	}
	set(lvt, "user_type", "ROOT")
	lvt.Event(EventSubmit, nil)

	assert.Empty(t, sender.regs)
	assert.Equal(t, 4, w.Current())
	assert.Equal(t, []string{"user_type"}, w.InvalidFields())
	msg, ok := w.Flash()
	assert.Equal(t, MsgFixFields, msg)
	assert.False(t, ok)
}

func TestWizard_SubmitRejectsPasswordMismatch(t *testing.T) {
	sender := &captureSender{}
	lvt := mountOpen(t, newWizard(t, WithSender(sender)))
	w := lvt.Component().(*Wizard)

	for step := 1; step <= 4; step++ {
		fillStep(lvt, step)
		if step < 4 {
			lvt.Event(EventNextStep, nil)
		}
	}
	set(lvt, "password_confirm", "Other!pass1")
	lvt.Event(EventSubmit, nil)

	assert.Empty(t, sender.regs)
	assert.Equal(t, 3, w.Current(), "moves to the access step")
	assert.Equal(t, []string{"password_confirm"}, w.InvalidFields())

	set(lvt, "password_confirm", "Secr3t!pass")
	lvt.Event(EventSubmit, nil)
	assert.Len(t, sender.regs, 1)
}

func TestCheckValues(t *testing.T) {
	steps := wizard.TeamSteps()
	form := NewForm()
	for name, value := range map[string]string{
		"first_name": "Ana", "last_name": "Souza", "document": "1",
		"email": "ana@example.com", "username": "ana",
		"password": "Secr3t!pass", "password_confirm": "Secr3t!pass",
	} {
		require.NoError(t, form.Set(name, value))
	}

	step, bad := CheckValues(steps, form)
	assert.Zero(t, step)
	assert.Nil(t, bad)

	require.NoError(t, form.Set("user_type", "ROOT"))
	require.NoError(t, form.Set("password_confirm", "nope"))
	step, bad = CheckValues(steps, form)
	assert.Equal(t, 3, step)
	assert.Equal(t, []string{"password_confirm", "user_type"}, bad)

	onlyAccess := wizard.Steps{steps[2]}
	step, bad = CheckValues(onlyAccess, form)
	assert.Equal(t, 1, step)
	assert.Equal(t, []string{"password_confirm"}, bad, "fields no step shows are skipped")
}

func TestWizard_SubmitSenderFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("unavailable")}
	w := newWizard(t, WithSender(sender))
	lvt := mountOpen(t, w)
	for step := 1; step <= 4; step++ {
		fillStep(lvt, step)
	}

	lvt.Event(EventSubmit, nil)

	require.Len(t, sender.regs, 1)
	msg, ok := w.Flash()
	assert.Equal(t, MsgSaveFailed, msg)
	assert.False(t, ok)
}

func TestWizard_PasswordStrength(t *testing.T) {
	lvt := mountOpen(t, newWizard(t))
	w := lvt.Component().(*Wizard)

	assert.Equal(t, wizard.StrengthEmpty, w.Strength())

	tests := []struct {
		password string
		want     wizard.Strength
	}{
		{"abc", wizard.StrengthWeak},
		{"abcdefgh", wizard.StrengthWeak},
		{"Abcdefgh", wizard.StrengthMedium},
		{"Abcdefg1", wizard.StrengthMedium},
		{"Abcdef1!", wizard.StrengthStrong},
		{"", wizard.StrengthEmpty},
	}
	for _, tt := range tests {
		set(lvt, "password", tt.password)
		assert.Equal(t, tt.want, w.Strength(), tt.password)
		lvt.AssertClass("passwordStrengthBar", string(tt.want)).
			AssertAssign("strength", string(tt.want))
	}

	set(lvt, "password_confirm", "x")
	assert.Equal(t, wizard.StrengthEmpty, w.Strength(), "confirmation does not drive the meter")
}

func TestWizard_PasswordNeverEchoed(t *testing.T) {
	lvt := mountOpen(t, newWizard(t))

	set(lvt, "password", "Secr3t!pass")

	lvt.AssertNoText("Secr3t!pass").
		AssertElement("password", `value=""`, `data-filled="1"`)
	assert.NotContains(t, lvt.Tag("password_confirm"), "data-filled")
}

func TestWizard_EscapesValues(t *testing.T) {
	lvt := mountOpen(t, newWizard(t))

	set(lvt, "first_name", `<script>"x"</script>`)

	lvt.AssertNoText("<script>").
		AssertText("&lt;script&gt;&#34;x&#34;&lt;/script&gt;")
}

func TestWizard_BadEvents(t *testing.T) {
	lvt := mountOpen(t, newWizard(t))

	assert.ErrorIs(t, lvt.EventErr("explode", nil), ErrUnknownEvent)
	assert.ErrorIs(t, lvt.EventErr(EventUpdateField, livetest.Values("value", "x")), ErrBadPayload)
	assert.ErrorIs(t, lvt.EventErr(EventUpdateField, livetest.Values("field", "nickname", "value", "x")), forms.ErrUnknownField)
}

func TestWizard_NumericFieldValue(t *testing.T) {
	lvt := mountOpen(t, newWizard(t))
	w := lvt.Component().(*Wizard)

	lvt.Event(EventUpdateField, map[string]any{"field": "commission_rate", "value": 0.75})
	assert.Equal(t, "0.75", w.Form().Value("commission_rate"))
}

func TestWizard_HTTPRenderUsesLayout(t *testing.T) {
	w := newWizard(t)
	ctx := context.Background()
	require.NoError(t, w.Mount(ctx, core.Params{}, core.Session{}))

	var buf bytes.Buffer
	require.NoError(t, w.Render(ctx).Render(ctx, &buf))
	html := buf.String()
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, `<main id="lv-container">`)
	assert.Contains(t, html, `/_live/live.js`)

	lvt := livetest.Mount(t, newWizard(t))
	assert.NotContains(t, lvt.Rendered(), "<!DOCTYPE html>")
}

func TestWizard_Metrics(t *testing.T) {
	m, err := metrics.New("test")
	require.NoError(t, err)
	sender := &captureSender{}
	lvt := mountOpen(t, newWizard(t, WithSender(sender), WithMetrics(m)))

	lvt.Event(EventNextStep, nil)
	assert.Equal(t, float64(1), m.Value(`validation_failures_total{step="1"}`))

	lvt.Event(EventSubmit, nil)
	assert.Equal(t, float64(1), m.Value(`submissions_total{result="rejected"}`))

	for step := 1; step <= 4; step++ {
		fillStep(lvt, step)
		if step < 4 {
			lvt.Event(EventNextStep, nil)
		}
	}
	assert.Equal(t, float64(1), m.Value(`step_changes_total{step="2"}`))
	assert.Equal(t, float64(1), m.Value(`step_changes_total{step="4"}`))

	lvt.Event(EventSubmit, nil)
	assert.Equal(t, float64(1), m.Value(`submissions_total{result="sent"}`))

	sender.err = errors.New("unavailable")
	lvt.Event(EventSubmit, nil)
	assert.Equal(t, float64(1), m.Value(`submissions_total{result="undelivered"}`))
}
