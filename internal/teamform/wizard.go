// Package teamform is the LiveView page that registers new team members
// through the step wizard.
package teamform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vendapay/teamwizard/pkg/core"
	"github.com/vendapay/teamwizard/pkg/forms"
	"github.com/vendapay/teamwizard/pkg/logging"
	"github.com/vendapay/teamwizard/pkg/metrics"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

// Events handled by the component.
const (
	EventOpenModal   = "open_modal"
	EventCloseModal  = "close_modal"
	EventUpdateField = "update_field"
	EventNextStep    = "next_step"
	EventPrevStep    = "prev_step"
	EventKeydown     = "keydown"
	EventSubmit      = "submit"
)

// Flash messages.
const (
	MsgSaved      = "User saved successfully"
	MsgSaveFailed = "Could not save the user, try again"
	MsgFixFields  = "Fill in the highlighted fields"
)

// Errors returned to the client as error replies.
var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadPayload   = errors.New("malformed event payload")
)

// Wizard is the team member registration page.
type Wizard struct {
	core.BaseComponent

	steps   wizard.Steps
	form    *forms.Form
	ctrl    *wizard.Controller
	sender  Sender
	logger  logging.Logger
	metrics *metrics.Metrics

	open     bool
	invalid  map[string]bool
	strength wizard.Strength
	flash    string
	flashOK  bool
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithSteps replaces the built-in step definitions.
func WithSteps(steps wizard.Steps) Option {
	return func(w *Wizard) {
		w.steps = steps
	}
}

// WithSender sets where completed registrations go.
func WithSender(s Sender) Option {
	return func(w *Wizard) {
		w.sender = s
	}
}

// WithLogger sets the component logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Wizard) {
		w.logger = l
	}
}

// WithMetrics records step changes, validation failures and submissions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Wizard) {
		w.metrics = m
	}
}

// New creates a wizard. Every field named by the steps must exist in the
// team member form.
func New(opts ...Option) (*Wizard, error) {
	w := &Wizard{
		steps:   wizard.TeamSteps(),
		form:    NewForm(),
		invalid: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.NopLogger{}
	}
	if w.sender == nil {
		w.sender = LogSender{Logger: w.logger}
	}

	if err := CheckSteps(w.steps, w.form); err != nil {
		return nil, err
	}

	ctrl, err := wizard.New(w.steps, w.form, wizard.MultiObserver{w.observer(), metricsObserver(w.metrics)})
	if err != nil {
		return nil, fmt.Errorf("team wizard: %w", err)
	}
	w.ctrl = ctrl
	return w, nil
}

// Factory validates opts once and returns a constructor for the router.
func Factory(opts ...Option) (func() core.Component, error) {
	if _, err := New(opts...); err != nil {
		return nil, err
	}
	return func() core.Component {
		w, _ := New(opts...)
		return w
	}, nil
}

// observer keeps the invalid markers, assigns and flash in sync with the
// controller.
func (w *Wizard) observer() wizard.Observer {
	return wizard.ObserverFuncs{
		OnStepChanged: func(step int) {
			w.Assigns().Set("step", step)
			w.logger.Debug("step changed", logging.Int("step", step))
		},
		OnValidationFailed: func(step int, fields []string) {
			w.clearStepMarkers(step)
			for _, f := range fields {
				w.invalid[f] = true
			}
			w.syncInvalid()
			w.logger.Debug("step invalid", logging.Int("step", step), logging.Strings("fields", fields))
		},
		OnValidationPassed: func(step int) {
			w.clearStepMarkers(step)
			w.syncInvalid()
		},
		OnValidationCleared: func() {
			w.invalid = make(map[string]bool)
			w.syncInvalid()
		},
		OnSubmissionSucceeded: func() {
			w.setFlash(MsgSaved, true)
		},
		OnSubmissionFailed: func(step int) {
			w.setFlash(MsgFixFields, false)
			w.logger.Info("submission rejected", logging.Int("step", step))
		},
	}
}

// metricsObserver counts step changes, failed validations and rejected
// submits.
func metricsObserver(m *metrics.Metrics) wizard.Observer {
	return wizard.ObserverFuncs{
		OnStepChanged:      m.StepChanged,
		OnValidationFailed: func(step int, _ []string) { m.ValidationFailed(step) },
		OnSubmissionFailed: func(int) { m.Submitted(metrics.SubmitRejected) },
	}
}

func (w *Wizard) clearStepMarkers(step int) {
	def, ok := w.steps.At(step)
	if !ok {
		return
	}
	for _, f := range def.FieldNames() {
		delete(w.invalid, f)
	}
}

func (w *Wizard) syncInvalid() {
	w.Assigns().Set("invalid", w.InvalidFields())
}

func (w *Wizard) setFlash(msg string, ok bool) {
	w.flash = msg
	w.flashOK = ok
	w.Assigns().Set("flash", msg)
}

// Name returns the component name.
func (w *Wizard) Name() string {
	return "team-wizard"
}

// Mount resets the wizard. The modal starts open when the page is loaded
// with ?open=1.
func (w *Wizard) Mount(ctx context.Context, params core.Params, session core.Session) error {
	if l := logging.LoggerFromContext(ctx); l != nil {
		w.logger = l
	}
	w.reset()
	w.setOpen(params.Get("open") == "1")
	return nil
}

// reset is what opening the modal does: step 1, default values, no
// markers, no flash.
func (w *Wizard) reset() {
	w.form.Reset()
	w.ctrl.Initialize()
	w.strength = wizard.StrengthEmpty
	w.Assigns().Set("strength", string(w.strength))
	w.setFlash("", false)
}

func (w *Wizard) setOpen(open bool) {
	w.open = open
	w.Assigns().Set("open", open)
}

// HandleEvent applies one user event.
func (w *Wizard) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case EventOpenModal:
		w.reset()
		w.setOpen(true)
		return nil

	case EventCloseModal:
		w.setOpen(false)
		return nil

	case EventUpdateField:
		field, ok := payload["field"].(string)
		if !ok || field == "" {
			return fmt.Errorf("%w: missing field", ErrBadPayload)
		}
		return w.updateField(field, stringValue(payload["value"]))

	case EventNextStep:
		return w.navigate(wizard.Forward)

	case EventPrevStep:
		return w.navigate(wizard.Back)

	case EventKeydown:
		if !w.open {
			return nil
		}
		key, _ := payload["key"].(string)
		switch {
		case key == "ArrowLeft" && w.ctrl.Current() > 1:
			return w.navigate(wizard.Back)
		case key == "ArrowRight" && w.ctrl.Current() < w.ctrl.Total():
			return w.navigate(wizard.Forward)
		}
		return nil

	case EventSubmit:
		return w.submit(ctx)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
}

func (w *Wizard) updateField(name, value string) error {
	if err := w.form.Set(name, value); err != nil {
		return err
	}

	field, _ := w.form.Field(name)
	if field.Type == forms.FieldPassword && name == "password" {
		w.strength = wizard.ClassifyPassword(value)
		w.Assigns().Set("strength", string(w.strength))
	}
	if strings.TrimSpace(value) != "" && w.invalid[name] {
		delete(w.invalid, name)
		w.syncInvalid()
	}
	return nil
}

// navigate moves the wizard. Validation failures are shown as markers, not
// returned.
func (w *Wizard) navigate(direction int) error {
	err := w.ctrl.Advance(direction)
	if _, ok := wizard.IsValidationError(err); ok {
		return nil
	}
	return err
}

func (w *Wizard) submit(ctx context.Context) error {
	result, err := w.ctrl.Submit()
	if _, ok := wizard.IsValidationError(err); ok {
		return nil
	}
	if err != nil {
		return err
	}
	if !result.OK {
		return nil
	}
	if step, bad := CheckValues(w.steps, w.form); len(bad) > 0 {
		w.rejectValues(step, bad)
		return nil
	}

	reg := NewRegistration(w.form.PublicValues())
	if err := w.sender.Send(ctx, reg); err != nil {
		w.logger.Error("registration not delivered", logging.Err(err))
		w.setFlash(MsgSaveFailed, false)
		w.metrics.Submitted(metrics.SubmitUndelivered)
		return nil
	}
	w.metrics.Submitted(metrics.SubmitSent)
	return nil
}

// rejectValues marks fields whose values failed CheckValues and moves to
// the step showing the first of them. Nothing is sent.
func (w *Wizard) rejectValues(step int, fields []string) {
	for _, f := range fields {
		w.invalid[f] = true
	}
	w.syncInvalid()
	if step != w.ctrl.Current() {
		if err := w.ctrl.Jump(step); err != nil {
			w.logger.Warn("jump to invalid step failed", logging.Int("step", step), logging.Err(err))
		}
	}
	w.setFlash(MsgFixFields, false)
	w.metrics.Submitted(metrics.SubmitRejected)
	w.logger.Info("submission rejected",
		logging.Int("step", step),
		logging.Strings("fields", fields),
	)
}

// Render renders the page. Without a socket (the first HTTP request) the
// component is wrapped in the full HTML document.
func (w *Wizard) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, out io.Writer) error {
		body := w.renderBody()
		if w.Socket() == nil {
			body = renderLayout(body)
		}
		_, err := io.WriteString(out, body)
		return err
	})
}

// Terminate logs the end of the connection.
func (w *Wizard) Terminate(ctx context.Context, reason core.TerminateReason) error {
	if w.Socket() != nil {
		w.logger.Debug("wizard closed", logging.String("reason", reason.String()))
	}
	return nil
}

// Current returns the current step.
func (w *Wizard) Current() int {
	return w.ctrl.Current()
}

// IsOpen reports whether the modal is shown.
func (w *Wizard) IsOpen() bool {
	return w.open
}

// Form returns the values typed so far.
func (w *Wizard) Form() *forms.Form {
	return w.form
}

// InvalidFields returns the sorted names of the fields marked invalid.
func (w *Wizard) InvalidFields() []string {
	out := make([]string, 0, len(w.invalid))
	for f := range w.invalid {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Strength returns the class of the password typed so far.
func (w *Wizard) Strength() wizard.Strength {
	return w.strength
}

// Flash returns the last flash message and whether it reports success.
func (w *Wizard) Flash() (string, bool) {
	return w.flash, w.flashOK
}

func stringValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
