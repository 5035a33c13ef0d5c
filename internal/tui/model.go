// Package tui is the terminal front end of the team member wizard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vendapay/teamwizard/internal/teamform"
	"github.com/vendapay/teamwizard/pkg/forms"
	"github.com/vendapay/teamwizard/pkg/logging"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

const progressWidth = 30

// submittedMsg carries the result of handing a registration to the sender.
type submittedMsg struct {
	err error
}

type fieldInput struct {
	field  forms.Field
	input  textinput.Model
	choice int
}

// Model is the bubbletea model of the wizard. It drives the same
// controller and form as the LiveView page.
type Model struct {
	steps  wizard.Steps
	form   *forms.Form
	ctrl   *wizard.Controller
	sender teamform.Sender
	logger logging.Logger

	inputs map[string]*fieldInput
	focus  int
	// pendingFocus is the field to focus once a failed submit has
	// jumped to its step.
	pendingFocus string

	invalid  map[string]bool
	strength wizard.Strength
	flash    string
	flashOK  bool
	sending  bool
	quitting bool
	width    int
}

// Option configures a Model.
type Option func(*Model)

// WithSender sets where completed registrations go.
func WithSender(s teamform.Sender) Option {
	return func(m *Model) {
		m.sender = s
	}
}

// WithLogger sets the logger handed to the default sender.
func WithLogger(l logging.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// New builds the model over steps.
func New(steps wizard.Steps, opts ...Option) (*Model, error) {
	m := &Model{
		steps:   steps,
		form:    teamform.NewForm(),
		inputs:  make(map[string]*fieldInput),
		invalid: make(map[string]bool),
		logger:  logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sender == nil {
		m.sender = teamform.LogSender{Logger: m.logger}
	}
	if err := teamform.CheckSteps(steps, m.form); err != nil {
		return nil, err
	}

	for _, f := range m.form.Fields() {
		m.inputs[f.Name] = newFieldInput(f)
	}

	ctrl, err := wizard.New(steps, m.form, wizard.ObserverFuncs{
		OnStepChanged: func(int) {
			m.focus = 0
		},
		OnValidationFailed: func(step int, fields []string) {
			m.clearStep(step)
			for _, f := range fields {
				m.invalid[f] = true
			}
			m.pendingFocus = fields[0]
			m.focusField(fields[0])
		},
		OnValidationPassed: func(step int) {
			m.clearStep(step)
		},
		OnValidationCleared: func() {
			m.invalid = make(map[string]bool)
		},
		OnSubmissionSucceeded: func() {
			m.flash, m.flashOK = teamform.MsgSaved, true
		},
		OnSubmissionFailed: func(int) {
			m.flash, m.flashOK = teamform.MsgFixFields, false
			m.focusField(m.pendingFocus)
		},
	})
	if err != nil {
		return nil, err
	}
	m.ctrl = ctrl
	m.reset()
	return m, nil
}

func newFieldInput(f forms.Field) *fieldInput {
	ti := textinput.New()
	ti.Placeholder = f.Placeholder
	ti.Width = 40
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.PlaceholderStyle = placeholderSt
	if f.Secret() {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return &fieldInput{field: f, input: ti}
}

// reset starts a new registration: step 1, default values, no markers.
func (m *Model) reset() {
	m.form.Reset()
	for name, fi := range m.inputs {
		value := m.form.Value(name)
		fi.input.SetValue(value)
		fi.choice = 0
		for i, o := range fi.field.Options {
			if o.Value == value {
				fi.choice = i
			}
		}
	}
	m.strength = wizard.StrengthEmpty
	m.flash, m.flashOK = "", false
	m.ctrl.Initialize()
	m.applyFocus()
}

func (m *Model) clearStep(step int) {
	def, ok := m.steps.At(step)
	if !ok {
		return
	}
	for _, f := range def.FieldNames() {
		delete(m.invalid, f)
	}
}

// stepFields returns the fields shown on the current step.
func (m *Model) stepFields() []string {
	def, _ := m.steps.At(m.ctrl.Current())
	return def.FieldNames()
}

func (m *Model) focusField(name string) {
	for i, f := range m.stepFields() {
		if f == name {
			m.focus = i
		}
	}
}

func (m *Model) focused() *fieldInput {
	fields := m.stepFields()
	if m.focus < 0 || m.focus >= len(fields) {
		return nil
	}
	return m.inputs[fields[m.focus]]
}

// applyFocus focuses the input under m.focus and blurs every other one.
func (m *Model) applyFocus() tea.Cmd {
	current := m.focused()
	var cmd tea.Cmd
	for _, fi := range m.inputs {
		if fi == current {
			cmd = fi.input.Focus()
		} else {
			fi.input.Blur()
		}
	}
	return cmd
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	n := len(m.stepFields())
	if n == 0 {
		return nil
	}
	m.focus = (m.focus + delta + n) % n
	return m.applyFocus()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case submittedMsg:
		m.sending = false
		if msg.err != nil {
			m.flash, m.flashOK = teamform.MsgSaveFailed, false
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if fi := m.focused(); fi != nil {
		var cmd tea.Cmd
		fi.input, cmd = fi.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab", "down":
		return m, m.moveFocus(1)

	case "shift+tab", "up":
		return m, m.moveFocus(-1)

	case "ctrl+right", "pgdown":
		return m, m.advance(wizard.Forward)

	case "ctrl+left", "pgup":
		return m, m.advance(wizard.Back)

	case "ctrl+s":
		return m, m.submit()

	case "ctrl+n":
		m.reset()
		return m, m.applyFocus()

	case "enter":
		if m.focus < len(m.stepFields())-1 {
			return m, m.moveFocus(1)
		}
		if m.ctrl.Current() == m.ctrl.Total() {
			return m, m.submit()
		}
		return m, m.advance(wizard.Forward)
	}

	fi := m.focused()
	if fi == nil {
		return m, nil
	}
	if fi.field.Type == forms.FieldSelect {
		switch msg.String() {
		case "left", "right", " ":
			m.cycleChoice(fi, msg.String() == "left")
		}
		return m, nil
	}

	var cmd tea.Cmd
	fi.input, cmd = fi.input.Update(msg)
	m.setValue(fi.field.Name, fi.input.Value())
	return m, cmd
}

func (m *Model) cycleChoice(fi *fieldInput, back bool) {
	n := len(fi.field.Options)
	if n == 0 {
		return
	}
	if back {
		fi.choice = (fi.choice - 1 + n) % n
	} else {
		fi.choice = (fi.choice + 1) % n
	}
	m.setValue(fi.field.Name, fi.field.Options[fi.choice].Value)
}

func (m *Model) setValue(name, value string) {
	if err := m.form.Set(name, value); err != nil {
		return
	}
	if name == "password" {
		m.strength = wizard.ClassifyPassword(value)
	}
	if strings.TrimSpace(value) != "" {
		delete(m.invalid, name)
	}
}

func (m *Model) advance(direction int) tea.Cmd {
	before := m.ctrl.Current()
	if err := m.ctrl.Advance(direction); err != nil {
		if _, ok := wizard.IsValidationError(err); !ok {
			m.flash, m.flashOK = err.Error(), false
		}
	}
	if m.ctrl.Current() != before {
		m.flash = ""
	}
	return m.applyFocus()
}

func (m *Model) submit() tea.Cmd {
	if m.sending {
		return nil
	}
	result, err := m.ctrl.Submit()
	if err != nil || !result.OK {
		return m.applyFocus()
	}
	if step, bad := teamform.CheckValues(m.steps, m.form); len(bad) > 0 {
		m.rejectValues(step, bad)
		return m.applyFocus()
	}

	m.sending = true
	reg := teamform.NewRegistration(m.form.PublicValues())
	sender := m.sender
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return submittedMsg{err: sender.Send(ctx, reg)}
	}
}

// rejectValues marks fields whose values failed CheckValues and focuses
// the first one on its step. Nothing is sent.
func (m *Model) rejectValues(step int, fields []string) {
	for _, f := range fields {
		m.invalid[f] = true
	}
	if step != m.ctrl.Current() {
		if err := m.ctrl.Jump(step); err != nil {
			m.logger.Warn("jump to invalid step failed", logging.Int("step", step), logging.Err(err))
		}
	}
	m.focusField(fields[0])
	m.flash, m.flashOK = teamform.MsgFixFields, false
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	view := m.ctrl.View()

	var parts []string
	parts = append(parts, titleStyle.Render("New team member"), "")
	parts = append(parts, renderIndicator(view), renderProgress(view.Progress))
	parts = append(parts, helpStyle.Render(view.Info), "")

	for i, name := range m.stepFields() {
		parts = append(parts, m.renderField(name, i == m.focus))
	}

	if m.flash != "" {
		style := errorStyle
		if m.flashOK {
			style = successStyle
		}
		parts = append(parts, style.Render(m.flash))
	}

	parts = append(parts, "", helpStyle.Render(m.helpLine(view)))

	body := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if m.width > 0 {
		return frameStyle.MaxWidth(m.width).Render(body)
	}
	return frameStyle.Render(body)
}

func renderIndicator(view wizard.View) string {
	items := make([]string, 0, len(view.Steps))
	for _, sv := range view.Steps {
		switch sv.Status {
		case wizard.StatusCompleted:
			items = append(items, stepCompleted.Render("✓ "+sv.Title))
		case wizard.StatusActive:
			items = append(items, stepActive.Render("● "+sv.Title))
		default:
			items = append(items, stepPending.Render("○ "+sv.Title))
		}
	}
	return strings.Join(items, "  ")
}

func renderProgress(pct float64) string {
	filled := int(pct / 100 * progressWidth)
	if filled > progressWidth {
		filled = progressWidth
	}
	return progressFull.Render(strings.Repeat("█", filled)) +
		progressEmpty.Render(strings.Repeat("░", progressWidth-filled)) +
		helpStyle.Render(fmt.Sprintf(" %d%%", int(pct)))
}

func (m *Model) renderField(name string, focused bool) string {
	fi := m.inputs[name]
	def, _ := m.steps.At(m.ctrl.Current())

	label := labelStyle.Render(fi.field.Label)
	if focused {
		label = labelFocused.Render(fi.field.Label)
	}
	if def.IsRequired(name) {
		label += requiredMark.Render(" *")
	}

	lines := []string{label}
	if fi.field.Type == forms.FieldSelect {
		lines = append(lines, m.renderChoices(fi, focused))
	} else {
		lines = append(lines, fi.input.View())
	}
	if name == "password" && m.strength != wizard.StrengthEmpty {
		lines = append(lines, strengthStyles[m.strength].Render("strength: "+string(m.strength)))
	}
	if m.invalid[name] {
		lines = append(lines, invalidStyle.Render("✗ This field is required"))
	} else if fi.field.Help != "" && focused {
		lines = append(lines, helpStyle.Render(fi.field.Help))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func (m *Model) renderChoices(fi *fieldInput, focused bool) string {
	value := m.form.Value(fi.field.Name)
	items := make([]string, 0, len(fi.field.Options))
	for _, o := range fi.field.Options {
		if o.Value == value {
			style := labelStyle
			if focused {
				style = labelFocused
			}
			items = append(items, style.Render("["+o.Label+"]"))
		} else {
			items = append(items, helpStyle.Render(" "+o.Label+" "))
		}
	}
	return "> " + strings.Join(items, " ")
}

func (m *Model) helpLine(view wizard.View) string {
	keys := []string{"tab next field"}
	if view.ShowPrev {
		keys = append(keys, "ctrl+← back")
	}
	if view.ShowNext {
		keys = append(keys, "ctrl+→ next step")
	}
	if view.ShowSubmit {
		keys = append(keys, "ctrl+s save")
	}
	keys = append(keys, "ctrl+n new", "esc quit")
	return strings.Join(keys, " • ")
}

// Current returns the current step.
func (m *Model) Current() int {
	return m.ctrl.Current()
}

// Form returns the values typed so far.
func (m *Model) Form() *forms.Form {
	return m.form
}

// Invalid reports whether field is marked invalid.
func (m *Model) Invalid(field string) bool {
	return m.invalid[field]
}

// Strength returns the class of the password typed so far.
func (m *Model) Strength() wizard.Strength {
	return m.strength
}

// Flash returns the last message and whether it reports success.
func (m *Model) Flash() (string, bool) {
	return m.flash, m.flashOK
}

// Run starts the interactive program.
func Run(ctx context.Context, m *Model) error {
	_, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}
