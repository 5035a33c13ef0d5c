package teamform

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/vendapay/teamwizard/pkg/forms"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

// renderBody renders the live container content: the open button and the
// registration modal.
func (w *Wizard) renderBody() string {
	view := w.ctrl.View()

	var b strings.Builder
	b.WriteString(`<div id="team-wizard" lv-keydown="keydown">`)
	b.WriteString(`<div class="page-header"><h1><i class="ti ti-users"></i> Team</h1>`)
	b.WriteString(`<button type="button" id="openModalBtn" class="btn btn-primary" lv-click="open_modal"><i class="ti ti-user-plus"></i> New member</button></div>`)

	if w.flash != "" && !w.open {
		b.WriteString(renderFlash(w.flash, w.flashOK))
	}

	modalClass := "modal"
	if w.open {
		modalClass += " show"
	}
	fmt.Fprintf(&b, `<div id="userFormModal" class="%s" aria-hidden="%t">`, modalClass, !w.open)
	b.WriteString(`<div class="modal-dialog"><div class="modal-content">`)
	b.WriteString(`<div class="modal-header"><h2>New team member</h2>`)
	b.WriteString(`<button type="button" class="btn-close" lv-click="close_modal" aria-label="Close"><i class="ti ti-x"></i></button></div>`)

	fmt.Fprintf(&b, `<div class="progress"><div id="progressBar" class="progress-bar" data-progress="%s"></div></div>`,
		strconv.FormatFloat(view.Progress, 'f', 1, 64))

	b.WriteString(`<ol class="step-indicator">`)
	for _, sv := range view.Steps {
		b.WriteString(renderIndicator(sv))
	}
	b.WriteString(`</ol>`)

	if w.flash != "" && w.open {
		b.WriteString(renderFlash(w.flash, w.flashOK))
	}

	b.WriteString(`<form id="userForm" lv-submit="submit" novalidate>`)
	for _, sv := range view.Steps {
		def, _ := w.steps.At(sv.Index)
		class := "step-content"
		if sv.Status == wizard.StatusActive {
			class += " active"
		}
		fmt.Fprintf(&b, `<section id="step-%d" class="%s" data-step-id="%s">`, sv.Index, class, html.EscapeString(def.ID))
		for _, name := range def.FieldNames() {
			field, _ := w.form.Field(name)
			b.WriteString(w.renderField(field, def.IsRequired(name)))
		}
		b.WriteString(`</section>`)
	}

	b.WriteString(`<div class="modal-footer">`)
	fmt.Fprintf(&b, `<span id="step-info" class="step-info">%s</span>`, html.EscapeString(view.Info))
	fmt.Fprintf(&b, `<button type="button" id="prevBtn" class="btn btn-secondary" lv-click="prev_step"%s><i class="ti ti-arrow-left"></i> Previous</button>`, hiddenAttr(view.ShowPrev))
	fmt.Fprintf(&b, `<button type="button" id="nextBtn" class="btn btn-primary" lv-click="next_step"%s>Next <i class="ti ti-arrow-right"></i></button>`, hiddenAttr(view.ShowNext))
	fmt.Fprintf(&b, `<button type="submit" id="submitBtn" class="btn btn-success"%s><i class="ti ti-device-floppy"></i> Save</button>`, hiddenAttr(view.ShowSubmit))
	b.WriteString(`</div></form>`)

	b.WriteString(`</div></div></div></div>`)
	return b.String()
}

func renderIndicator(sv wizard.StepView) string {
	circle := "step-circle"
	label := "step-label"
	icon := sv.Icon
	switch sv.Status {
	case wizard.StatusCompleted:
		circle += " completed"
		icon = wizard.CompletedIcon
	case wizard.StatusActive:
		circle += " active"
		label += " active"
	}
	return fmt.Sprintf(`<li class="step" data-step="%d"><span id="step-circle-%d" class="%s"><i class="ti %s"></i></span><span class="%s">%s</span></li>`,
		sv.Index, sv.Index, circle, html.EscapeString(icon), label, html.EscapeString(sv.Title))
}

func (w *Wizard) renderField(f forms.Field, required bool) string {
	var b strings.Builder
	id := html.EscapeString(f.Name)

	class := "form-control"
	if f.Type == forms.FieldSelect {
		class = "form-select"
	}
	if w.invalid[f.Name] {
		class += " is-invalid"
	}
	req := ""
	if required {
		req = " required"
	}

	b.WriteString(`<div class="form-group">`)
	fmt.Fprintf(&b, `<label for="%s">%s`, id, html.EscapeString(f.Label))
	if required {
		b.WriteString(` <span class="required-mark">*</span>`)
	}
	b.WriteString(`</label>`)

	switch f.Type {
	case forms.FieldSelect:
		fmt.Fprintf(&b, `<select id="%s" name="%s" class="%s" lv-change="update_field"%s>`, id, id, class, req)
		current := w.form.Value(f.Name)
		for _, o := range f.Options {
			selected := ""
			if o.Value == current {
				selected = " selected"
			}
			fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, html.EscapeString(o.Value), selected, html.EscapeString(o.Label))
		}
		b.WriteString(`</select>`)
	default:
		value := ""
		extra := ""
		if !f.Secret() {
			value = html.EscapeString(w.form.Value(f.Name))
		} else if w.form.Value(f.Name) != "" {
			// secrets are never echoed; live.js keeps what the browser has
			extra = ` data-filled="1"`
		}
		if f.Type == forms.FieldNumber {
			extra += ` step="0.01" min="0"`
		}
		if f.Placeholder != "" {
			extra += fmt.Sprintf(` placeholder="%s"`, html.EscapeString(f.Placeholder))
		}
		fmt.Fprintf(&b, `<input type="%s" id="%s" name="%s" class="%s" value="%s" lv-change="update_field" autocomplete="off"%s%s>`,
			f.Type, id, id, class, value, extra, req)
	}

	if f.Name == "password" {
		fmt.Fprintf(&b, `<div class="password-strength"><div id="passwordStrengthBar" class="password-strength-bar %s"></div></div>`, w.strength)
	}
	if f.Help != "" {
		fmt.Fprintf(&b, `<small class="form-text">%s</small>`, html.EscapeString(f.Help))
	}
	if w.invalid[f.Name] {
		b.WriteString(`<div class="invalid-feedback">This field is required</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func renderFlash(msg string, ok bool) string {
	kind := "alert-danger"
	if ok {
		kind = "alert-success"
	}
	return fmt.Sprintf(`<div id="flash" class="alert %s" role="alert">%s</div>`, kind, html.EscapeString(msg))
}

func hiddenAttr(show bool) string {
	if show {
		return ""
	}
	return " hidden"
}

// renderLayout wraps the component in the document served on the first
// HTTP request. live.js connects back to the same path.
func renderLayout(body string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Team members</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@tabler/icons-webfont@2.47.0/tabler-icons.min.css">
    <link rel="stylesheet" href="/_live/teamwizard.css">
</head>
<body>
    <main id="lv-container">` + body + `</main>
    <script src="/_live/live.js" defer></script>
</body>
</html>`
}
