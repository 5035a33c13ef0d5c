package wizard

import "fmt"

// StepStatus is the position of a step relative to the current one.
type StepStatus string

// Step statuses.
const (
	StatusCompleted StepStatus = "completed"
	StatusActive    StepStatus = "active"
	StatusPending   StepStatus = "pending"
)

// CompletedIcon replaces the icon of steps before the current one.
const CompletedIcon = "ti-check"

// StepView is the indicator state of one step.
type StepView struct {
	Index  int
	ID     string
	Title  string
	Icon   string
	Status StepStatus
}

// View is everything a presentation needs to resync after a state change.
type View struct {
	Current    int
	Total      int
	Progress   float64
	Steps      []StepView
	ShowPrev   bool
	ShowNext   bool
	ShowSubmit bool
	Info       string
}

// Active returns the definition of the current step.
func (v View) Active() StepView {
	if v.Current < 1 || v.Current > len(v.Steps) {
		return StepView{}
	}
	return v.Steps[v.Current-1]
}

// View computes the resync view-model for the current state.
func (c *Controller) View() View {
	return NewView(c.steps, c.current)
}

// NewView computes the view-model for current within steps.
func NewView(steps Steps, current int) View {
	total := len(steps)
	v := View{
		Current:    current,
		Total:      total,
		Progress:   Progress(current, total),
		Steps:      make([]StepView, 0, total),
		ShowPrev:   current > 1,
		ShowNext:   current < total,
		ShowSubmit: current == total,
		Info:       fmt.Sprintf("Step %d of %d", current, total),
	}
	for i, def := range steps {
		idx := i + 1
		sv := StepView{Index: idx, ID: def.ID, Title: def.Title, Icon: def.Icon}
		switch {
		case idx < current:
			sv.Status = StatusCompleted
			sv.Icon = CompletedIcon
		case idx == current:
			sv.Status = StatusActive
		default:
			sv.Status = StatusPending
		}
		v.Steps = append(v.Steps, sv)
	}
	return v
}

// Progress returns the percentage of the progress bar:
// (current-1)/(total-1)*100, or 100 for a single step wizard.
func Progress(current, total int) float64 {
	if total <= 1 {
		return 100
	}
	return float64(current-1) / float64(total-1) * 100
}
