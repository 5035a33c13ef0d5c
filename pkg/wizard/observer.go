package wizard

// Observer receives the signals the controller emits. Presentation layers
// implement it to re-render after state changes.
type Observer interface {
	// StepChanged is emitted after the current step is set, including the
	// reset performed by Initialize. It asks for a full resync.
	StepChanged(step int)

	// ValidationFailed lists the empty required fields of a step.
	ValidationFailed(step int, fields []string)

	// ValidationPassed is emitted when every required field of a step is filled.
	ValidationPassed(step int)

	// ValidationCleared asks the presentation to drop all invalid markers.
	ValidationCleared()

	// SubmissionSucceeded is emitted when every step validates on submit.
	SubmissionSucceeded()

	// SubmissionFailed is emitted with the first step that failed on submit.
	SubmissionFailed(step int)
}

// ObserverFuncs adapts optional callbacks to the Observer interface.
// Nil callbacks are skipped.
type ObserverFuncs struct {
	OnStepChanged         func(step int)
	OnValidationFailed    func(step int, fields []string)
	OnValidationPassed    func(step int)
	OnValidationCleared   func()
	OnSubmissionSucceeded func()
	OnSubmissionFailed    func(step int)
}

func (o ObserverFuncs) StepChanged(step int) {
	if o.OnStepChanged != nil {
		o.OnStepChanged(step)
	}
}

func (o ObserverFuncs) ValidationFailed(step int, fields []string) {
	if o.OnValidationFailed != nil {
		o.OnValidationFailed(step, fields)
	}
}

func (o ObserverFuncs) ValidationPassed(step int) {
	if o.OnValidationPassed != nil {
		o.OnValidationPassed(step)
	}
}

func (o ObserverFuncs) ValidationCleared() {
	if o.OnValidationCleared != nil {
		o.OnValidationCleared()
	}
}

func (o ObserverFuncs) SubmissionSucceeded() {
	if o.OnSubmissionSucceeded != nil {
		o.OnSubmissionSucceeded()
	}
}

func (o ObserverFuncs) SubmissionFailed(step int) {
	if o.OnSubmissionFailed != nil {
		o.OnSubmissionFailed(step)
	}
}

// MultiObserver fans every signal out to each observer in order.
type MultiObserver []Observer

func (m MultiObserver) StepChanged(step int) {
	for _, o := range m {
		o.StepChanged(step)
	}
}

func (m MultiObserver) ValidationFailed(step int, fields []string) {
	for _, o := range m {
		o.ValidationFailed(step, fields)
	}
}

func (m MultiObserver) ValidationPassed(step int) {
	for _, o := range m {
		o.ValidationPassed(step)
	}
}

func (m MultiObserver) ValidationCleared() {
	for _, o := range m {
		o.ValidationCleared()
	}
}

func (m MultiObserver) SubmissionSucceeded() {
	for _, o := range m {
		o.SubmissionSucceeded()
	}
}

func (m MultiObserver) SubmissionFailed(step int) {
	for _, o := range m {
		o.SubmissionFailed(step)
	}
}

// nopObserver discards all signals.
type nopObserver struct{}

func (nopObserver) StepChanged(int)               {}
func (nopObserver) ValidationFailed(int, []string) {}
func (nopObserver) ValidationPassed(int)          {}
func (nopObserver) ValidationCleared()            {}
func (nopObserver) SubmissionSucceeded()          {}
func (nopObserver) SubmissionFailed(int)          {}
