// Package session owns the multi-step form state machine: current step,
// per-field raw values and validation states, and the submitting guard. It
// has no ambient globals; every operation acts on an explicit Session.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/goliatone/go-scoreform/pkg/form"
	"github.com/goliatone/go-scoreform/pkg/validate"
)

// ValidationState tracks whether a field has been validated and the result.
type ValidationState string

const (
	StateUnvalidated ValidationState = "unvalidated"
	StateValid       ValidationState = "valid"
	StateInvalid     ValidationState = "invalid"
)

// FieldState is the mutable per-field portion of a session.
type FieldState struct {
	Value   string          `json:"value"`
	State   ValidationState `json:"state"`
	Message string          `json:"message,omitempty"`
}

// Issue names a field that failed validation together with its message.
type Issue struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Indicator describes the visual state of one step marker.
type Indicator struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Active    bool   `json:"active"`
	Completed bool   `json:"completed"`
}

// StepResult reports the outcome of a navigation attempt. When the move is
// rejected, Issues carries the failing fields and FocusField the first
// invalid control; when it commits, FocusField is the first control of the
// newly entered step.
type StepResult struct {
	Moved      bool
	Step       int
	Issues     []Issue
	FocusField string
}

// Announcer receives screen-reader style announcements. External
// collaborator; a nil announcer is ignored.
type Announcer interface {
	Announce(message string)
}

// Notifier receives human-readable notifications. External collaborator; a
// nil notifier is ignored.
type Notifier interface {
	Info(message string)
	Error(message string)
}

// Option customises session construction.
type Option func(*Session)

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithAnnouncer attaches the announcement sink.
func WithAnnouncer(announcer Announcer) Option {
	return func(s *Session) {
		s.announcer = announcer
	}
}

// WithNotifier attaches the notification sink.
func WithNotifier(notifier Notifier) Option {
	return func(s *Session) {
		s.notifier = notifier
	}
}

// WithChangeListener registers a callback fired after every value edit.
// The persistence adapter uses this to schedule debounced snapshots.
func WithChangeListener(fn func(*Session)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// Session is a single in-progress run through the form. Created on page load
// (optionally rehydrated from a snapshot) and discarded after a successful
// submission.
type Session struct {
	id  string
	def *form.Definition

	mu      sync.Mutex
	current int
	fields  map[string]*FieldState

	submitting atomic.Bool

	announcer Announcer
	notifier  Notifier
	onChange  func(*Session)
}

// New creates a session positioned on step 1 with every field unvalidated.
func New(def *form.Definition, options ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		def:     def,
		current: 1,
		fields:  make(map[string]*FieldState, len(def.FieldNames())),
	}
	for _, name := range def.FieldNames() {
		s.fields[name] = &FieldState{State: StateUnvalidated}
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// ID returns the session identifier used to namespace persisted snapshots.
func (s *Session) ID() string {
	return s.id
}

// Definition returns the immutable form definition.
func (s *Session) Definition() *form.Definition {
	return s.def
}

// CurrentStep returns the 1-based active step index.
func (s *Session) CurrentStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Progress reports completion as currentStep/N.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.current) / float64(s.def.StepCount())
}

// SetValue records an edit. The field drops back to unvalidated until the
// next validation pass. Unknown names are rejected.
func (s *Session) SetValue(name, value string) error {
	s.mu.Lock()
	state, ok := s.fields[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("session: unknown field %q", name)
	}
	state.Value = value
	state.State = StateUnvalidated
	state.Message = ""
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(s)
	}
	return nil
}

// Value returns a field's raw value.
func (s *Session) Value(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.fields[name]; ok {
		return state.Value
	}
	return ""
}

// Values returns every field's raw value keyed by name.
func (s *Session) Values() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.fields))
	for name, state := range s.fields {
		out[name] = state.Value
	}
	return out
}

// FieldState returns a copy of the mutable state for one field.
func (s *Session) FieldState(name string) (FieldState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.fields[name]
	if !ok {
		return FieldState{}, false
	}
	return *state, true
}

// Restore prefills fields whose names match snapshot entries. Fields without
// a matching entry keep their defaults. Emits a one-time restoration notice.
func (s *Session) Restore(snapshot map[string]string) {
	if len(snapshot) == 0 {
		return
	}
	s.mu.Lock()
	restored := false
	for name, value := range snapshot {
		if state, ok := s.fields[name]; ok {
			state.Value = value
			state.State = StateUnvalidated
			state.Message = ""
			restored = true
		}
	}
	notifier := s.notifier
	s.mu.Unlock()

	if restored && notifier != nil {
		notifier.Info("Previous form data has been restored.")
	}
}

// Advance validates the current step and, when every required field passes,
// commits currentStep+1 capped at N. Stepping past the final step is
// rejected; the submission path handles it instead.
func (s *Session) Advance() StepResult {
	s.mu.Lock()
	issues := s.validateStepLocked(s.current)
	if len(issues) > 0 {
		result := StepResult{
			Step:       s.current,
			Issues:     issues,
			FocusField: issues[0].Name,
		}
		notifier := s.notifier
		s.mu.Unlock()

		if notifier != nil {
			notifier.Error(issueSummary(len(issues)))
		}
		return result
	}

	if s.current >= s.def.StepCount() {
		result := StepResult{Step: s.current}
		s.mu.Unlock()
		return result
	}

	s.current++
	return s.commitTransitionLocked()
}

// Retreat moves back one step unconditionally: no validation runs and no
// data is cleared. At step 1 it is a no-op.
func (s *Session) Retreat() StepResult {
	s.mu.Lock()
	if s.current <= 1 {
		result := StepResult{Step: s.current}
		s.mu.Unlock()
		return result
	}
	s.current--
	return s.commitTransitionLocked()
}

// NavigateTo jumps to a step without validation. The submission coordinator
// uses it to return the user to the first step holding an invalid field.
func (s *Session) NavigateTo(step int) StepResult {
	s.mu.Lock()
	if step < 1 {
		step = 1
	}
	if max := s.def.StepCount(); step > max {
		step = max
	}
	if step == s.current {
		result := StepResult{Step: s.current}
		s.mu.Unlock()
		return result
	}
	s.current = step
	return s.commitTransitionLocked()
}

// commitTransitionLocked finishes a committed step change: it releases the
// lock, emits the step announcement, and reports the focus target. Callers
// must hold s.mu.
func (s *Session) commitTransitionLocked() StepResult {
	step, _ := s.def.StepAt(s.current)
	result := StepResult{
		Moved:      true,
		Step:       s.current,
		FocusField: step.FieldNames[0],
	}
	announcer := s.announcer
	total := s.def.StepCount()
	s.mu.Unlock()

	if announcer != nil {
		announcer.Announce(fmt.Sprintf("Step %d of %d: %s", result.Step, total, step.Title))
	}
	return result
}

// ValidateStep runs the field validator over one step and records per-field
// results.
func (s *Session) ValidateStep(index int) []Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateStepLocked(index)
}

// ValidateAll re-validates every step. It returns the collected issues plus
// the first step containing an invalid field (0 when everything passes).
func (s *Session) ValidateAll() (int, []Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	firstInvalidStep := 0
	var all []Issue
	for index := 1; index <= s.def.StepCount(); index++ {
		issues := s.validateStepLocked(index)
		if len(issues) > 0 && firstInvalidStep == 0 {
			firstInvalidStep = index
		}
		all = append(all, issues...)
	}
	return firstInvalidStep, all
}

func (s *Session) validateStepLocked(index int) []Issue {
	var issues []Issue
	for _, field := range s.def.FieldsForStep(index) {
		state := s.fields[field.Name]
		verdict := validate.Field(field, state.Value)
		if verdict.OK {
			state.State = StateValid
			state.Message = ""
			continue
		}
		state.State = StateInvalid
		state.Message = verdict.Message
		issues = append(issues, Issue{Name: field.Name, Message: verdict.Message})
	}
	return issues
}

// Indicators returns the visual state for every step marker: completed for
// steps before the current one, active for the current one.
func (s *Session) Indicators() []Indicator {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Indicator, 0, s.def.StepCount())
	for _, step := range s.def.Steps {
		out = append(out, Indicator{
			Index:     step.Index,
			Title:     step.Title,
			Active:    step.Index == s.current,
			Completed: step.Index < s.current,
		})
	}
	return out
}

// BeginSubmit flips the submitting guard. It reports false when a submission
// is already in flight, making a second attempt a no-op.
func (s *Session) BeginSubmit() bool {
	return s.submitting.CompareAndSwap(false, true)
}

// EndSubmit releases the submitting guard.
func (s *Session) EndSubmit() {
	s.submitting.Store(false)
}

// Submitting reports whether a submission is in flight.
func (s *Session) Submitting() bool {
	return s.submitting.Load()
}

// Notifier returns the attached notification sink, if any.
func (s *Session) Notifier() Notifier {
	return s.notifier
}

func issueSummary(count int) string {
	if count == 1 {
		return "Please fix 1 field before continuing."
	}
	return fmt.Sprintf("Please fix %d fields before continuing.", count)
}
