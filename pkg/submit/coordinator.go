// Package submit coordinates the submission lifecycle: full re-validation,
// the at-most-one-in-flight guard, serialisation, the prediction call, and
// the success/failure transitions.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-scoreform/pkg/prediction"
	"github.com/goliatone/go-scoreform/pkg/session"
	"github.com/goliatone/go-scoreform/pkg/store"
)

// Classifier is the external prediction collaborator. Implementations may
// compute locally or call a remote service; callers only rely on the call
// eventually resolving or failing.
type Classifier interface {
	Classify(ctx context.Context, req prediction.Request) (*prediction.Result, error)
}

// OutcomeStatus partitions submission results.
type OutcomeStatus string

const (
	// Accepted means the prediction succeeded and the snapshot was cleared.
	Accepted OutcomeStatus = "accepted"
	// RejectedValidation means a field somewhere failed local validation.
	RejectedValidation OutcomeStatus = "rejected-validation"
	// RejectedTransport means the prediction call failed; form data and the
	// persisted snapshot are preserved for retry.
	RejectedTransport OutcomeStatus = "rejected-transport"
	// RejectedBusy means a submission was already in flight.
	RejectedBusy OutcomeStatus = "rejected-busy"
)

// Outcome reports how a submission resolved.
type Outcome struct {
	Status OutcomeStatus
	Result *prediction.Result
	Issues []session.Issue
	Step   int
	Err    error
}

// ControlSurface re-enables or disables the interactive controls around a
// submission. External collaborator; nil is ignored.
type ControlSurface interface {
	DisableControls()
	EnableControls()
}

// Option customises the coordinator.
type Option func(*Coordinator)

// WithSnapshots attaches the persistence adapter cleared on success.
func WithSnapshots(snapshots *store.Adapter) Option {
	return func(c *Coordinator) {
		c.snapshots = snapshots
	}
}

// WithControls attaches the control surface toggled around submissions.
func WithControls(controls ControlSurface) Option {
	return func(c *Coordinator) {
		c.controls = controls
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Coordinator drives submissions for sessions. Safe for concurrent use; the
// per-session submitting guard serialises attempts on the same session.
type Coordinator struct {
	classifier Classifier
	snapshots  *store.Adapter
	controls   ControlSurface
	logger     *slog.Logger
}

// New constructs a coordinator around the prediction collaborator.
func New(classifier Classifier, options ...Option) *Coordinator {
	c := &Coordinator{
		classifier: classifier,
		logger:     slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Submit runs the full submission algorithm. Every step's required fields
// are re-validated first: a session can reach the last step through a
// restored snapshot without earlier steps ever being re-checked.
func (c *Coordinator) Submit(ctx context.Context, s *session.Session) Outcome {
	firstInvalidStep, issues := s.ValidateAll()
	if firstInvalidStep > 0 {
		s.NavigateTo(firstInvalidStep)
		c.notifyError(s, validationSummary(len(issues)))
		return Outcome{Status: RejectedValidation, Issues: issues, Step: firstInvalidStep}
	}

	if !s.BeginSubmit() {
		return Outcome{Status: RejectedBusy, Step: s.CurrentStep()}
	}
	if c.controls != nil {
		c.controls.DisableControls()
	}
	defer func() {
		// Guaranteed cleanup: controls come back and the guard releases no
		// matter how the attempt resolved.
		if c.controls != nil {
			c.controls.EnableControls()
		}
		s.EndSubmit()
	}()

	req, err := prediction.ParseValues(s.Values())
	if err != nil {
		c.logger.Error("submit: serialize form values", "session", s.ID(), "error", err)
		c.notifyError(s, "The form contains values that could not be submitted.")
		return Outcome{Status: RejectedValidation, Step: s.CurrentStep(), Err: err}
	}

	result, err := c.classifier.Classify(ctx, req)
	if err != nil {
		c.logger.Warn("submit: prediction failed", "session", s.ID(), "error", err)
		c.notifyError(s, transportMessage(err))
		return Outcome{Status: RejectedTransport, Step: s.CurrentStep(), Err: err}
	}

	if c.snapshots != nil {
		c.snapshots.Clear()
	}
	return Outcome{Status: Accepted, Result: result, Step: s.CurrentStep()}
}

func (c *Coordinator) notifyError(s *session.Session, message string) {
	if notifier := s.Notifier(); notifier != nil {
		notifier.Error(message)
	}
}

// transportMessage surfaces upstream model errors verbatim and folds every
// other transport failure into a retry prompt.
func transportMessage(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Message
	}
	return "Prediction request failed. Please try again."
}

func validationSummary(count int) string {
	if count == 1 {
		return "Please fix 1 field before submitting."
	}
	return fmt.Sprintf("Please fix %d fields before submitting.", count)
}
