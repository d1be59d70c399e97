// Package tui drives the multi-step form as an interactive terminal session:
// the same definition, validation, persistence, and submission pipeline as
// the HTML surface, fronted by survey prompts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/goliatone/go-scoreform/pkg/form"
	"github.com/goliatone/go-scoreform/pkg/prediction"
	"github.com/goliatone/go-scoreform/pkg/session"
	"github.com/goliatone/go-scoreform/pkg/store"
	"github.com/goliatone/go-scoreform/pkg/submit"
	"github.com/goliatone/go-scoreform/pkg/validate"
)

const (
	choiceNext   = "Next step"
	choiceBack   = "Go back"
	choiceSubmit = "Get my score"
	choiceEdit   = "Edit this step again"
	choiceQuit   = "Save and quit"
)

// Option configures the runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver used by the runner.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithSnapshots attaches the persistence adapter used to restore and save
// form progress between sessions.
func WithSnapshots(adapter *store.Adapter) Option {
	return func(r *Runner) {
		r.snapshots = adapter
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner walks a user through the form one step at a time and submits the
// answers through the coordinator.
type Runner struct {
	def         *form.Definition
	coordinator *submit.Coordinator
	driver      PromptDriver
	snapshots   *store.Adapter
	logger      *slog.Logger
}

// New constructs a runner with the survey driver by default.
func New(def *form.Definition, coordinator *submit.Coordinator, options ...Option) (*Runner, error) {
	if def == nil {
		return nil, errors.New("tui: definition is required")
	}
	if coordinator == nil {
		return nil, errors.New("tui: coordinator is required")
	}

	driver, err := newSurveyDriver()
	if err != nil {
		return nil, err
	}
	r := &Runner{
		def:         def,
		coordinator: coordinator,
		driver:      driver,
		logger:      slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r, nil
}

// Run executes the interactive session until submission succeeds or the user
// quits. A quit saves progress; ErrAborted is returned on Ctrl+C.
func (r *Runner) Run(ctx context.Context) error {
	bridge := &driverBridge{ctx: ctx, driver: r.driver}
	options := []session.Option{
		session.WithAnnouncer(bridge),
		session.WithNotifier(bridge),
	}

	var saver *store.DebouncedSaver
	if r.snapshots != nil {
		saver = store.NewDebouncedSaver(r.snapshots, store.DefaultQuietPeriod)
		defer saver.Stop()
		options = append(options, session.WithChangeListener(func(s *session.Session) {
			saver.Notify(s)
		}))
	}

	sess := session.New(r.def, options...)
	if r.snapshots != nil {
		if snapshot, ok := r.snapshots.Load(); ok {
			sess.Restore(snapshot)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.fillStep(ctx, sess); err != nil {
			return r.finish(saver, err)
		}

		choice, err := r.stepChoice(ctx, sess)
		if err != nil {
			return r.finish(saver, err)
		}

		switch choice {
		case choiceNext:
			sess.Advance()
		case choiceBack:
			sess.Retreat()
		case choiceEdit:
			// loop back into fillStep on the same step
		case choiceQuit:
			return r.finish(saver, nil)
		case choiceSubmit:
			done, err := r.submit(ctx, sess, saver)
			if err != nil {
				return r.finish(saver, err)
			}
			if done {
				return nil
			}
		}
	}
}

// fillStep prompts for every field of the session's current step. Values are
// validated at the prompt so a step never holds an invalid answer.
func (r *Runner) fillStep(ctx context.Context, sess *session.Session) error {
	step, _ := sess.Definition().StepAt(sess.CurrentStep())
	if err := r.driver.Info(ctx, fmt.Sprintf("\nStep %d of %d: %s", step.Index, sess.Definition().StepCount(), step.Title)); err != nil {
		return err
	}

	for _, field := range sess.Definition().FieldsForStep(step.Index) {
		value, err := r.promptField(ctx, field, sess.Value(field.Name))
		if err != nil {
			return err
		}
		if err := sess.SetValue(field.Name, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) promptField(ctx context.Context, field form.Field, current string) (string, error) {
	if field.Type == form.FieldTypeSelect {
		labels := make([]string, 0, len(field.Options))
		defaultIndex := 0
		for i, opt := range field.Options {
			labels = append(labels, opt.Label)
			if opt.Value == current {
				defaultIndex = i
			}
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      field.Label,
			Options:      labels,
			DefaultIndex: defaultIndex,
			Help:         field.Description,
			PageSize:     10,
		})
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(field.Options) {
			return "", fmt.Errorf("tui: select returned index %d for %q", idx, field.Name)
		}
		return field.Options[idx].Value, nil
	}

	return r.driver.Input(ctx, InputConfig{
		Message: field.Label,
		Default: current,
		Help:    field.Description,
		Validator: func(raw string) error {
			if verdict := validate.Field(field, raw); !verdict.OK {
				return errors.New(verdict.Message)
			}
			return nil
		},
	})
}

func (r *Runner) stepChoice(ctx context.Context, sess *session.Session) (string, error) {
	current := sess.CurrentStep()
	last := current == sess.Definition().StepCount()

	options := make([]string, 0, 4)
	if last {
		options = append(options, choiceSubmit)
	} else {
		options = append(options, choiceNext)
	}
	if current > 1 {
		options = append(options, choiceBack)
	}
	options = append(options, choiceEdit, choiceQuit)

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message: "What next?",
		Options: options,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) {
		return "", fmt.Errorf("tui: select returned index %d", idx)
	}
	return options[idx], nil
}

// submit flushes pending saves and runs the coordinator. Returns true when
// the session is complete.
func (r *Runner) submit(ctx context.Context, sess *session.Session, saver *store.DebouncedSaver) (bool, error) {
	if saver != nil {
		saver.Flush()
	}

	outcome := r.coordinator.Submit(ctx, sess)
	switch outcome.Status {
	case submit.Accepted:
		return true, r.printResult(ctx, outcome.Result)
	case submit.RejectedValidation, submit.RejectedTransport, submit.RejectedBusy:
		// messages already went through the session notifier; loop so the
		// user can correct or retry
		return false, nil
	default:
		return false, fmt.Errorf("tui: unexpected outcome %q", outcome.Status)
	}
}

func (r *Runner) printResult(ctx context.Context, result *prediction.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\nYour credit score: %s\n\n", result.Prediction)

	classes := make([]string, 0, len(result.Probabilities))
	for class := range result.Probabilities {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		return result.Probabilities[classes[i]] > result.Probabilities[classes[j]]
	})
	for _, class := range classes {
		fmt.Fprintf(&b, "  %-10s %5.1f%%\n", class, result.Probabilities[class]*100)
	}
	return r.driver.Info(ctx, b.String())
}

// finish flushes pending saves before surfacing err.
func (r *Runner) finish(saver *store.DebouncedSaver, err error) error {
	if saver != nil {
		saver.Flush()
	}
	return err
}

// driverBridge adapts the prompt driver to the session's announcer and
// notifier collaborators.
type driverBridge struct {
	ctx    context.Context
	driver PromptDriver
}

func (b *driverBridge) Announce(message string) { _ = b.driver.Info(b.ctx, message) }
func (b *driverBridge) Info(message string)     { _ = b.driver.Info(b.ctx, message) }
func (b *driverBridge) Error(message string)    { _ = b.driver.Error(b.ctx, message) }
