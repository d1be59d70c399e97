// Package scoreform exposes the library surface of the credit score
// classification service: the form definition, session engine, persistence
// adapter, submission coordinator, and classifier, re-exported for callers
// that embed the questionnaire in their own programs.
package scoreform

import (
	"context"

	"github.com/goliatone/go-scoreform/internal/openapi"
	"github.com/goliatone/go-scoreform/pkg/classifier"
	"github.com/goliatone/go-scoreform/pkg/form"
	"github.com/goliatone/go-scoreform/pkg/prediction"
	"github.com/goliatone/go-scoreform/pkg/session"
	"github.com/goliatone/go-scoreform/pkg/store"
	"github.com/goliatone/go-scoreform/pkg/submit"
)

// Definition is the multi-step form definition.
type Definition = form.Definition

// Session tracks one user's progress through the form.
type Session = session.Session

// Request is the flat wire payload sent to the prediction endpoint.
type Request = prediction.Request

// Result is a successful classification.
type Result = prediction.Result

// Outcome reports how a submission resolved.
type Outcome = submit.Outcome

// LoadDefinition builds the credit questionnaire definition from the
// embedded OpenAPI document.
func LoadDefinition(ctx context.Context) (*form.Definition, error) {
	return openapi.LoadDefinition(ctx)
}

// NewSession starts a session over the definition.
func NewSession(def *form.Definition, options ...session.Option) *session.Session {
	return session.New(def, options...)
}

// NewClassifier loads the model at path, falling back to the built-in
// baseline when the file is missing or broken.
func NewClassifier(path string, options ...classifier.Option) *classifier.Service {
	return classifier.NewService(path, options...)
}

// NewCoordinator builds a submission coordinator around the classifier.
func NewCoordinator(clf submit.Classifier, options ...submit.Option) *submit.Coordinator {
	return submit.New(clf, options...)
}

// NewSnapshotStore builds an in-memory persistence adapter; pass the result
// to NewCoordinator and a session's change listener to get debounced saves.
func NewSnapshotStore(options ...store.Option) *store.Adapter {
	return store.New(store.NewMemoryKV(), options...)
}
