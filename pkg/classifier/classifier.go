// Package classifier is the prediction collaborator: it loads a pre-trained
// model from disk and turns a validated feature vector into a label plus a
// class-probability distribution.
package classifier

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-scoreform/pkg/prediction"
)

// Info describes the active model for the model-info endpoint.
type Info struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Accuracy     float64   `json:"accuracy"`
	FeatureCount int       `json:"feature_count"`
	Classes      []string  `json:"classes"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// Option customises the service.
type Option func(*Service)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time acquisition, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service serves classifications from the currently loaded model. The model
// pointer swaps atomically so reloads never block classification.
type Service struct {
	path    string
	logger  *slog.Logger
	now     func() time.Time
	current atomic.Pointer[Model]
	loaded  atomic.Pointer[time.Time]
}

// NewService loads the model at path. When the file is missing or broken the
// service starts with the built-in baseline model and logs the reason, so a
// bad artifact never takes the endpoint down.
func NewService(path string, options ...Option) *Service {
	s := &Service{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}

	model, err := LoadModel(path)
	if err != nil {
		s.logger.Warn("classifier: using built-in baseline model", "path", path, "error", err)
		model = defaultModel()
	} else {
		s.logger.Info("classifier: model loaded", "path", path, "name", model.Name, "version", model.Version)
	}
	s.install(model)
	return s
}

// Reload re-reads the model file. A failed load keeps the current model.
func (s *Service) Reload() error {
	model, err := LoadModel(s.path)
	if err != nil {
		return err
	}
	s.install(model)
	s.logger.Info("classifier: model reloaded", "path", s.path, "name", model.Name, "version", model.Version)
	return nil
}

func (s *Service) install(model *Model) {
	now := s.now()
	s.current.Store(model)
	s.loaded.Store(&now)
}

// Classify scores the request against the active model.
func (s *Service) Classify(ctx context.Context, req prediction.Request) (*prediction.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model := s.current.Load()
	if model == nil {
		return nil, errors.New("classifier: no model loaded")
	}

	features := model.featureVector(req)
	probabilities := softmax(model.scores(features))

	best := 0
	byClass := make(map[string]float64, len(model.Classes))
	for i, class := range model.Classes {
		byClass[class] = probabilities[i]
		if probabilities[i] > probabilities[best] {
			best = i
		}
	}

	return &prediction.Result{
		Prediction:     model.Classes[best],
		PredictionCode: best,
		Probabilities:  byClass,
		Timestamp:      s.now().UTC(),
	}, nil
}

// Describe reports the active model's metadata.
func (s *Service) Describe() Info {
	model := s.current.Load()
	info := Info{}
	if model == nil {
		return info
	}
	info.Name = model.Name
	info.Version = model.Version
	info.Accuracy = model.Accuracy
	info.FeatureCount = model.FeatureCount()
	info.Classes = append([]string(nil), model.Classes...)
	if loaded := s.loaded.Load(); loaded != nil {
		info.LoadedAt = *loaded
	}
	return info
}
