// Package server wires the HTTP surface: the multi-step form pages, the
// prediction and model-info APIs, static assets, health, and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	theme "github.com/goliatone/go-theme"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-scoreform/internal/config"
	"github.com/goliatone/go-scoreform/internal/openapi"
	"github.com/goliatone/go-scoreform/pkg/classifier"
	"github.com/goliatone/go-scoreform/pkg/form"
	"github.com/goliatone/go-scoreform/pkg/renderers/html"
	"github.com/goliatone/go-scoreform/pkg/store"
)

// Option customises server construction.
type Option func(*Server)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefinition overrides the form definition, mostly for tests.
func WithDefinition(def *form.Definition) Option {
	return func(s *Server) {
		if def != nil {
			s.def = def
		}
	}
}

// WithKV overrides the snapshot store backend.
func WithKV(kv store.KV) Option {
	return func(s *Server) {
		if kv != nil {
			s.kv = kv
		}
	}
}

// WithClassifier overrides the classifier service.
func WithClassifier(svc *classifier.Service) Option {
	return func(s *Server) {
		if svc != nil {
			s.classifier = svc
		}
	}
}

// Server hosts the scoreform HTTP surface.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	def        *form.Definition
	kv         store.KV
	classifier *classifier.Service
	renderer   *html.Renderer
	sessions   *sessionManager
	metrics    *metrics
	mux        *chi.Mux
}

// New assembles the server from configuration. Collaborators not overridden
// through options are built from cfg.
func New(cfg *config.Config, options ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  newLogger(cfg.Log),
		metrics: newMetrics(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}

	if s.def == nil {
		def, err := openapi.LoadDefinition(context.Background())
		if err != nil {
			return nil, fmt.Errorf("server: load form definition: %w", err)
		}
		s.def = def
	}

	if s.kv == nil {
		if cfg.Store.Dir != "" {
			kv, err := store.NewFileKV(cfg.Store.Dir)
			if err != nil {
				return nil, fmt.Errorf("server: open snapshot store: %w", err)
			}
			s.kv = kv
		} else {
			s.kv = store.NewMemoryKV()
		}
	}

	if s.classifier == nil {
		s.classifier = classifier.NewService(cfg.Model.Path, classifier.WithLogger(s.logger))
	}

	renderer, err := newRenderer(cfg.Theme)
	if err != nil {
		return nil, err
	}
	s.renderer = renderer

	s.sessions = newSessionManager(s.def, s.kv, cfg.Store.QuietPeriod, s.classifier, s.logger)
	s.mux = s.routes()
	return s, nil
}

// Handler exposes the routed handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully and flushes
// pending snapshot saves.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if s.cfg.Model.Watch {
		go func() {
			if err := s.classifier.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("model watcher stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.sessions.stopAll()
	return nil
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/predict", s.handleForm)
	r.Post("/predict", s.handleFormPost)
	r.Get("/about", s.handleAbout)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/predict", s.handleAPIPredict)
		r.Get("/model-info", s.handleModelInfo)
		r.Get("/openapi.yaml", s.handleOpenAPI)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(html.AssetsFS()))))
	return r
}

// newRenderer resolves the configured theme through the registry and falls
// back to the built-in default when the lookup fails.
func newRenderer(cfg config.ThemeConfig) (*html.Renderer, error) {
	registry, err := html.NewThemeRegistry()
	if err != nil {
		return nil, err
	}

	var selection *theme.Selection
	if sel, err := registry.Select(cfg.Name, cfg.Variant); err == nil {
		selection = sel
	}

	var opts []html.Option
	if selection != nil {
		opts = append(opts, html.WithThemeSelection(selection))
	}
	renderer, err := html.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("server: create renderer: %w", err)
	}
	return renderer, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
