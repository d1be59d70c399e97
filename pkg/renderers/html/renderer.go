// Package html renders the multi-step form, the prediction result, and the
// model description as server-side HTML pages.
package html

import (
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-scoreform/pkg/classifier"
	"github.com/goliatone/go-scoreform/pkg/prediction"
	"github.com/goliatone/go-scoreform/pkg/render/template"
	"github.com/goliatone/go-scoreform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-scoreform/pkg/session"
	theme "github.com/goliatone/go-theme"
)

// Option customises the renderer.
type Option func(*Renderer)

// WithEngine swaps the template engine. The default loads the embedded
// bundle.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithThemeSelection applies a resolved theme selection instead of the
// built-in default.
func WithThemeSelection(selection *theme.Selection) Option {
	return func(r *Renderer) {
		if selection != nil {
			r.selection = selection
		}
	}
}

// WithPolicy swaps the sanitisation policy applied to user-entered text that
// is echoed back into pages.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(r *Renderer) {
		if policy != nil {
			r.policy = policy
		}
	}
}

// Renderer turns session and prediction state into HTML pages. Safe for
// concurrent use once constructed.
type Renderer struct {
	engine    template.TemplateRenderer
	policy    *bluemonday.Policy
	selection *theme.Selection
	themeCfg  theme.RendererConfig
}

// New constructs a renderer backed by the embedded templates and the default
// theme.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		policy: bluemonday.StrictPolicy(),
		selection: &theme.Selection{
			Theme:    DefaultTheme,
			Manifest: DefaultManifest(),
		},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	if r.engine == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(TemplatesFS()),
			gotemplate.WithGoTemplateOptions(),
		)
		if err != nil {
			return nil, fmt.Errorf("html: create template engine: %w", err)
		}
		r.engine = engine
	}

	r.themeCfg = buildRendererConfig(r.selection)
	return r, nil
}

// ThemeConfig exposes the flattened theme configuration, mostly for tests
// and asset serving.
func (r *Renderer) ThemeConfig() theme.RendererConfig {
	return r.themeCfg
}

// RenderForm renders the form at the session's current step. focus names the
// field that should receive focus, or empty for the step default.
func (r *Renderer) RenderForm(s *session.Session, notices Notices, focus string) (string, error) {
	page := buildFormPage(r.page("Credit Score Check"), s, r.sanitizeNotices(notices), focus)
	out, err := r.engine.RenderTemplate("form", page)
	if err != nil {
		return "", fmt.Errorf("html: render form: %w", err)
	}
	return out, nil
}

// RenderResult renders the classification outcome page.
func (r *Renderer) RenderResult(req prediction.Request, result *prediction.Result) (string, error) {
	page := buildResultPage(r.page("Your Credit Score"), req, result, r.policy.Sanitize)
	out, err := r.engine.RenderTemplate("result", page)
	if err != nil {
		return "", fmt.Errorf("html: render result: %w", err)
	}
	return out, nil
}

// RenderAbout renders the model description page.
func (r *Renderer) RenderAbout(info classifier.Info) (string, error) {
	page := buildAboutPage(r.page("About the Model"), info)
	out, err := r.engine.RenderTemplate("about", page)
	if err != nil {
		return "", fmt.Errorf("html: render about: %w", err)
	}
	return out, nil
}

// RenderIndex renders the landing page.
func (r *Renderer) RenderIndex() (string, error) {
	out, err := r.engine.RenderTemplate("index", map[string]any{
		"page": r.page("Credit Score Classifier"),
	})
	if err != nil {
		return "", fmt.Errorf("html: render index: %w", err)
	}
	return out, nil
}

func (r *Renderer) page(title string) Page {
	return Page{
		Title:      title,
		Stylesheet: r.themeCfg.AssetURL("html.stylesheet"),
		CSSVars:    inlineCSSVars(r.themeCfg.CSSVars),
		Theme:      r.themeCfg.Theme,
		Variant:    r.themeCfg.Variant,
	}
}

// sanitizeNotices strips markup from messages before they reach the flash
// banner; upstream error strings pass through here verbatim otherwise.
func (r *Renderer) sanitizeNotices(n Notices) Notices {
	return Notices{
		Info:         r.policy.Sanitize(n.Info),
		Error:        r.policy.Sanitize(n.Error),
		Announcement: r.policy.Sanitize(n.Announcement),
	}
}
