package html

import (
	"strings"
	"testing"
	"time"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-scoreform/pkg/classifier"
	"github.com/goliatone/go-scoreform/pkg/form"
	"github.com/goliatone/go-scoreform/pkg/prediction"
	"github.com/goliatone/go-scoreform/pkg/session"
)

func testDefinition(t *testing.T) *form.Definition {
	t.Helper()

	minAge, maxAge := 18.0, 100.0
	def, err := form.NewDefinition("credit",
		[]form.Step{
			{Index: 1, Title: "Personal", FieldNames: []string{"age", "occupation"}},
			{Index: 2, Title: "Financial", FieldNames: []string{"annual_income"}},
		},
		[]form.Field{
			{Name: "age", Label: "Age", Type: form.FieldTypeInteger, Required: true, Min: &minAge, Max: &maxAge, Placeholder: "e.g., 30"},
			{Name: "occupation", Label: "Occupation", Type: form.FieldTypeSelect, Required: true, Options: []form.Option{
				{Value: "Engineer", Label: "Engineer"},
				{Value: "Sales", Label: "Sales Representative"},
			}},
			{Name: "annual_income", Label: "Annual Income ($)", Type: form.FieldTypeNumber, Required: true},
		},
	)
	if err != nil {
		t.Fatalf("build definition: %v", err)
	}
	return def
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestRenderForm(t *testing.T) {
	r := newRenderer(t)
	s := session.New(testDefinition(t))
	if err := s.SetValue("age", "35"); err != nil {
		t.Fatalf("set: %v", err)
	}

	out, err := r.RenderForm(s, Notices{}, "")
	if err != nil {
		t.Fatalf("render form: %v", err)
	}

	for _, fragment := range []string{
		"Step 1 of 2: Personal",
		`name="age"`,
		`value="35"`,
		`placeholder="e.g., 30"`,
		`aria-live="polite"`,
		"Sales Representative",
		`aria-current="step"`,
	} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("form output missing %q\n%s", fragment, out)
		}
	}

	// first step: back disabled, next shown
	if !strings.Contains(out, `value="back" class="button button-secondary" disabled`) {
		t.Fatalf("back button should be disabled on step 1\n%s", out)
	}
	if !strings.Contains(out, `value="next"`) {
		t.Fatalf("next button missing on non-final step")
	}
}

func TestRenderForm_ShowsInlineErrors(t *testing.T) {
	r := newRenderer(t)
	s := session.New(testDefinition(t))
	if err := s.SetValue("age", "150"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Advance() // marks age invalid

	out, err := r.RenderForm(s, Notices{Error: "Please fix 2 fields before continuing."}, "age")
	if err != nil {
		t.Fatalf("render form: %v", err)
	}

	if !strings.Contains(out, "Please enter a number between 18 and 100.") {
		t.Fatalf("inline error missing\n%s", out)
	}
	if !strings.Contains(out, `aria-invalid="true"`) {
		t.Fatalf("aria-invalid missing")
	}
	if !strings.Contains(out, `id="age-error"`) {
		t.Fatalf("error id missing for aria-describedby")
	}
	if !strings.Contains(out, "Please fix 2 fields before continuing.") {
		t.Fatalf("flash banner missing")
	}
}

func TestRenderForm_FinalStepShowsSubmit(t *testing.T) {
	r := newRenderer(t)
	s := session.New(testDefinition(t))
	if err := s.SetValue("age", "35"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetValue("occupation", "Engineer"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Advance()

	out, err := r.RenderForm(s, Notices{}, "")
	if err != nil {
		t.Fatalf("render form: %v", err)
	}
	if !strings.Contains(out, `value="submit"`) {
		t.Fatalf("submit button missing on final step\n%s", out)
	}
	if strings.Contains(out, `value="next"`) {
		t.Fatalf("next button should not render on final step")
	}
}

func TestRenderResult_SanitisesUserText(t *testing.T) {
	r := newRenderer(t)

	req := prediction.Request{
		Occupation:   "<script>alert(1)</script>Engineer",
		AnnualIncome: 85000,
	}
	result := &prediction.Result{
		Prediction:     "Good",
		PredictionCode: 2,
		Probabilities:  map[string]float64{"Poor": 0.1, "Standard": 0.3, "Good": 0.6},
		Timestamp:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	out, err := r.RenderResult(req, result)
	if err != nil {
		t.Fatalf("render result: %v", err)
	}

	if strings.Contains(out, "<script>") {
		t.Fatalf("script tag survived sanitisation\n%s", out)
	}
	if !strings.Contains(out, "badge-good") {
		t.Fatalf("badge class missing")
	}
	if !strings.Contains(out, "60.0%") {
		t.Fatalf("probability percentage missing\n%s", out)
	}
}

func TestRenderAbout(t *testing.T) {
	r := newRenderer(t)

	out, err := r.RenderAbout(classifier.Info{
		Name:         "credit-score-baseline",
		Version:      "0.0.0-builtin",
		Accuracy:     0.85,
		FeatureCount: 19,
		Classes:      []string{"Poor", "Standard", "Good"},
		LoadedAt:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("render about: %v", err)
	}

	for _, fragment := range []string{"credit-score-baseline", "85.0%", "Poor, Standard, Good"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("about output missing %q\n%s", fragment, out)
		}
	}
}

func TestBuildRendererConfig_VariantOverrides(t *testing.T) {
	manifest := DefaultManifest()
	selection := &theme.Selection{
		Theme:    manifest.Name,
		Variant:  "dark",
		Manifest: manifest,
	}

	cfg := buildRendererConfig(selection)

	if cfg.Tokens["color-bg"] != "#10151f" {
		t.Fatalf("variant token not merged: %q", cfg.Tokens["color-bg"])
	}
	if cfg.CSSVars["--color-bg"] != "#10151f" {
		t.Fatalf("css var not derived: %q", cfg.CSSVars["--color-bg"])
	}
	// base tokens without a variant override stay
	if cfg.Tokens["color-accent"] != "#2563eb" {
		t.Fatalf("base token lost: %q", cfg.Tokens["color-accent"])
	}
	if got := cfg.AssetURL("html.stylesheet"); got != "/static/"+StylesheetName {
		t.Fatalf("unexpected asset url: %q", got)
	}
	if got := cfg.AssetURL("missing"); got != "" {
		t.Fatalf("unknown asset should resolve empty, got %q", got)
	}
}
