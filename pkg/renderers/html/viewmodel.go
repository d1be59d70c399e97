package html

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goliatone/go-scoreform/pkg/classifier"
	"github.com/goliatone/go-scoreform/pkg/form"
	"github.com/goliatone/go-scoreform/pkg/prediction"
	"github.com/goliatone/go-scoreform/pkg/session"
)

// Page carries the chrome every template shares.
type Page struct {
	Title      string `json:"title"`
	Stylesheet string `json:"stylesheet"`
	CSSVars    string `json:"css_vars"`
	Theme      string `json:"theme"`
	Variant    string `json:"variant"`
}

// Notices carries the transient messages rendered above the form: a flash
// banner plus the text mirrored into the aria-live region.
type Notices struct {
	Info         string `json:"info"`
	Error        string `json:"error"`
	Announcement string `json:"announcement"`
}

// OptionView is one select choice with its selected flag resolved.
type OptionView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// FieldView is a field projected for the current session: definition
// metadata plus the entered value and any validation message.
type FieldView struct {
	Name        string       `json:"name"`
	Label       string       `json:"label"`
	InputType   string       `json:"input_type"`
	Select      bool         `json:"select"`
	Required    bool         `json:"required"`
	Value       string       `json:"value"`
	Placeholder string       `json:"placeholder"`
	Description string       `json:"description"`
	Min         string       `json:"min"`
	Max         string       `json:"max"`
	NumericStep string       `json:"numeric_step"`
	Invalid     bool         `json:"invalid"`
	Message     string       `json:"message"`
	Options     []OptionView `json:"options"`
	Focus       bool         `json:"focus"`
}

// StepMarker is one entry of the progress indicator.
type StepMarker struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Active    bool   `json:"active"`
	Completed bool   `json:"completed"`
}

// FormPage is the full view model behind the multi-step form template.
type FormPage struct {
	Page       Page         `json:"page"`
	SessionID  string       `json:"session_id"`
	Step       int          `json:"step"`
	StepCount  int          `json:"step_count"`
	StepTitle  string       `json:"step_title"`
	Progress   int          `json:"progress"`
	First      bool         `json:"first"`
	Last       bool         `json:"last"`
	Submitting bool         `json:"submitting"`
	Fields     []FieldView  `json:"fields"`
	Markers    []StepMarker `json:"markers"`
	Notices    Notices      `json:"notices"`
}

// ProbabilityBar is one class probability prepared for display.
type ProbabilityBar struct {
	Class   string `json:"class"`
	Percent string `json:"percent"`
	Width   int    `json:"width"`
	Active  bool   `json:"active"`
}

// ResultPage is the view model behind the prediction result template.
type ResultPage struct {
	Page          Page             `json:"page"`
	Prediction    string           `json:"prediction"`
	BadgeClass    string           `json:"badge_class"`
	Probabilities []ProbabilityBar `json:"probabilities"`
	Timestamp     string           `json:"timestamp"`
	Occupation    string           `json:"occupation"`
	AnnualIncome  string           `json:"annual_income"`
}

// AboutPage is the view model behind the model description template.
type AboutPage struct {
	Page         Page     `json:"page"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Accuracy     string   `json:"accuracy"`
	FeatureCount int      `json:"feature_count"`
	Classes      []string `json:"classes"`
	LoadedAt     string   `json:"loaded_at"`
}

func buildFormPage(page Page, s *session.Session, notices Notices, focus string) FormPage {
	def := s.Definition()
	current := s.CurrentStep()
	step, _ := def.StepAt(current)

	fields := make([]FieldView, 0, len(step.FieldNames))
	for _, field := range def.FieldsForStep(current) {
		state, _ := s.FieldState(field.Name)
		fields = append(fields, buildFieldView(field, state, field.Name == focus))
	}

	indicators := s.Indicators()
	markers := make([]StepMarker, 0, len(indicators))
	for _, ind := range indicators {
		markers = append(markers, StepMarker{
			Index:     ind.Index,
			Title:     ind.Title,
			Active:    ind.Active,
			Completed: ind.Completed,
		})
	}

	return FormPage{
		Page:       page,
		SessionID:  s.ID(),
		Step:       current,
		StepCount:  def.StepCount(),
		StepTitle:  step.Title,
		Progress:   int(s.Progress() * 100),
		First:      current == 1,
		Last:       current == def.StepCount(),
		Submitting: s.Submitting(),
		Fields:     fields,
		Markers:    markers,
		Notices:    notices,
	}
}

func buildFieldView(field form.Field, state session.FieldState, focus bool) FieldView {
	view := FieldView{
		Name:        field.Name,
		Label:       field.Label,
		Required:    field.Required,
		Value:       state.Value,
		Placeholder: field.Placeholder,
		Description: field.Description,
		Invalid:     state.State == session.StateInvalid,
		Message:     state.Message,
		Focus:       focus,
	}

	switch field.Type {
	case form.FieldTypeSelect:
		view.Select = true
		view.Options = make([]OptionView, 0, len(field.Options))
		for _, opt := range field.Options {
			view.Options = append(view.Options, OptionView{
				Value:    opt.Value,
				Label:    opt.Label,
				Selected: opt.Value == state.Value,
			})
		}
	case form.FieldTypeInteger:
		view.InputType = "number"
		view.NumericStep = "1"
	case form.FieldTypeNumber:
		view.InputType = "number"
		view.NumericStep = "any"
	case form.FieldTypeEmail:
		view.InputType = "email"
	default:
		view.InputType = "text"
	}

	if field.Min != nil {
		view.Min = strconv.FormatFloat(*field.Min, 'f', -1, 64)
	}
	if field.Max != nil {
		view.Max = strconv.FormatFloat(*field.Max, 'f', -1, 64)
	}
	return view
}

func buildResultPage(page Page, req prediction.Request, result *prediction.Result, sanitize func(string) string) ResultPage {
	classes := make([]string, 0, len(result.Probabilities))
	for class := range result.Probabilities {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		return result.Probabilities[classes[i]] > result.Probabilities[classes[j]]
	})

	bars := make([]ProbabilityBar, 0, len(classes))
	for _, class := range classes {
		p := result.Probabilities[class]
		bars = append(bars, ProbabilityBar{
			Class:   class,
			Percent: fmt.Sprintf("%.1f%%", p*100),
			Width:   int(p * 100),
			Active:  class == result.Prediction,
		})
	}

	return ResultPage{
		Page:          page,
		Prediction:    result.Prediction,
		BadgeClass:    badgeClass(result.Prediction),
		Probabilities: bars,
		Timestamp:     result.Timestamp.Format("2006-01-02 15:04:05 MST"),
		Occupation:    sanitize(req.Occupation),
		AnnualIncome:  fmt.Sprintf("%.2f", req.AnnualIncome),
	}
}

func buildAboutPage(page Page, info classifier.Info) AboutPage {
	loaded := ""
	if !info.LoadedAt.IsZero() {
		loaded = info.LoadedAt.Format("2006-01-02 15:04:05 MST")
	}
	return AboutPage{
		Page:         page,
		Name:         info.Name,
		Version:      info.Version,
		Accuracy:     fmt.Sprintf("%.1f%%", info.Accuracy*100),
		FeatureCount: info.FeatureCount,
		Classes:      info.Classes,
		LoadedAt:     loaded,
	}
}

func badgeClass(prediction string) string {
	switch prediction {
	case "Good":
		return "badge-good"
	case "Poor":
		return "badge-poor"
	default:
		return "badge-standard"
	}
}
