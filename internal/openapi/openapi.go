// Package openapi loads the embedded OpenAPI document describing the
// prediction operation and converts its request schema into the multi-step
// form definition the rest of the module consumes.
package openapi

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-scoreform/pkg/form"
)

//go:embed openapi.yaml
var embedded []byte

const (
	// OperationPath is the documented prediction endpoint.
	OperationPath = "/api/predict"

	stepsExtensionKey      = "x-steps"
	placeholderExtension   = "x-placeholder"
	enumLabelsExtensionKey = "x-enum-labels"
)

// Document returns the raw embedded OpenAPI payload. Exposed so the server
// can serve it for API discovery.
func Document() []byte {
	return append([]byte(nil), embedded...)
}

// LoadDefinition parses the embedded document and builds the form definition
// for the prediction operation.
func LoadDefinition(ctx context.Context) (*form.Definition, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(embedded)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}

	if doc.Paths == nil {
		return nil, errors.New("openapi: document does not contain any paths")
	}
	item := doc.Paths.Find(OperationPath)
	if item == nil || item.Post == nil {
		return nil, fmt.Errorf("openapi: operation POST %s not found", OperationPath)
	}
	op := item.Post

	schema, err := requestSchema(op)
	if err != nil {
		return nil, err
	}

	steps, err := extractSteps(op.Extensions)
	if err != nil {
		return nil, err
	}

	fields, err := buildFields(schema, steps)
	if err != nil {
		return nil, err
	}

	def, err := form.NewDefinition(op.OperationID, steps, fields)
	if err != nil {
		return nil, fmt.Errorf("openapi: assemble definition: %w", err)
	}
	return def, nil
}

// MustLoadDefinition panics when the embedded document cannot be parsed. The
// document ships with the binary, so a failure here is a build defect.
func MustLoadDefinition() *form.Definition {
	def, err := LoadDefinition(context.Background())
	if err != nil {
		panic(err)
	}
	return def
}

func requestSchema(op *openapi3.Operation) (*openapi3.Schema, error) {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil, errors.New("openapi: operation has no request body")
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil, errors.New("openapi: request body has no JSON schema")
	}
	return media.Schema.Value, nil
}

func extractSteps(extensions map[string]any) ([]form.Step, error) {
	raw, ok := extensions[stepsExtensionKey]
	if !ok {
		return nil, fmt.Errorf("openapi: operation is missing the %s extension", stepsExtensionKey)
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("openapi: %s must be a sequence", stepsExtensionKey)
	}

	steps := make([]form.Step, 0, len(entries))
	for i, entry := range entries {
		mapped, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("openapi: %s entry %d is not a mapping", stepsExtensionKey, i)
		}
		title, _ := mapped["title"].(string)
		if title == "" {
			return nil, fmt.Errorf("openapi: %s entry %d has no title", stepsExtensionKey, i)
		}
		names, err := stringSlice(mapped["fields"])
		if err != nil {
			return nil, fmt.Errorf("openapi: step %q fields: %w", title, err)
		}
		steps = append(steps, form.Step{
			Index:      i + 1,
			Title:      title,
			FieldNames: names,
		})
	}
	return steps, nil
}

// buildFields resolves properties in step order so the definition's field
// order matches the order users encounter them.
func buildFields(schema *openapi3.Schema, steps []form.Step) ([]form.Field, error) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var fields []form.Field
	for _, step := range steps {
		for _, name := range step.FieldNames {
			ref, ok := schema.Properties[name]
			if !ok || ref == nil || ref.Value == nil {
				return nil, fmt.Errorf("openapi: step %q references undeclared property %q", step.Title, name)
			}
			field, err := convertField(name, ref.Value, required[name])
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
		}
	}
	return fields, nil
}

func convertField(name string, src *openapi3.Schema, required bool) (form.Field, error) {
	field := form.Field{
		Name:        name,
		Label:       src.Title,
		Required:    required,
		Description: src.Description,
	}
	if placeholder, ok := src.Extensions[placeholderExtension].(string); ok {
		field.Placeholder = placeholder
	}

	switch {
	case len(src.Enum) > 0:
		field.Type = form.FieldTypeSelect
		field.Options = convertOptions(src)
	case src.Type.Is(openapi3.TypeInteger):
		field.Type = form.FieldTypeInteger
	case src.Type.Is(openapi3.TypeNumber):
		field.Type = form.FieldTypeNumber
	case src.Type.Is(openapi3.TypeString) && src.Format == "email":
		field.Type = form.FieldTypeEmail
	case src.Type.Is(openapi3.TypeString):
		field.Type = form.FieldTypeText
	default:
		return form.Field{}, fmt.Errorf("openapi: property %q has unsupported type", name)
	}

	if src.Min != nil {
		value := *src.Min
		field.Min = &value
	}
	if src.Max != nil {
		value := *src.Max
		field.Max = &value
	}
	return field, nil
}

func convertOptions(src *openapi3.Schema) []form.Option {
	labels := map[string]string{}
	if mapped, ok := src.Extensions[enumLabelsExtensionKey].(map[string]any); ok {
		for value, label := range mapped {
			if text, ok := label.(string); ok {
				labels[value] = text
			}
		}
	}

	options := make([]form.Option, 0, len(src.Enum))
	for _, value := range src.Enum {
		text := fmt.Sprint(value)
		label := labels[text]
		if label == "" {
			label = text
		}
		options = append(options, form.Option{Value: text, Label: label})
	}
	return options
}

func stringSlice(raw any) ([]string, error) {
	entries, ok := raw.([]any)
	if !ok || len(entries) == 0 {
		return nil, errors.New("expected a non-empty sequence")
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		text, ok := entry.(string)
		if !ok || text == "" {
			return nil, fmt.Errorf("expected string entries, got %T", entry)
		}
		out = append(out, text)
	}
	return out, nil
}
