package form

import (
	"errors"
	"fmt"
)

var (
	errNoSteps   = errors.New("form: definition requires at least one step")
	errNoName    = errors.New("form: field name is required")
	errEmptyStep = errors.New("form: step owns no fields")
)

// Definition is the static description of a multi-step form: ordered steps
// plus the fields they own. It is immutable for the lifetime of a session.
type Definition struct {
	Name   string
	Steps  []Step
	fields map[string]Field
	order  []string
}

// NewDefinition assembles a Definition and verifies its integrity: step
// indices must be contiguous starting at 1 and every step field name must
// resolve to a declared field. A broken definition is a programming defect,
// never a user-input condition, so construction is the only place it can
// surface.
func NewDefinition(name string, steps []Step, fields []Field) (*Definition, error) {
	if len(steps) == 0 {
		return nil, errNoSteps
	}

	byName := make(map[string]Field, len(fields))
	order := make([]string, 0, len(fields))
	for _, field := range fields {
		if field.Name == "" {
			return nil, errNoName
		}
		if _, exists := byName[field.Name]; exists {
			return nil, fmt.Errorf("form: duplicate field %q", field.Name)
		}
		byName[field.Name] = field
		order = append(order, field.Name)
	}

	for i, step := range steps {
		if step.Index != i+1 {
			return nil, fmt.Errorf("form: step %q has index %d, want %d", step.Title, step.Index, i+1)
		}
		if len(step.FieldNames) == 0 {
			return nil, fmt.Errorf("%w: step %q", errEmptyStep, step.Title)
		}
		for _, fieldName := range step.FieldNames {
			if _, ok := byName[fieldName]; !ok {
				return nil, fmt.Errorf("form: step %q references unknown field %q", step.Title, fieldName)
			}
		}
	}

	return &Definition{
		Name:   name,
		Steps:  append([]Step(nil), steps...),
		fields: byName,
		order:  order,
	}, nil
}

// StepCount returns the number of steps (N).
func (d *Definition) StepCount() int {
	return len(d.Steps)
}

// StepAt returns the step for a 1-based index.
func (d *Definition) StepAt(index int) (Step, bool) {
	if index < 1 || index > len(d.Steps) {
		return Step{}, false
	}
	return d.Steps[index-1], true
}

// Field looks up a field by name.
func (d *Definition) Field(name string) (Field, bool) {
	field, ok := d.fields[name]
	return field, ok
}

// FieldsForStep resolves the ordered fields owned by a 1-based step index.
func (d *Definition) FieldsForStep(index int) []Field {
	step, ok := d.StepAt(index)
	if !ok {
		return nil
	}
	fields := make([]Field, 0, len(step.FieldNames))
	for _, name := range step.FieldNames {
		fields = append(fields, d.fields[name])
	}
	return fields
}

// FieldNames returns every field name in declaration order.
func (d *Definition) FieldNames() []string {
	return append([]string(nil), d.order...)
}

// Fields returns every field in declaration order.
func (d *Definition) Fields() []Field {
	fields := make([]Field, 0, len(d.order))
	for _, name := range d.order {
		fields = append(fields, d.fields[name])
	}
	return fields
}
