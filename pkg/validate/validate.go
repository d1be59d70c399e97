// Package validate computes field-level verdicts for raw form input. It is
// purely functional: callers apply UI side effects from the returned verdict.
package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-scoreform/pkg/form"
)

// Verdict is the outcome of validating a single field value.
type Verdict struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

const (
	msgRequired      = "This field is required."
	msgNumber        = "Please enter a valid number."
	msgWholeNumber   = "Please enter a whole number."
	msgEmail         = "Please enter a valid email address."
	msgSelectOption  = "Please select one of the provided options."
	msgNonNegative   = "Value must be zero or greater."
	msgUtilization   = "Credit utilization must be between 0% and 100%."
	msgAgeWholeRange = "Age must be a whole number between 18 and 100."
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func ok() Verdict {
	return Verdict{OK: true}
}

func fail(message string) Verdict {
	return Verdict{Message: message}
}

// Field validates a raw value against the field's declared constraints and,
// when those pass, its hard-coded semantic rules. Rules apply in order and
// the first failure wins. Validating the same value twice yields the same
// verdict.
func Field(field form.Field, raw string) Verdict {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if field.Required {
			return fail(msgRequired)
		}
		return ok()
	}

	switch field.Type {
	case form.FieldTypeNumber, form.FieldTypeInteger:
		return validateNumeric(field, trimmed)
	case form.FieldTypeEmail:
		if !emailPattern.MatchString(trimmed) {
			return fail(msgEmail)
		}
	case form.FieldTypeSelect:
		if !field.HasOption(trimmed) {
			return fail(msgSelectOption)
		}
	}

	return semantic(field.Name, 0, false)
}

func validateNumeric(field form.Field, trimmed string) Verdict {
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return fail(msgNumber)
	}
	if field.Type == form.FieldTypeInteger && value != math.Trunc(value) {
		return fail(msgWholeNumber)
	}
	if verdict := checkBounds(field, value); !verdict.OK {
		return verdict
	}
	return semantic(field.Name, value, true)
}

func checkBounds(field form.Field, value float64) Verdict {
	switch {
	case field.Min != nil && field.Max != nil:
		if value < *field.Min || value > *field.Max {
			return fail("Please enter a number between " + formatBound(*field.Min) + " and " + formatBound(*field.Max) + ".")
		}
	case field.Min != nil:
		if value < *field.Min {
			return fail("Please enter a number greater than or equal to " + formatBound(*field.Min) + ".")
		}
	case field.Max != nil:
		if value > *field.Max {
			return fail("Please enter a number no greater than " + formatBound(*field.Max) + ".")
		}
	}
	return ok()
}

// semantic applies the per-field business rules that go beyond the declared
// schema constraints. Evaluated only after the generic rules pass.
func semantic(name string, value float64, numeric bool) Verdict {
	if !numeric {
		return ok()
	}
	switch name {
	case "annual_income", "monthly_salary":
		if value < 0 {
			return fail(msgNonNegative)
		}
	case "credit_utilization_ratio":
		if value < 0 || value > 100 {
			return fail(msgUtilization)
		}
	case "age":
		if value != math.Trunc(value) || value < 18 || value > 100 {
			return fail(msgAgeWholeRange)
		}
	}
	return ok()
}

func formatBound(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
