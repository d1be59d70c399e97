package form

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeNumber  FieldType = "number"
	FieldTypeInteger FieldType = "integer"
	FieldTypeSelect  FieldType = "select"
	FieldTypeEmail   FieldType = "email"
)

// Option is a single choice offered by a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field models an individual input inside the multi-step form. Struct fields
// are annotated so renderers can serialise them directly when needed.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label,omitempty"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Description string    `json:"description,omitempty"`
}

// HasOption reports whether value is one of the declared select options.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Step is one screen of the multi-step form, owning a fixed ordered subset of
// the form's fields. Index is 1-based.
type Step struct {
	Index      int      `json:"index"`
	Title      string   `json:"title"`
	FieldNames []string `json:"fieldNames"`
}
