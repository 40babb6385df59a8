package catalog

import "strings"

type FieldType string

const (
	FieldText      FieldType = "text"
	FieldNumber    FieldType = "number"
	FieldSelect    FieldType = "select"
	FieldTextarea  FieldType = "textarea"
	FieldCheckbox  FieldType = "checkbox"
	FieldRadio     FieldType = "radio"
	FieldCarBrand  FieldType = "car-selector-brand"
	FieldCarSeries FieldType = "car-selector-series"
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldDefinition describes one dynamic form field of a subcategory.
// Group ties a car-selector-series field to the car-selector-brand field
// carrying the same Group.
type FieldDefinition struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []Option  `json:"options,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Unit     string    `json:"unit,omitempty"`
	Group    string    `json:"group,omitempty"`
}

func (f FieldDefinition) hasOption(v string) bool {
	for _, o := range f.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

type SubCategory struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Icon   string            `json:"icon,omitempty"`
	Fields []FieldDefinition `json:"fields"`

	fieldIndex map[string]int
}

// Field returns the definition with the given id.
func (s *SubCategory) Field(id string) (FieldDefinition, bool) {
	i, ok := s.fieldIndex[id]
	if !ok {
		return FieldDefinition{}, false
	}
	return s.Fields[i], true
}

type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Icon          string        `json:"icon,omitempty"`
	SubCategories []SubCategory `json:"subCategories"`
}

// CarBrand lists the series selectable once the brand is chosen.
type CarBrand struct {
	Value  string   `json:"value"`
	Label  string   `json:"label"`
	Series []Option `json:"series"`
}

func (b CarBrand) hasSeries(v string) bool {
	for _, s := range b.Series {
		if s.Value == v {
			return true
		}
	}
	return false
}

// FieldError is a message attached to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

func ptr(f float64) *float64 { return &f }
