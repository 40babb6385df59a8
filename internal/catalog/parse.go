package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	maxTextLen     = 200
	maxTextareaLen = 5000
)

// ParseAttributes converts a raw JSON object into typed attributes for the
// given subcategory. It reports one FieldError per offending key and never
// returns a partial bag alongside errors.
func (r *Registry) ParseAttributes(sub *SubCategory, raw map[string]any) (Attributes, FieldErrors) {
	out := Attributes{}
	var errs FieldErrors

	for _, f := range sub.Fields {
		rv, present := raw[f.ID]
		if !present || isBlank(rv) {
			continue
		}
		var (
			v   Value
			msg string
		)
		switch f.Type {
		case FieldNumber:
			v, msg = parseNumber(f, rv)
		case FieldCheckbox:
			v, msg = parseCheckbox(rv)
		case FieldSelect, FieldRadio:
			v, msg = parseChoice(f, rv)
		case FieldCarBrand:
			v, msg = r.parseCarBrand(rv)
		case FieldCarSeries:
			// validated below once the brand of the group is known
			s, ok := scalarString(rv)
			if !ok {
				msg = "must be a text value"
			}
			v = StringValue(s)
		default:
			v, msg = parseText(f, rv)
		}
		if msg != "" {
			errs = append(errs, FieldError{Field: f.ID, Message: msg})
			continue
		}
		out[f.ID] = v
	}

	for _, f := range sub.Fields {
		if f.Type != FieldCarSeries {
			continue
		}
		series, ok := out[f.ID]
		if !ok {
			continue
		}
		brandField := brandFieldOf(sub, f.Group)
		brandVal, ok := out[brandField]
		if !ok {
			if !hasFieldError(errs, brandField) {
				errs = append(errs, FieldError{Field: f.ID, Message: "select a brand first"})
				delete(out, f.ID)
			}
			continue
		}
		brand, _ := r.carBrand(brandVal.s)
		if !brand.hasSeries(series.s) {
			errs = append(errs, FieldError{Field: f.ID, Message: fmt.Sprintf("%q is not a series of %s", series.s, brand.Label)})
			delete(out, f.ID)
		}
	}

	for _, f := range sub.Fields {
		if !f.Required {
			continue
		}
		if _, ok := out[f.ID]; ok || hasFieldError(errs, f.ID) {
			continue
		}
		errs = append(errs, FieldError{Field: f.ID, Message: f.Label + " is required"})
	}

	unknown := make([]string, 0)
	for k := range raw {
		if _, ok := sub.fieldIndex[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		errs = append(errs, FieldError{Field: k, Message: "unknown field for this category"})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// CheckAttributes re-validates an already typed bag, e.g. one loaded from a draft.
func (r *Registry) CheckAttributes(sub *SubCategory, attrs Attributes) FieldErrors {
	_, errs := r.ParseAttributes(sub, attrs.Raw())
	return errs
}

func brandFieldOf(sub *SubCategory, group string) string {
	for _, f := range sub.Fields {
		if f.Type == FieldCarBrand && f.Group == group {
			return f.ID
		}
	}
	return ""
}

func hasFieldError(errs FieldErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	}
	return "", false
}

func parseText(f FieldDefinition, v any) (Value, string) {
	s, ok := scalarString(v)
	if !ok {
		return Value{}, "must be a text value"
	}
	limit := maxTextLen
	if f.Type == FieldTextarea {
		limit = maxTextareaLen
	}
	if utf8.RuneCountInString(s) > limit {
		return Value{}, fmt.Sprintf("must be at most %d characters", limit)
	}
	return StringValue(s), ""
}

func parseNumber(f FieldDefinition, v any) (Value, string) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return Value{}, "must be a number"
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return Value{}, "must be a number"
		}
		n = parsed
	default:
		return Value{}, "must be a number"
	}
	if !finite(n) {
		return Value{}, "must be a number"
	}
	if f.Min != nil && n < *f.Min {
		return Value{}, fmt.Sprintf("must be at least %s", strconv.FormatFloat(*f.Min, 'f', -1, 64))
	}
	if f.Max != nil && n > *f.Max {
		return Value{}, fmt.Sprintf("must be at most %s", strconv.FormatFloat(*f.Max, 'f', -1, 64))
	}
	return NumberValue(n), ""
}

func parseCheckbox(v any) (Value, string) {
	switch t := v.(type) {
	case bool:
		return BoolValue(t), ""
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "on", "1", "yes":
			return BoolValue(true), ""
		case "false", "off", "0", "no":
			return BoolValue(false), ""
		}
	}
	return Value{}, "must be true or false"
}

func parseChoice(f FieldDefinition, v any) (Value, string) {
	s, ok := scalarString(v)
	if !ok {
		return Value{}, "must be one of the listed options"
	}
	if !f.hasOption(s) {
		return Value{}, fmt.Sprintf("%q is not a valid option", s)
	}
	return StringValue(s), ""
}

func (r *Registry) parseCarBrand(v any) (Value, string) {
	s, ok := scalarString(v)
	if !ok {
		return Value{}, "must be a brand"
	}
	if _, ok := r.carBrand(s); !ok {
		return Value{}, fmt.Sprintf("%q is not a known brand", s)
	}
	return StringValue(s), ""
}
