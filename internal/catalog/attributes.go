package catalog

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

type Kind uint8

const (
	KindString Kind = iota + 1
	KindNumber
	KindBool
)

// Value is one typed entry of a category data bag.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

func StringValue(s string) Value  { return Value{kind: KindString, s: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Text renders the value the way it is displayed and searched.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		return json.Marshal(v.n)
	case KindBool:
		return json.Marshal(v.b)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = StringValue(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return err
		}
		*v = NumberValue(n)
	case bool:
		*v = BoolValue(t)
	default:
		return fmt.Errorf("unsupported attribute value %s", string(data))
	}
	return nil
}

// Attributes is the validated category data bag: field id to value.
type Attributes map[string]Value

func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal compares key/value sets regardless of order.
func (a Attributes) Equal(other Attributes) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		o, ok := other[k]
		if !ok || o != v {
			return false
		}
	}
	return true
}

// Raw converts the bag back to plain JSON-compatible values.
func (a Attributes) Raw() map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		switch v.kind {
		case KindNumber:
			out[k] = v.n
		case KindBool:
			out[k] = v.b
		default:
			out[k] = v.s
		}
	}
	return out
}

// GormDataType makes gorm create a JSON column for the bag.
func (Attributes) GormDataType() string { return "json" }

func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]Value(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Attributes) Scan(src any) error {
	var data []byte
	switch t := src.(type) {
	case nil:
		*a = Attributes{}
		return nil
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		return errors.New("attributes: unsupported column type")
	}
	if len(data) == 0 {
		*a = Attributes{}
		return nil
	}
	m := map[string]Value{}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}
	*a = Attributes(m)
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
