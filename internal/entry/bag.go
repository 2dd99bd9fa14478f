// Package entry holds the values filled in against a schema: one ValueBag per
// section instance or module entry, plus the repeatable items of a section.
package entry

import (
	"encoding/json"
	"strconv"
	"strings"

	"campus-cms/internal/schema"
)

// ValueBag maps field names to values. Text-like fields hold strings, number
// fields float64, checkboxes bool and file/image fields the stored file path.
type ValueBag map[string]any

// BuildEmpty returns a bag with every field of s set to its empty value: false
// for checkboxes, "" for everything else.
func BuildEmpty(s schema.Schema) ValueBag {
	bag := make(ValueBag, len(s))
	for _, f := range s {
		bag[f.Name] = emptyValue(f)
	}
	return bag
}

// BuildDefaults is BuildEmpty with each field's declared default applied.
func BuildDefaults(s schema.Schema) ValueBag {
	bag := BuildEmpty(s)
	for _, f := range s {
		if f.Default != "" {
			bag[f.Name] = Coerce(f, f.Default)
		}
	}
	return bag
}

func emptyValue(f schema.Field) any {
	if f.Type == schema.TypeCheckbox {
		return false
	}
	return ""
}

// Set returns a copy of bag with name set to value.
func Set(bag ValueBag, name string, value any) ValueBag {
	out := bag.Clone()
	out[name] = value
	return out
}

// Clone returns a shallow copy of the bag.
func (b ValueBag) Clone() ValueBag {
	out := make(ValueBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Conform returns a bag holding exactly the fields of s, coercing present
// values to their field type and filling the rest with empty values.
func Conform(s schema.Schema, raw map[string]any) ValueBag {
	bag := BuildEmpty(s)
	for _, f := range s {
		if v, ok := raw[f.Name]; ok && v != nil {
			bag[f.Name] = Coerce(f, v)
		}
	}
	return bag
}

// Coerce converts v to the Go type fields of f's type carry in a bag.
func Coerce(f schema.Field, v any) any {
	switch f.Type {
	case schema.TypeCheckbox:
		return Truthy(v)
	case schema.TypeNumber:
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case json.Number:
			if parsed, err := n.Float64(); err == nil {
				return parsed
			}
			return n.String()
		}
		s := strings.TrimSpace(String(v))
		if s == "" {
			return ""
		}
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return parsed
		}
		// Unparseable input is kept so validation can report it.
		return s
	default:
		return String(v)
	}
}

// Truthy interprets checkbox input: true, "1", "true", "on" and "yes" are
// checked, everything else is not.
func Truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "on", "yes":
			return true
		}
	}
	return false
}

// String renders a bag value the way templates print it.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = String(item)
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
