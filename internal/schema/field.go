package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldType identifies the kind of input a field is edited with and the Go type
// its value takes inside a value bag.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeCode     FieldType = "code"
	TypeNumber   FieldType = "number"
	TypeEmail    FieldType = "email"
	TypeURL      FieldType = "url"
	TypeSelect   FieldType = "select"
	TypeCheckbox FieldType = "checkbox"
	TypeRadio    FieldType = "radio"
	TypeFile     FieldType = "file"
	TypeImage    FieldType = "image"
	TypeDate     FieldType = "date"
	TypeColor    FieldType = "color"
)

// FieldTypes lists every supported type in the order the admin UI offers them.
var FieldTypes = []FieldType{
	TypeText, TypeTextarea, TypeCode, TypeNumber, TypeEmail, TypeURL, TypeSelect,
	TypeCheckbox, TypeRadio, TypeFile, TypeImage, TypeDate, TypeColor,
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	for _, known := range FieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

// NeedsOptions reports whether fields of this type must declare options.
func (t FieldType) NeedsOptions() bool {
	return t == TypeSelect || t == TypeRadio
}

// IsUpload reports whether values of this type reference an uploaded file.
func (t FieldType) IsUpload() bool {
	return t == TypeFile || t == TypeImage
}

// Option is one choice of a select or radio field. It is stored either as a
// bare string (Label empty) or as a {value, label} object.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// Text returns the label shown to users, falling back to the value.
func (o Option) Text() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Value
}

// MarshalJSON writes plain options as strings so stored schemas keep their shape.
func (o Option) MarshalJSON() ([]byte, error) {
	if o.Label == "" {
		return json.Marshal(o.Value)
	}
	type pair struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	return json.Marshal(pair{Value: o.Value, Label: o.Label})
}

// UnmarshalJSON accepts either a string or a {value, label} object.
func (o *Option) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = Option{Value: s}
		return nil
	}

	var pair struct {
		Value any    `json:"value"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("option must be a string or {value, label} object: %w", err)
	}
	value := optionValueString(pair.Value)
	label := pair.Label
	if label == "" {
		label = value
	}
	*o = Option{Value: value, Label: label}
	return nil
}

func optionValueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// Field describes one input of a section, module or repeatable item.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label" yaml:"label"`
	Required    bool      `json:"required" yaml:"required"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Default     string    `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	// SourceModule is the slug of another module whose entries populate this
	// field's choices.
	SourceModule string `json:"source_module,omitempty" yaml:"source_module,omitempty"`
}

// HasOption reports whether value is one of the field's option values.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func (f Field) clone() Field {
	if f.Options != nil {
		f.Options = append([]Option(nil), f.Options...)
	}
	return f
}
