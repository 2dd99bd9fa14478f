package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarshalJSON writes the canonical form: a JSON array, never null.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Field(s))
}

// UnmarshalJSON accepts everything Parse accepts.
func (s *Schema) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parse reads a stored schema. Empty input and null are the empty schema. A
// JSON string holding the array (double-encoded columns) is unwrapped first.
func Parse(data []byte) (Schema, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Schema{}, nil
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, &ParseError{Source: "schema", Err: err}
		}
		return Parse([]byte(inner))
	}

	var fields []Field
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &ParseError{Source: "schema", Err: err}
	}
	return Schema(fields), nil
}

// ParseOrEmpty is Parse that falls back to the empty schema. The error is
// returned so the caller can log it.
func ParseOrEmpty(data []byte) (Schema, error) {
	s, err := Parse(data)
	if err != nil {
		return Schema{}, err
	}
	return s, nil
}

// Format is a schema file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported format %q (want json or yaml)", s)
}

// Document is the exported form of a section or module definition.
type Document struct {
	Name           string `json:"name" yaml:"name"`
	Slug           string `json:"slug,omitempty" yaml:"slug,omitempty"`
	Fields         Schema `json:"fields_config" yaml:"fields_config"`
	MappingEnabled bool   `json:"mapping_enabled,omitempty" yaml:"mapping_enabled,omitempty"`
	Items          Schema `json:"mapping_config,omitempty" yaml:"mapping_config,omitempty"`
	HTMLTemplate   string `json:"html_template,omitempty" yaml:"html_template,omitempty"`
}

// Encode writes doc in the given format.
func Encode(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatJSON, "":
		return json.MarshalIndent(doc, "", "  ")
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// Decode reads a document and validates both of its schemas.
func Decode(data []byte, format Format) (Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON, "":
		err = json.Unmarshal(data, &doc)
	default:
		return doc, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return doc, &ParseError{Source: "document", Err: err}
	}
	if err := doc.Fields.Validate(); err != nil {
		return doc, fmt.Errorf("fields_config: %w", err)
	}
	if err := doc.Items.Validate(); err != nil {
		return doc, fmt.Errorf("mapping_config: %w", err)
	}
	return doc, nil
}

// MarshalYAML mirrors MarshalJSON: plain options become scalars.
func (o Option) MarshalYAML() (any, error) {
	if o.Label == "" {
		return o.Value, nil
	}
	return map[string]string{"value": o.Value, "label": o.Label}, nil
}

// UnmarshalYAML accepts a scalar or a {value, label} mapping.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*o = Option{Value: node.Value}
		return nil
	}
	var pair struct {
		Value string `yaml:"value"`
		Label string `yaml:"label"`
	}
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("option must be a scalar or {value, label} mapping: %w", err)
	}
	if pair.Label == "" {
		pair.Label = pair.Value
	}
	*o = Option{Value: pair.Value, Label: pair.Label}
	return nil
}
