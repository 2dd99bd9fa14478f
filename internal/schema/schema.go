// Package schema holds the ordered field descriptor lists that define the shape
// of sections, repeatable items and modules.
//
// A Schema is a value: every mutation returns a new Schema and leaves the
// receiver untouched, so a rejected change never corrupts the caller's copy.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidName reports whether name is a lowercase snake_case identifier starting
// with a letter.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Direction is the way Move shifts a field.
type Direction int

const (
	Up Direction = iota
	Down
)

// ParseDirection maps "up" and "down" to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, fmt.Errorf("unknown direction %q (want up or down)", s)
}

// Schema is an ordered list of field descriptors. Order is display order and
// template order.
type Schema []Field

// Lookup returns the field called name.
func (s Schema) Lookup(name string) (Field, bool) {
	if i := s.index(name); i >= 0 {
		return s[i], true
	}
	return Field{}, false
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

func (s Schema) index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (s Schema) clone() Schema {
	out := make(Schema, len(s))
	for i, f := range s {
		out[i] = f.clone()
	}
	return out
}

// Add appends f after validating it against the existing fields.
func (s Schema) Add(f Field) (Schema, error) {
	f = normalize(f)
	if err := ValidateField(f, s); err != nil {
		return s, err
	}
	return append(s.clone(), f.clone()), nil
}

// Remove drops the field called name. Removing an unknown name is a no-op.
func (s Schema) Remove(name string) Schema {
	i := s.index(name)
	if i < 0 {
		return s
	}
	out := make(Schema, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out.clone()
}

// Move swaps the field called name with its neighbour. Moving past either end
// leaves the schema unchanged.
func (s Schema) Move(name string, dir Direction) Schema {
	i := s.index(name)
	if i < 0 {
		return s
	}
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(s) {
		return s
	}
	out := s.clone()
	out[i], out[j] = out[j], out[i]
	return out
}

// Edit replaces the field called name with f. The replacement is validated as
// though the original had been removed first, so renaming onto another field
// fails exactly like adding a duplicate. The field keeps its position.
func (s Schema) Edit(name string, f Field) (Schema, error) {
	i := s.index(name)
	if i < 0 {
		return s, &ValidationError{Field: "name", Message: fmt.Sprintf("field %q does not exist", name)}
	}
	f = normalize(f)
	if err := ValidateField(f, s.Remove(name)); err != nil {
		return s, err
	}
	out := s.clone()
	out[i] = f.clone()
	return out, nil
}

// Validate checks every field in order against the fields before it. It is used
// for imported schemas that never went through Add.
func (s Schema) Validate() error {
	var seen Schema
	for _, f := range s {
		if err := ValidateField(normalize(f), seen); err != nil {
			return err
		}
		seen = append(seen, f)
	}
	return nil
}

// ValidateField runs the descriptor rules in order and returns the first
// failure: label, name presence, name uniqueness, name format, options.
func ValidateField(f Field, existing Schema) *ValidationError {
	if strings.TrimSpace(f.Label) == "" {
		return &ValidationError{Field: "label", Message: "Label is required"}
	}
	if f.Name == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	if existing.index(f.Name) >= 0 {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("A field named %q already exists", f.Name)}
	}
	if !ValidName(f.Name) {
		return &ValidationError{Field: "name", Message: "Name must start with a lowercase letter and contain only lowercase letters, numbers and underscores"}
	}
	// Choices of a source-module field come from that module's entries.
	if f.Type.NeedsOptions() && f.SourceModule == "" && !hasOptions(f) {
		return &ValidationError{Field: "options", Message: fmt.Sprintf("Options are required for %s fields", f.Type)}
	}
	if !f.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("Unknown field type %q", f.Type)}
	}
	return nil
}

func hasOptions(f Field) bool {
	for _, opt := range f.Options {
		if strings.TrimSpace(opt.Value) != "" {
			return true
		}
	}
	return false
}

// normalize fills the default type and drops blank options.
func normalize(f Field) Field {
	if f.Type == "" {
		f.Type = TypeText
	}
	f.Type = FieldType(strings.ToLower(string(f.Type)))
	if len(f.Options) > 0 {
		kept := make([]Option, 0, len(f.Options))
		for _, opt := range f.Options {
			if strings.TrimSpace(opt.Value) == "" {
				continue
			}
			kept = append(kept, opt)
		}
		if len(kept) == 0 {
			kept = nil
		}
		f.Options = kept
	}
	return f
}
