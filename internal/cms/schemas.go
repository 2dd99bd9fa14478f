package cms

import (
	"fmt"

	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

// SchemaTarget selects which schema of a section a field operation applies
// to. Modules only have TargetFields.
type SchemaTarget string

const (
	TargetFields SchemaTarget = "fields"
	TargetItems  SchemaTarget = "items"
)

// ParseSchemaTarget accepts "fields" (the default) and "items".
func ParseSchemaTarget(s string) (SchemaTarget, error) {
	switch s {
	case "", "fields", "fields_config":
		return TargetFields, nil
	case "items", "mapping_config":
		return TargetItems, nil
	}
	return "", invalid("unknown schema target %q", s)
}

// SchemaRef addresses one schema: a section's fields or items, or a module's
// fields.
type SchemaRef struct {
	Kind   storage.Kind
	ID     string
	Target SchemaTarget
}

func (r SchemaRef) String() string {
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.ID, r.Target)
}

// SectionFields, SectionItems and ModuleFields build the common refs.
func SectionFields(id string) SchemaRef { return SchemaRef{storage.KindSection, id, TargetFields} }
func SectionItems(id string) SchemaRef  { return SchemaRef{storage.KindSection, id, TargetItems} }
func ModuleFields(id string) SchemaRef  { return SchemaRef{storage.KindModule, id, TargetFields} }

// Schema returns the schema addressed by ref.
func (m *Manager) Schema(ref SchemaRef) (schema.Schema, error) {
	switch ref.Kind {
	case storage.KindSection:
		sec, err := m.GetSection(ref.ID)
		if err != nil {
			return nil, err
		}
		if ref.Target == TargetItems {
			return sec.ItemFields, nil
		}
		return sec.Fields, nil
	case storage.KindModule:
		if ref.Target == TargetItems {
			return nil, invalid("modules have no item schema")
		}
		mod, err := m.GetModule(ref.ID)
		if err != nil {
			return nil, err
		}
		return mod.Fields, nil
	}
	return nil, invalid("records of kind %s have no schema", ref.Kind)
}

// AddField appends a field to the schema addressed by ref.
func (m *Manager) AddField(ref SchemaRef, f schema.Field) (schema.Schema, error) {
	return m.updateSchema(ref, func(s schema.Schema) (schema.Schema, error) { return s.Add(f) })
}

// EditField replaces the named field, keeping its position.
func (m *Manager) EditField(ref SchemaRef, name string, f schema.Field) (schema.Schema, error) {
	return m.updateSchema(ref, func(s schema.Schema) (schema.Schema, error) {
		if _, ok := s.Lookup(name); !ok {
			return s, fmt.Errorf("field %q: %w", name, ErrNotFound)
		}
		return s.Edit(name, f)
	})
}

// RemoveField drops the named field.
func (m *Manager) RemoveField(ref SchemaRef, name string) (schema.Schema, error) {
	return m.updateSchema(ref, func(s schema.Schema) (schema.Schema, error) {
		if _, ok := s.Lookup(name); !ok {
			return s, fmt.Errorf("field %q: %w", name, ErrNotFound)
		}
		return s.Remove(name), nil
	})
}

// MoveField shifts the named field one position up or down.
func (m *Manager) MoveField(ref SchemaRef, name string, dir schema.Direction) (schema.Schema, error) {
	return m.updateSchema(ref, func(s schema.Schema) (schema.Schema, error) {
		if _, ok := s.Lookup(name); !ok {
			return s, fmt.Errorf("field %q: %w", name, ErrNotFound)
		}
		return s.Move(name, dir), nil
	})
}

// ReplaceSchema validates and stores a whole schema, as the interactive
// editor does when it commits.
func (m *Manager) ReplaceSchema(ref SchemaRef, next schema.Schema) error {
	if err := next.Validate(); err != nil {
		return err
	}
	_, err := m.updateSchema(ref, func(schema.Schema) (schema.Schema, error) { return next, nil })
	return err
}

// updateSchema loads the owner of ref, applies fn and saves the owner with the
// re-serialized schema.
func (m *Manager) updateSchema(ref SchemaRef, fn func(schema.Schema) (schema.Schema, error)) (schema.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ref.Kind {
	case storage.KindSection:
		sec, err := m.GetSection(ref.ID)
		if err != nil {
			return nil, err
		}
		target := &sec.Fields
		if ref.Target == TargetItems {
			target = &sec.ItemFields
		}
		next, err := fn(nonNil(*target))
		if err != nil {
			return nil, err
		}
		*target = next
		sec.LastUpdated = m.timestamp()
		if err := m.save(storage.KindSection, sec.ID, sec); err != nil {
			return nil, err
		}
		m.logger.Info("Updated schema", "ref", ref.String(), "fields", len(next))
		return next, nil

	case storage.KindModule:
		if ref.Target == TargetItems {
			return nil, invalid("modules have no item schema")
		}
		mod, err := m.GetModule(ref.ID)
		if err != nil {
			return nil, err
		}
		next, err := fn(nonNil(mod.Fields))
		if err != nil {
			return nil, err
		}
		mod.Fields = next
		mod.LastUpdated = m.timestamp()
		if err := m.save(storage.KindModule, mod.ID, mod); err != nil {
			return nil, err
		}
		m.logger.Info("Updated schema", "ref", ref.String(), "fields", len(next))
		return next, nil
	}
	return nil, invalid("records of kind %s have no schema", ref.Kind)
}
