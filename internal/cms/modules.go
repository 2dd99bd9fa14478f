package cms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"campus-cms/internal/entry"
	"campus-cms/internal/model"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

// ModuleInput carries the editable attributes of a module.
type ModuleInput struct {
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	Fields      schema.Schema `json:"fields_config"`
	IsActive    *bool         `json:"is_active"`
}

func moduleKey(mod *model.Module) (string, string) { return mod.ID, mod.Slug }

func validateModuleInput(in ModuleInput) error {
	var errs schema.ValidationErrors
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, &schema.ValidationError{Field: "name", Message: "Name is required"})
	}
	if err := in.Fields.Validate(); err != nil {
		errs = append(errs, &schema.ValidationError{Field: "fields_config", Message: err.Error()})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ListModules returns every module ordered by name.
func (m *Manager) ListModules() ([]*model.Module, error) {
	modules, err := storage.LoadAll[model.Module](m.store, storage.KindModule)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(modules, func(i, j int) bool {
		return strings.ToLower(modules[i].Name) < strings.ToLower(modules[j].Name)
	})
	return modules, nil
}

// GetModule loads a module by ID.
func (m *Manager) GetModule(id string) (*model.Module, error) {
	var mod model.Module
	if err := m.load(storage.KindModule, id, &mod); err != nil {
		return nil, err
	}
	return &mod, nil
}

// GetModuleBySlug finds a module by its slug.
func (m *Manager) GetModuleBySlug(slug string) (*model.Module, error) {
	mod, err := findBySlug(m.store, storage.KindModule, slug, moduleKey)
	if err != nil {
		return nil, err
	}
	if mod == nil {
		return nil, fmt.Errorf("module %q: %w", slug, ErrNotFound)
	}
	return mod, nil
}

// resolveModule accepts a module slug or ID.
func (m *Manager) resolveModule(ref string) (*model.Module, error) {
	mod, err := m.GetModuleBySlug(ref)
	if err == nil {
		return mod, nil
	}
	return m.GetModule(ref)
}

// CreateModule stores a new module.
func (m *Manager) CreateModule(in ModuleInput) (*model.Module, error) {
	m.logger.Info("Creating module", "name", in.Name, "customSlug", in.Slug)
	if err := validateModuleInput(in); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slug, err := resolveSlug(m.store, storage.KindModule, in.Slug, in.Name, "module", "", moduleKey)
	if err != nil {
		return nil, err
	}
	now := m.timestamp()
	mod := &model.Module{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: in.Description,
		Fields:      nonNil(in.Fields),
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := m.save(storage.KindModule, mod.ID, mod); err != nil {
		return nil, err
	}
	m.logger.Info("Successfully created module", "name", mod.Name, "id", mod.ID, "slug", mod.Slug)
	return mod, nil
}

// UpdateModule replaces the editable attributes of a module.
func (m *Manager) UpdateModule(id string, in ModuleInput) (*model.Module, error) {
	m.logger.Info("Updating module", "moduleID", id)
	if err := validateModuleInput(in); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mod, err := m.GetModule(id)
	if err != nil {
		return nil, err
	}
	if in.Slug != "" && in.Slug != mod.Slug {
		if mod.Slug, err = resolveSlug(m.store, storage.KindModule, in.Slug, in.Name, "module", id, moduleKey); err != nil {
			return nil, err
		}
	}
	mod.Name = strings.TrimSpace(in.Name)
	mod.Description = in.Description
	mod.Fields = nonNil(in.Fields)
	if in.IsActive != nil {
		mod.IsActive = *in.IsActive
	}
	mod.LastUpdated = m.timestamp()

	if err := m.save(storage.KindModule, mod.ID, mod); err != nil {
		return nil, err
	}
	m.logger.Info("Successfully updated module metadata", "moduleID", id)
	return mod, nil
}

// DeleteModule removes a module, its entries and every mapping that uses it.
func (m *Manager) DeleteModule(id string) error {
	m.logger.Info("Processing delete request", "moduleID", id)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.GetModule(id); err != nil {
		return err
	}

	entries, err := m.moduleEntries(id)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := m.store.Delete(storage.KindEntry, e.ID); err != nil {
			return fmt.Errorf("deleting entry %s failed: %w", e.ID, err)
		}
	}

	mappings, err := storage.LoadAll[model.Mapping](m.store, storage.KindMapping)
	if err != nil {
		return err
	}
	for _, mp := range mappings {
		if mp.SourceModuleID == id || mp.TargetModuleID == id {
			if err := m.store.Delete(storage.KindMapping, mp.ID); err != nil {
				return fmt.Errorf("deleting mapping %s failed: %w", mp.ID, err)
			}
		}
	}

	if err := m.store.Delete(storage.KindModule, id); err != nil {
		return fmt.Errorf("deleting module %s failed: %w", id, err)
	}
	m.logger.Info("Deleted module", "moduleID", id, "entries", len(entries))
	return nil
}

// Lookups lists {id, label} choices for the active entries of a module,
// addressed by slug or ID, in entry order. The label is the first non-empty
// text value of the entry.
func (m *Manager) Lookups(moduleRef string) ([]model.LookupOption, error) {
	mod, err := m.resolveModule(moduleRef)
	if err != nil {
		return nil, err
	}
	entries, err := m.ListEntries(mod.ID)
	if err != nil {
		return nil, err
	}
	out := make([]model.LookupOption, 0, len(entries))
	for _, e := range entries {
		if !e.IsActive {
			continue
		}
		out = append(out, model.LookupOption{ID: e.ID, Label: entryLabel(mod.Fields, e)})
	}
	return out, nil
}

// LookupsFor fetches the choices of every source-module field of s, keyed by
// the field's SourceModule. Missing modules are logged and yield no choices.
func (m *Manager) LookupsFor(s schema.Schema) (map[string][]model.LookupOption, error) {
	out := map[string][]model.LookupOption{}
	for _, f := range s {
		if f.SourceModule == "" {
			continue
		}
		if _, done := out[f.SourceModule]; done {
			continue
		}
		lookups, err := m.Lookups(f.SourceModule)
		if err != nil {
			m.logger.Warn("Lookup source module unavailable", "field", f.Name, "module", f.SourceModule, "error", err)
			lookups = []model.LookupOption{}
		}
		out[f.SourceModule] = lookups
	}
	return out, nil
}

func entryLabel(s schema.Schema, e *model.Entry) string {
	for _, f := range s {
		switch f.Type {
		case schema.TypeText, schema.TypeEmail, schema.TypeSelect, schema.TypeRadio:
			if v := strings.TrimSpace(entry.String(e.Values[f.Name])); v != "" {
				return v
			}
		}
	}
	return e.ID
}
