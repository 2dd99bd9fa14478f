package cms

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"campus-cms/internal/entry"
	"campus-cms/internal/model"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

func (m *Manager) moduleEntries(moduleID string) ([]*model.Entry, error) {
	all, err := storage.LoadAll[model.Entry](m.store, storage.KindEntry)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Entry, 0)
	for _, e := range all {
		if e.ModuleID == moduleID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListEntries returns the entries of a module in display order.
func (m *Manager) ListEntries(moduleID string) ([]*model.Entry, error) {
	if _, err := m.GetModule(moduleID); err != nil {
		return nil, err
	}
	return m.moduleEntries(moduleID)
}

// GetEntry loads one entry of a module.
func (m *Manager) GetEntry(moduleID, id string) (*model.Entry, error) {
	var e model.Entry
	if err := m.load(storage.KindEntry, id, &e); err != nil {
		return nil, err
	}
	if e.ModuleID != moduleID {
		return nil, fmt.Errorf("entry %s of module %s: %w", id, moduleID, ErrNotFound)
	}
	return &e, nil
}

// CreateEntry validates values against the module schema and appends a new
// entry. Validation failures are returned as schema.ValidationErrors.
func (m *Manager) CreateEntry(moduleID string, values map[string]any) (*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mod, err := m.GetModule(moduleID)
	if err != nil {
		return nil, err
	}
	bag := entry.Conform(mod.Fields, withDefaults(mod.Fields, values))
	if errs := entry.Validate(mod.Fields, bag); len(errs) > 0 {
		return nil, errs
	}

	existing, err := m.moduleEntries(moduleID)
	if err != nil {
		return nil, err
	}
	order := 0
	for _, e := range existing {
		if e.Order >= order {
			order = e.Order + 1
		}
	}

	now := m.timestamp()
	e := &model.Entry{
		ID:          uuid.NewString(),
		ModuleID:    moduleID,
		Values:      bag,
		Order:       order,
		IsActive:    true,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := m.save(storage.KindEntry, e.ID, e); err != nil {
		return nil, err
	}
	m.logger.Info("Created entry", "module", mod.Slug, "id", e.ID)
	return e, nil
}

// UpdateEntry replaces the values of an entry. isActive may be nil.
func (m *Manager) UpdateEntry(moduleID, id string, values map[string]any, isActive *bool) (*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mod, err := m.GetModule(moduleID)
	if err != nil {
		return nil, err
	}
	e, err := m.GetEntry(moduleID, id)
	if err != nil {
		return nil, err
	}
	bag := entry.Conform(mod.Fields, values)
	if errs := entry.Validate(mod.Fields, bag); len(errs) > 0 {
		return nil, errs
	}
	e.Values = bag
	if isActive != nil {
		e.IsActive = *isActive
	}
	e.LastUpdated = m.timestamp()
	if err := m.save(storage.KindEntry, e.ID, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEntry removes an entry and any mapping links that reference it.
func (m *Manager) DeleteEntry(moduleID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.GetEntry(moduleID, id); err != nil {
		return err
	}

	mappings, err := storage.LoadAll[model.Mapping](m.store, storage.KindMapping)
	if err != nil {
		return err
	}
	for _, mp := range mappings {
		kept := mp.Links[:0]
		for _, l := range mp.Links {
			if l.SourceEntryID != id && l.TargetEntryID != id {
				kept = append(kept, l)
			}
		}
		if len(kept) == len(mp.Links) {
			continue
		}
		mp.Links = kept
		mp.LastUpdated = m.timestamp()
		if err := m.save(storage.KindMapping, mp.ID, mp); err != nil {
			return err
		}
	}

	if err := m.store.Delete(storage.KindEntry, id); err != nil {
		return fmt.Errorf("deleting entry %s failed: %w", id, err)
	}
	return nil
}

// MoveEntry swaps an entry with its neighbour in display order.
func (m *Manager) MoveEntry(moduleID, id string, dir schema.Direction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.moduleEntries(moduleID)
	if err != nil {
		return err
	}
	i := -1
	for n, e := range entries {
		if e.ID == id {
			i = n
		}
	}
	if i < 0 {
		return fmt.Errorf("entry %s of module %s: %w", id, moduleID, ErrNotFound)
	}
	j := i - 1
	if dir == schema.Down {
		j = i + 1
	}
	if j < 0 || j >= len(entries) {
		return nil
	}
	entries[i], entries[j] = entries[j], entries[i]

	now := m.timestamp()
	for n, e := range entries {
		if e.Order == n {
			continue
		}
		e.Order = n
		e.LastUpdated = now
		if err := m.save(storage.KindEntry, e.ID, e); err != nil {
			return err
		}
	}
	return nil
}

// withDefaults fills declared defaults for fields missing from values.
func withDefaults(s schema.Schema, values map[string]any) map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range entry.BuildDefaults(s) {
		out[k] = v
	}
	for k, v := range values {
		out[k] = v
	}
	return out
}
