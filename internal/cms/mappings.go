package cms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"campus-cms/internal/model"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

// MappingInput names a new association between two modules.
type MappingInput struct {
	Name           string `json:"name"`
	SourceModuleID string `json:"source_module_id"`
	TargetModuleID string `json:"target_module_id"`
}

// ListMappings returns every mapping ordered by name.
func (m *Manager) ListMappings() ([]*model.Mapping, error) {
	mappings, err := storage.LoadAll[model.Mapping](m.store, storage.KindMapping)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(mappings, func(i, j int) bool {
		return strings.ToLower(mappings[i].Name) < strings.ToLower(mappings[j].Name)
	})
	return mappings, nil
}

// GetMapping loads a mapping by ID.
func (m *Manager) GetMapping(id string) (*model.Mapping, error) {
	var mp model.Mapping
	if err := m.load(storage.KindMapping, id, &mp); err != nil {
		return nil, err
	}
	return &mp, nil
}

// CreateMapping stores an empty mapping between two existing modules.
func (m *Manager) CreateMapping(in MappingInput) (*model.Mapping, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, schema.ValidationErrors{{Field: "name", Message: "Name is required"}}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.GetModule(in.SourceModuleID); err != nil {
		return nil, fmt.Errorf("source module: %w", err)
	}
	if _, err := m.GetModule(in.TargetModuleID); err != nil {
		return nil, fmt.Errorf("target module: %w", err)
	}

	now := m.timestamp()
	mp := &model.Mapping{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		SourceModuleID: in.SourceModuleID,
		TargetModuleID: in.TargetModuleID,
		Links:          []model.Link{},
		CreatedAt:      now,
		LastUpdated:    now,
	}
	if err := m.save(storage.KindMapping, mp.ID, mp); err != nil {
		return nil, err
	}
	m.logger.Info("Created mapping", "id", mp.ID, "source", mp.SourceModuleID, "target", mp.TargetModuleID)
	return mp, nil
}

// DeleteMapping removes a mapping and its links.
func (m *Manager) DeleteMapping(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.GetMapping(id); err != nil {
		return err
	}
	return m.store.Delete(storage.KindMapping, id)
}

// Link associates a source entry with a target entry. Linking an existing
// pair is a no-op.
func (m *Manager) Link(mappingID, sourceEntryID, targetEntryID string) (*model.Mapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, err := m.GetMapping(mappingID)
	if err != nil {
		return nil, err
	}
	if _, err := m.GetEntry(mp.SourceModuleID, sourceEntryID); err != nil {
		return nil, fmt.Errorf("source entry: %w", err)
	}
	if _, err := m.GetEntry(mp.TargetModuleID, targetEntryID); err != nil {
		return nil, fmt.Errorf("target entry: %w", err)
	}

	link := model.Link{SourceEntryID: sourceEntryID, TargetEntryID: targetEntryID}
	for _, l := range mp.Links {
		if l == link {
			return mp, nil
		}
	}
	mp.Links = append(mp.Links, link)
	mp.LastUpdated = m.timestamp()
	if err := m.save(storage.KindMapping, mp.ID, mp); err != nil {
		return nil, err
	}
	return mp, nil
}

// Unlink removes the association between two entries.
func (m *Manager) Unlink(mappingID, sourceEntryID, targetEntryID string) (*model.Mapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, err := m.GetMapping(mappingID)
	if err != nil {
		return nil, err
	}
	link := model.Link{SourceEntryID: sourceEntryID, TargetEntryID: targetEntryID}
	kept := make([]model.Link, 0, len(mp.Links))
	for _, l := range mp.Links {
		if l != link {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(mp.Links) {
		return nil, fmt.Errorf("link %s -> %s: %w", sourceEntryID, targetEntryID, ErrNotFound)
	}
	mp.Links = kept
	mp.LastUpdated = m.timestamp()
	if err := m.save(storage.KindMapping, mp.ID, mp); err != nil {
		return nil, err
	}
	return mp, nil
}

// LinkedEntries returns the target entries linked to a source entry, in the
// target module's display order.
func (m *Manager) LinkedEntries(mappingID, sourceEntryID string) ([]*model.Entry, error) {
	mp, err := m.GetMapping(mappingID)
	if err != nil {
		return nil, err
	}
	linked := map[string]bool{}
	for _, l := range mp.Links {
		if l.SourceEntryID == sourceEntryID {
			linked[l.TargetEntryID] = true
		}
	}
	targets, err := m.moduleEntries(mp.TargetModuleID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Entry, 0, len(linked))
	for _, e := range targets {
		if linked[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}
