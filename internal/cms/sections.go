package cms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"campus-cms/internal/generator"
	"campus-cms/internal/model"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

// SectionInput carries the editable attributes of a section.
type SectionInput struct {
	Name           string        `json:"name"`
	Slug           string        `json:"slug"`
	Fields         schema.Schema `json:"fields_config"`
	MappingEnabled bool          `json:"mapping_enabled"`
	ItemFields     schema.Schema `json:"mapping_config"`
	HTMLTemplate   string        `json:"html_template"`
	IsActive       *bool         `json:"is_active"`
}

func sectionKey(s *model.Section) (string, string) { return s.ID, s.Slug }

func validateSectionInput(in SectionInput) error {
	var errs schema.ValidationErrors
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, &schema.ValidationError{Field: "name", Message: "Name is required"})
	}
	if err := in.Fields.Validate(); err != nil {
		errs = append(errs, &schema.ValidationError{Field: "fields_config", Message: err.Error()})
	}
	if err := in.ItemFields.Validate(); err != nil {
		errs = append(errs, &schema.ValidationError{Field: "mapping_config", Message: err.Error()})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ListSections returns every section ordered by name.
func (m *Manager) ListSections() ([]*model.Section, error) {
	sections, err := storage.LoadAll[model.Section](m.store, storage.KindSection)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return strings.ToLower(sections[i].Name) < strings.ToLower(sections[j].Name)
	})
	return sections, nil
}

// GetSection loads a section by ID.
func (m *Manager) GetSection(id string) (*model.Section, error) {
	var sec model.Section
	if err := m.load(storage.KindSection, id, &sec); err != nil {
		return nil, err
	}
	return &sec, nil
}

// GetSectionBySlug finds a section by its slug.
func (m *Manager) GetSectionBySlug(slug string) (*model.Section, error) {
	sec, err := findBySlug(m.store, storage.KindSection, slug, sectionKey)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, fmt.Errorf("section %q: %w", slug, ErrNotFound)
	}
	return sec, nil
}

// CreateSection stores a new section. A missing template is generated from
// the schemas.
func (m *Manager) CreateSection(in SectionInput) (*model.Section, error) {
	m.logger.Info("Creating section", "name", in.Name, "slug", in.Slug)
	if err := validateSectionInput(in); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slug, err := resolveSlug(m.store, storage.KindSection, in.Slug, in.Name, "section", "", sectionKey)
	if err != nil {
		return nil, err
	}

	now := m.timestamp()
	sec := &model.Section{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		Slug:           slug,
		Fields:         nonNil(in.Fields),
		MappingEnabled: in.MappingEnabled,
		ItemFields:     nonNil(in.ItemFields),
		HTMLTemplate:   in.HTMLTemplate,
		IsActive:       in.IsActive == nil || *in.IsActive,
		CreatedAt:      now,
		LastUpdated:    now,
	}
	if strings.TrimSpace(sec.HTMLTemplate) == "" {
		sec.HTMLTemplate = generator.DefaultTemplate(slug, sec.Fields, sec.RepeatableFields())
	}

	if err := m.save(storage.KindSection, sec.ID, sec); err != nil {
		return nil, err
	}
	m.logger.Info("Successfully created section", "id", sec.ID, "slug", sec.Slug)
	return sec, nil
}

// UpdateSection replaces the editable attributes of a section.
func (m *Manager) UpdateSection(id string, in SectionInput) (*model.Section, error) {
	m.logger.Info("Updating section", "id", id)
	if err := validateSectionInput(in); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sec, err := m.GetSection(id)
	if err != nil {
		return nil, err
	}
	requested := in.Slug
	if requested == sec.Slug {
		requested = ""
	}
	if requested != "" {
		if sec.Slug, err = resolveSlug(m.store, storage.KindSection, requested, in.Name, "section", id, sectionKey); err != nil {
			return nil, err
		}
	}

	sec.Name = strings.TrimSpace(in.Name)
	sec.Fields = nonNil(in.Fields)
	sec.MappingEnabled = in.MappingEnabled
	sec.ItemFields = nonNil(in.ItemFields)
	sec.HTMLTemplate = in.HTMLTemplate
	if in.IsActive != nil {
		sec.IsActive = *in.IsActive
	}
	sec.LastUpdated = m.timestamp()

	if err := m.save(storage.KindSection, sec.ID, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

// DeleteSection removes a section and every instance of it placed on a page.
func (m *Manager) DeleteSection(id string) error {
	m.logger.Info("Deleting section", "id", id)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.GetSection(id); err != nil {
		return err
	}

	pages, err := storage.LoadAll[model.Page](m.store, storage.KindPage)
	if err != nil {
		return err
	}
	for _, p := range pages {
		kept := p.Sections[:0]
		for _, ps := range p.Sections {
			if ps.SectionID != id {
				kept = append(kept, ps)
			}
		}
		if len(kept) == len(p.Sections) {
			continue
		}
		p.Sections = renumber(kept)
		p.LastUpdated = m.timestamp()
		if err := m.save(storage.KindPage, p.ID, p); err != nil {
			return err
		}
		m.logger.Info("Detached deleted section from page", "section", id, "page", p.Slug)
	}

	if err := m.store.Delete(storage.KindSection, id); err != nil {
		return fmt.Errorf("deleting section %s failed: %w", id, err)
	}
	return nil
}

func nonNil(s schema.Schema) schema.Schema {
	if s == nil {
		return schema.Schema{}
	}
	return s
}
