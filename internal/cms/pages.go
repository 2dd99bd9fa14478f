package cms

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"campus-cms/internal/entry"
	"campus-cms/internal/model"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

// HomeSlug is the slug served at the site root.
const HomeSlug = "home"

// PageInput carries the editable attributes of a page.
type PageInput struct {
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	IsActive        *bool  `json:"is_active"`
}

func pageKey(p *model.Page) (string, string) { return p.ID, p.Slug }

// ListPages returns every page ordered by title.
func (m *Manager) ListPages() ([]*model.Page, error) {
	pages, err := storage.LoadAll[model.Page](m.store, storage.KindPage)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return strings.ToLower(pages[i].Title) < strings.ToLower(pages[j].Title)
	})
	return pages, nil
}

// GetPage loads a page by ID.
func (m *Manager) GetPage(id string) (*model.Page, error) {
	var p model.Page
	if err := m.load(storage.KindPage, id, &p); err != nil {
		return nil, err
	}
	sort.SliceStable(p.Sections, func(i, j int) bool {
		return p.Sections[i].Order < p.Sections[j].Order
	})
	return &p, nil
}

// GetPageBySlug finds a page by its slug.
func (m *Manager) GetPageBySlug(slug string) (*model.Page, error) {
	p, err := findBySlug(m.store, storage.KindPage, slug, pageKey)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("page %q: %w", slug, ErrNotFound)
	}
	return p, nil
}

// CreatePage stores a new page with no sections.
func (m *Manager) CreatePage(in PageInput) (*model.Page, error) {
	m.logger.Info("Creating page", "title", in.Title, "slug", in.Slug)
	if strings.TrimSpace(in.Title) == "" {
		return nil, schema.ValidationErrors{{Field: "title", Message: "Title is required"}}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slug, err := resolveSlug(m.store, storage.KindPage, in.Slug, in.Title, "page", "", pageKey)
	if err != nil {
		return nil, err
	}
	now := m.timestamp()
	p := &model.Page{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(in.Title),
		Slug:            slug,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		Sections:        []model.PageSection{},
		IsActive:        in.IsActive == nil || *in.IsActive,
		CreatedAt:       now,
		LastUpdated:     now,
	}
	if err := m.save(storage.KindPage, p.ID, p); err != nil {
		return nil, err
	}
	m.logger.Info("Successfully created page", "id", p.ID, "slug", p.Slug)
	return p, nil
}

// UpdatePage replaces the editable attributes of a page. Sections are kept.
func (m *Manager) UpdatePage(id string, in PageInput) (*model.Page, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, schema.ValidationErrors{{Field: "title", Message: "Title is required"}}
	}
	return m.modifyPage(id, func(p *model.Page) error {
		if in.Slug != "" && in.Slug != p.Slug {
			slug, err := resolveSlug(m.store, storage.KindPage, in.Slug, in.Title, "page", id, pageKey)
			if err != nil {
				return err
			}
			p.Slug = slug
		}
		p.Title = strings.TrimSpace(in.Title)
		p.MetaTitle = in.MetaTitle
		p.MetaDescription = in.MetaDescription
		if in.IsActive != nil {
			p.IsActive = *in.IsActive
		}
		return nil
	})
}

// DeletePage removes a page and its section instances.
func (m *Manager) DeletePage(id string) error {
	m.logger.Info("Deleting page", "id", id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.GetPage(id); err != nil {
		return err
	}
	if err := m.store.Delete(storage.KindPage, id); err != nil {
		return fmt.Errorf("deleting page %s failed: %w", id, err)
	}
	return nil
}

// AttachSection places a section at the end of a page. The new instance
// starts with the section's default values and no items.
func (m *Manager) AttachSection(pageID, sectionID string) (*model.PageSection, error) {
	var added model.PageSection
	_, err := m.modifyPage(pageID, func(p *model.Page) error {
		sec, err := m.GetSection(sectionID)
		if err != nil {
			return err
		}
		content, err := entry.Encode(entry.BuildDefaults(sec.Fields), entry.Items{}, sec.RepeatableFields())
		if err != nil {
			return err
		}
		added = model.PageSection{
			ID:        uuid.NewString(),
			SectionID: sec.ID,
			Order:     len(p.Sections),
			IsActive:  true,
			Content:   content,
		}
		p.Sections = append(p.Sections, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("Attached section to page", "page", pageID, "section", sectionID, "instance", added.ID)
	return &added, nil
}

// DetachSection removes a section instance from a page.
func (m *Manager) DetachSection(pageID, instanceID string) error {
	_, err := m.modifyPage(pageID, func(p *model.Page) error {
		i, err := instanceIndex(p, instanceID)
		if err != nil {
			return err
		}
		p.Sections = renumber(append(p.Sections[:i:i], p.Sections[i+1:]...))
		return nil
	})
	return err
}

// MoveSection swaps a section instance with its neighbour.
func (m *Manager) MoveSection(pageID, instanceID string, dir schema.Direction) error {
	_, err := m.modifyPage(pageID, func(p *model.Page) error {
		i, err := instanceIndex(p, instanceID)
		if err != nil {
			return err
		}
		j := i - 1
		if dir == schema.Down {
			j = i + 1
		}
		if j < 0 || j >= len(p.Sections) {
			return nil
		}
		p.Sections[i], p.Sections[j] = p.Sections[j], p.Sections[i]
		p.Sections = renumber(p.Sections)
		return nil
	})
	return err
}

// SetSectionActive shows or hides a section instance on the public page.
func (m *Manager) SetSectionActive(pageID, instanceID string, active bool) error {
	_, err := m.modifyPage(pageID, func(p *model.Page) error {
		i, err := instanceIndex(p, instanceID)
		if err != nil {
			return err
		}
		p.Sections[i].IsActive = active
		return nil
	})
	return err
}

// InstanceContent is a section instance decoded against its section.
type InstanceContent struct {
	Page     *model.Page
	Instance model.PageSection
	Section  *model.Section
	Values   entry.ValueBag
	Items    entry.Items
}

// SectionContent decodes the values of a section instance. Malformed stored
// content is logged and returned as empty values.
func (m *Manager) SectionContent(pageID, instanceID string) (*InstanceContent, error) {
	p, err := m.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	i, err := instanceIndex(p, instanceID)
	if err != nil {
		return nil, err
	}
	ps := p.Sections[i]
	sec, err := m.GetSection(ps.SectionID)
	if err != nil {
		return nil, err
	}

	values, items, err := entry.Decode(ps.Content, sec.Fields, sec.RepeatableFields())
	if err != nil {
		var perr *schema.ParseError
		if !errors.As(err, &perr) {
			return nil, err
		}
		m.logger.Warn("Malformed section content, using empty values", "page", p.Slug, "instance", instanceID, "error", err)
	}
	return &InstanceContent{Page: p, Instance: ps, Section: sec, Values: values, Items: items}, nil
}

// ContentInput is the body of a content save. Items may be a list of item
// objects or per-field arrays.
type ContentInput struct {
	Values map[string]any  `json:"values"`
	Items  json.RawMessage `json:"items,omitempty"`
}

// DecodeItems reads the items of a content save against the item schema.
func (in ContentInput) DecodeItems(itemSchema schema.Schema) (entry.Items, error) {
	if len(itemSchema) == 0 || len(in.Items) == 0 || string(in.Items) == "null" {
		return entry.Items{}, nil
	}
	var raw any
	if err := json.Unmarshal(in.Items, &raw); err != nil {
		return nil, &schema.ParseError{Source: "items", Err: err}
	}
	switch v := raw.(type) {
	case []any:
		items := make(entry.Items, 0, len(v))
		for _, it := range v {
			obj, _ := it.(map[string]any)
			items = append(items, entry.Conform(itemSchema, obj))
		}
		return items, nil
	case map[string]any:
		return entry.ItemsFromArrays(entry.NormalizeItems(v, itemSchema), itemSchema), nil
	}
	return nil, invalid("items must be a list or an object of arrays")
}

// SaveSectionContent validates and stores the values of a section instance.
func (m *Manager) SaveSectionContent(pageID, instanceID string, values entry.ValueBag, items entry.Items) (*model.PageSection, error) {
	var saved model.PageSection
	_, err := m.modifyPage(pageID, func(p *model.Page) error {
		i, err := instanceIndex(p, instanceID)
		if err != nil {
			return err
		}
		sec, err := m.GetSection(p.Sections[i].SectionID)
		if err != nil {
			return err
		}

		bag := entry.Conform(sec.Fields, values)
		if errs := entry.Validate(sec.Fields, bag); len(errs) > 0 {
			return errs
		}
		itemSchema := sec.RepeatableFields()
		conformed := make(entry.Items, 0, len(items))
		for n, it := range items {
			item := entry.Conform(itemSchema, it)
			if errs := entry.Validate(itemSchema, item); len(errs) > 0 {
				for _, e := range errs {
					e.Field = fmt.Sprintf("items.%d.%s", n, e.Field)
				}
				return errs
			}
			conformed = append(conformed, item)
		}

		content, err := entry.Encode(bag, conformed, itemSchema)
		if err != nil {
			return err
		}
		p.Sections[i].Content = content
		saved = p.Sections[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// modifyPage loads a page, applies fn and saves it under the manager lock.
func (m *Manager) modifyPage(id string, fn func(*model.Page) error) (*model.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.GetPage(id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.LastUpdated = m.timestamp()
	if err := m.save(storage.KindPage, p.ID, p); err != nil {
		return nil, err
	}
	return p, nil
}

func instanceIndex(p *model.Page, instanceID string) (int, error) {
	for i, ps := range p.Sections {
		if ps.ID == instanceID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("section instance %s on page %s: %w", instanceID, p.Slug, ErrNotFound)
}

// renumber rewrites Order to match slice position.
func renumber(sections []model.PageSection) []model.PageSection {
	for i := range sections {
		sections[i].Order = i
	}
	return sections
}
