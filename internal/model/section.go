package model

import (
	"encoding/json"
	"time"

	"campus-cms/internal/schema"
)

// Section is a reusable block of a page: an HTML template with its field
// schema and, when MappingEnabled, a schema for repeatable items.
type Section struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Slug           string        `json:"slug"`
	Fields         schema.Schema `json:"fields_config"`
	MappingEnabled bool          `json:"mapping_enabled"`
	ItemFields     schema.Schema `json:"mapping_config"`
	HTMLTemplate   string        `json:"html_template"`
	IsActive       bool          `json:"is_active"`
	CreatedAt      time.Time     `json:"createdAt"`
	LastUpdated    time.Time     `json:"lastUpdated"`
}

// RepeatableFields returns the item schema, or nil when items are disabled.
func (s *Section) RepeatableFields() schema.Schema {
	if !s.MappingEnabled {
		return nil
	}
	return s.ItemFields
}

// Page is a public page made of ordered section instances.
type Page struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	MetaTitle       string        `json:"meta_title,omitempty"`
	MetaDescription string        `json:"meta_description,omitempty"`
	Sections        []PageSection `json:"sections"`
	IsActive        bool          `json:"is_active"`
	CreatedAt       time.Time     `json:"createdAt"`
	LastUpdated     time.Time     `json:"lastUpdated"`
}

// PageSection places a section on a page and carries the values filled in for
// that placement.
type PageSection struct {
	ID        string          `json:"id"`
	SectionID string          `json:"section_id"`
	Order     int             `json:"order"`
	IsActive  bool            `json:"is_active"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// Image is an uploaded file in the image library.
type Image struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Original   string    `json:"original_name"`
	URL        string    `json:"url"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}
