package model

import (
	"time"

	"campus-cms/internal/schema"
)

// Module is an admin-defined content type (staff, programs, news...). Its
// fields_config defines the shape of every entry.
type Module struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description,omitempty"`
	Fields      schema.Schema `json:"fields_config"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"createdAt"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// Entry is one record of a module. Values are keyed by the module's field names.
type Entry struct {
	ID          string         `json:"id"`
	ModuleID    string         `json:"module_id"`
	Values      map[string]any `json:"data"`
	Order       int            `json:"order"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"createdAt"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// Mapping associates entries of a source module with entries of a target
// module (many-to-many).
type Mapping struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SourceModuleID string    `json:"source_module_id"`
	TargetModuleID string    `json:"target_module_id"`
	Links          []Link    `json:"links"`
	CreatedAt      time.Time `json:"createdAt"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Link is one association between a source entry and a target entry.
type Link struct {
	SourceEntryID string `json:"source_entry_id"`
	TargetEntryID string `json:"target_entry_id"`
}

// LookupOption is an {id, label} pair offered by fields that reference another
// module.
type LookupOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
