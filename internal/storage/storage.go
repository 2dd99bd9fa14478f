package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Kind names a collection of records (one directory or one table partition).
type Kind string

const (
	KindSection Kind = "sections"
	KindPage    Kind = "pages"
	KindModule  Kind = "modules"
	KindEntry   Kind = "entries"
	KindMapping Kind = "mappings"
	KindImage   Kind = "images"
)

// ErrNotFound is returned by Load when no record has the requested ID.
var ErrNotFound = errors.New("record not found")

// DataStore defines the operations needed for persisting CMS records as opaque
// JSON blobs keyed by kind and ID. This allows swapping the JSON file store for
// the SQLite store through configuration.
type DataStore interface {
	// Save persists record (marshalled to JSON) under kind/id, replacing any
	// previous version.
	Save(kind Kind, id string, record any) error

	// Load unmarshals the record stored under kind/id into dst.
	Load(kind Kind, id string, dst any) error

	// ListIDs returns the IDs stored for kind in ascending order.
	ListIDs(kind Kind) ([]string, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(kind Kind, id string) error

	// GetBasePath returns the storage location (directory or database file).
	GetBasePath() string

	Close() error
}

// Open returns the store selected by driver ("json" or "sqlite").
func Open(driver, path string, logger *slog.Logger) (DataStore, error) {
	switch strings.ToLower(driver) {
	case "", "json":
		return NewJSONStore(path, logger)
	case "sqlite", "sqlite3":
		return NewSQLiteStore(path, logger)
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}

// LoadAll loads every record of kind. A record that fails to load aborts the
// whole read.
func LoadAll[T any](s DataStore, kind Kind) ([]*T, error) {
	ids, err := s.ListIDs(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	records := make([]*T, 0, len(ids))
	for _, id := range ids {
		var rec T
		if err := s.Load(kind, id, &rec); err != nil {
			return nil, fmt.Errorf("failed to load %s %s during LoadAll: %w", kind, id, err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

func validateKey(kind Kind, id string) error {
	if kind == "" {
		return fmt.Errorf("record kind cannot be empty")
	}
	if id == "" {
		return fmt.Errorf("%s ID cannot be empty", kind)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid %s ID %q", kind, id)
	}
	return nil
}

func sortedIDs(ids []string) []string {
	sort.Strings(ids)
	return ids
}
