package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// JSONStore implements the DataStore interface using JSON files.
// It stores each record as BasePath/<kind>/<id>.json.
type JSONStore struct {
	// BasePath is the directory holding one subdirectory per kind.
	BasePath string

	mu     sync.RWMutex
	logger *slog.Logger
}

// NewJSONStore creates a new JSONStore instance.
// It ensures the base storage directory exists.
func NewJSONStore(basePath string, logger *slog.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", basePath, err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &JSONStore{BasePath: basePath, logger: logger}, nil
}

// GetBasePath returns the base path of the JSON store.
func (js *JSONStore) GetBasePath() string {
	return js.BasePath
}

// Close is a no-op; files are not held open between calls.
func (js *JSONStore) Close() error {
	return nil
}

func (js *JSONStore) path(kind Kind, id string) string {
	return filepath.Join(js.BasePath, string(kind), id+".json")
}

// Save writes the record to a temporary file and renames it into place so
// readers never observe a half-written record.
func (js *JSONStore) Save(kind Kind, id string, record any) error {
	if err := validateKey(kind, id); err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	dir := filepath.Join(js.BasePath, string(kind))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}
	filePath := js.path(kind, id)
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file %s: %w", kind, tmp, err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s file %s: %w", kind, filePath, err)
	}
	js.logger.Debug("Saved record", "kind", kind, "id", id, "path", filePath)
	return nil
}

// Load reads a record from its JSON file.
func (js *JSONStore) Load(kind Kind, id string, dst any) error {
	if err := validateKey(kind, id); err != nil {
		return err
	}
	filePath := js.path(kind, id)

	js.mu.RLock()
	data, err := os.ReadFile(filePath)
	js.mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
		}
		return fmt.Errorf("failed to read %s file %s: %w", kind, filePath, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s data from %s: %w", kind, filePath, err)
	}
	return nil
}

// ListIDs scans the kind directory for *.json files and extracts IDs.
func (js *JSONStore) ListIDs(kind Kind) ([]string, error) {
	js.mu.RLock()
	files, err := os.ReadDir(filepath.Join(js.BasePath, string(kind)))
	js.mu.RUnlock()
	if err != nil {
		// Nothing saved for this kind yet.
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s directory: %w", kind, err)
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".json") {
			ids = append(ids, strings.TrimSuffix(file.Name(), ".json"))
		}
	}
	return sortedIDs(ids), nil
}

// Delete removes the record's JSON file.
func (js *JSONStore) Delete(kind Kind, id string) error {
	if err := validateKey(kind, id); err != nil {
		return err
	}
	filePath := js.path(kind, id)

	js.mu.Lock()
	defer js.mu.Unlock()
	if err := os.Remove(filePath); err != nil {
		// Idempotent delete.
		if errors.Is(err, os.ErrNotExist) {
			js.logger.Debug("Record file already deleted or never existed", "path", filePath)
			return nil
		}
		return fmt.Errorf("failed to delete %s file %s: %w", kind, filePath, err)
	}
	js.logger.Debug("Deleted record", "kind", kind, "id", id)
	return nil
}
