// Package cms implements the content operations behind the admin API and the
// CLI: sections and their schemas, pages and their section instances, modules
// and entries, mappings between entries and the image library. Every change is
// persisted through a storage.DataStore.
package cms

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"campus-cms/internal/storage"
)

var (
	// ErrNotFound wraps every lookup of a missing record.
	ErrNotFound = storage.ErrNotFound
	// ErrConflict is returned when a slug is already used by another record.
	ErrConflict = errors.New("slug already in use")
	// ErrInvalid is returned for malformed requests that are not field
	// validation failures (wrong schema target, bad index).
	ErrInvalid = errors.New("invalid request")
)

// Manager provides methods for managing CMS content.
type Manager struct {
	store  storage.DataStore
	logger *slog.Logger

	uploadsDir string
	uploadsURL string
	maxUpload  int64

	// mu serializes read-modify-write sequences against the store.
	mu  sync.Mutex
	now func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithUploads sets where the image library stores files and the URL prefix
// they are served under.
func WithUploads(dir, urlPrefix string, maxBytes int64) Option {
	return func(m *Manager) {
		m.uploadsDir = dir
		m.uploadsURL = urlPrefix
		m.maxUpload = maxBytes
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a new Manager instance.
func NewManager(store storage.DataStore, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manager{
		store:      store,
		logger:     logger,
		uploadsDir: "uploads",
		uploadsURL: "/uploads",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetStore returns the underlying DataStore instance.
func (m *Manager) GetStore() storage.DataStore {
	return m.store
}

// UploadsDir returns the directory holding uploaded files.
func (m *Manager) UploadsDir() string {
	return m.uploadsDir
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC()
}

func (m *Manager) load(kind storage.Kind, id string, dst any) error {
	if err := m.store.Load(kind, id, dst); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		m.logger.Error("Error loading record", "kind", kind, "id", id, "error", err)
		return fmt.Errorf("loading %s %s failed: %w", kind, id, err)
	}
	return nil
}

func (m *Manager) save(kind storage.Kind, id string, record any) error {
	if err := m.store.Save(kind, id, record); err != nil {
		m.logger.Error("Error saving record", "kind", kind, "id", id, "error", err)
		return fmt.Errorf("saving %s %s failed: %w", kind, id, err)
	}
	return nil
}

// invalid wraps ErrInvalid with a message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
