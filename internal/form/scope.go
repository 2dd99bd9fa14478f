package form

import (
	"errors"
	"mime/multipart"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrScopeClosed is returned when a file is attached after Close.
var ErrScopeClosed = errors.New("form scope is closed")

// Scope owns the files picked while a form is edited and the previews issued
// for image files. A preview lives until the file of its input is replaced or
// the scope is closed.
type Scope struct {
	prefix string

	mu       sync.Mutex
	files    map[string]*multipart.FileHeader // input key -> file
	tokens   map[string]string                // input key -> preview token
	previews map[string]*multipart.FileHeader // preview token -> file
	closed   bool
}

// NewScope creates a scope whose preview URLs start with prefix.
func NewScope(prefix string) *Scope {
	return &Scope{
		prefix:   strings.TrimSuffix(prefix, "/") + "/",
		files:    map[string]*multipart.FileHeader{},
		tokens:   map[string]string{},
		previews: map[string]*multipart.FileHeader{},
	}
}

func (s *Scope) attach(key string, fh *multipart.FileHeader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrScopeClosed
	}

	s.releaseLocked(key)
	s.files[key] = fh
	if !isImage(fh) {
		return "", nil
	}
	token := uuid.NewString()
	s.tokens[key] = token
	s.previews[token] = fh
	return s.prefix + token, nil
}

func (s *Scope) releaseLocked(key string) {
	if token, ok := s.tokens[key]; ok {
		delete(s.previews, token)
		delete(s.tokens, key)
	}
}

// File returns the file attached to the input with the given key.
func (s *Scope) File(key string) (*multipart.FileHeader, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fh, ok := s.files[key]
	return fh, ok
}

// Files returns a copy of every attached file keyed by input key.
func (s *Scope) Files() map[string]*multipart.FileHeader {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*multipart.FileHeader, len(s.files))
	for k, v := range s.files {
		out[k] = v
	}
	return out
}

// PreviewURL returns the live preview URL of an input, or "".
func (s *Scope) PreviewURL(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.tokens[key]; ok {
		return s.prefix + token
	}
	return ""
}

// Preview resolves a preview token to its file while the preview is live.
func (s *Scope) Preview(token string) (*multipart.FileHeader, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fh, ok := s.previews[token]
	return fh, ok
}

// Live reports how many previews are held.
func (s *Scope) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.previews)
}

// Close releases every preview and file. It is safe to call more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	clear(s.previews)
	clear(s.tokens)
	clear(s.files)
}

func isImage(fh *multipart.FileHeader) bool {
	if fh.Header != nil && strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return true
	}
	name := strings.ToLower(fh.Filename)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
