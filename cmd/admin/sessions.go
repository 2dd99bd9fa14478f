package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"campus-cms/internal/cms"
	"campus-cms/internal/form"
	"campus-cms/internal/schema"
)

const (
	// previewPrefix is where previews of picked image files are served.
	previewPrefix = "/api/admin/previews"
	// formSessionTTL is how long an untouched form session keeps its files.
	formSessionTTL = time.Hour
)

// formSession holds the files picked while the form of one section instance
// is open, from the first pick until the form is submitted or discarded.
type formSession struct {
	id         string
	instanceID string
	scope      *form.Scope
	uploads    []*multipart.Form
	touched    time.Time
}

func (s *formSession) close() {
	s.scope.Close()
	for _, f := range s.uploads {
		f.RemoveAll()
	}
	s.uploads = nil
}

// formSessions is the registry of open form sessions.
type formSessions struct {
	mu       sync.Mutex
	sessions map[string]*formSession
	ttl      time.Duration
	now      func() time.Time
}

func newFormSessions(ttl time.Duration) *formSessions {
	return &formSessions{sessions: map[string]*formSession{}, ttl: ttl, now: time.Now}
}

// open returns the session called id, or starts a new one for instanceID when
// id is empty. A session belonging to another instance is reported as not found.
func (fs *formSessions) open(id, instanceID string) (*formSession, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.expireLocked()

	if id == "" {
		s := &formSession{
			id:         uuid.NewString(),
			instanceID: instanceID,
			scope:      form.NewScope(previewPrefix),
			touched:    fs.now(),
		}
		fs.sessions[s.id] = s
		return s, nil
	}
	s, ok := fs.sessions[id]
	if !ok || s.instanceID != instanceID {
		return nil, fmt.Errorf("form session %s: %w", id, cms.ErrNotFound)
	}
	s.touched = fs.now()
	return s, nil
}

// keep hands a parsed multipart form to the session so its temporary files
// outlive the request.
func (fs *formSessions) keep(s *formSession, mf *multipart.Form) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	s.uploads = append(s.uploads, mf)
}

// end closes a session and releases its previews and files.
func (fs *formSessions) end(id string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	s, ok := fs.sessions[id]
	if !ok {
		return false
	}
	delete(fs.sessions, id)
	s.close()
	return true
}

// preview resolves a preview token across the open sessions.
func (fs *formSessions) preview(token string) (*multipart.FileHeader, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.expireLocked()
	for _, s := range fs.sessions {
		if fh, ok := s.scope.Preview(token); ok {
			return fh, true
		}
	}
	return nil, false
}

func (fs *formSessions) expireLocked() {
	cutoff := fs.now().Add(-fs.ttl)
	for id, s := range fs.sessions {
		if s.touched.Before(cutoff) {
			delete(fs.sessions, id)
			s.close()
		}
	}
}

type pickResponse struct {
	Session  string            `json:"session"`
	Files    map[string]string `json:"files"`
	Previews map[string]string `json:"previews"`
}

// pickFilesHandler attaches the posted files to the instance's form session
// without saving anything. Image files get a preview URL that stays valid
// until the form is submitted or discarded.
func (app *adminApplication) pickFilesHandler(w http.ResponseWriter, r *http.Request) {
	pageID, instanceID := chi.URLParam(r, "id"), chi.URLParam(r, "instanceID")
	c, err := app.cms.SectionContent(pageID, instanceID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if app.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, app.maxUpload+maxFormMemory)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			err = fmt.Errorf("%w: expected a multipart/form-data upload", cms.ErrInvalid)
		} else {
			err = formError(err)
		}
		app.errorResponse(w, r, err)
		return
	}

	requested := r.PostForm.Get("session")
	sess, err := app.sessions.open(requested, instanceID)
	if err != nil {
		r.MultipartForm.RemoveAll()
		app.errorResponse(w, r, err)
		return
	}
	app.sessions.keep(sess, r.MultipartForm)
	fail := func(err error) {
		if requested == "" {
			app.sessions.end(sess.id)
		}
		app.errorResponse(w, r, err)
	}

	f := &form.Form{
		Fields:     c.Section.Fields,
		ItemFields: c.Section.RepeatableFields(),
		Values:     c.Values,
		Items:      c.Items,
		Scope:      sess.scope,
	}
	attached, err := f.Bind(r.PostForm, r.MultipartForm.File)
	if err != nil {
		fail(fmt.Errorf("%w: %v", cms.ErrInvalid, err))
		return
	}
	if len(attached) == 0 {
		fail(schema.ValidationErrors{{Field: "file", Message: "No file was posted for a file field"}})
		return
	}

	resp := pickResponse{Session: sess.id, Files: map[string]string{}, Previews: map[string]string{}}
	for _, in := range attached {
		resp.Files[in.Key] = in.Text()
		if in.Preview != "" {
			resp.Previews[in.Key] = in.Preview
		}
	}
	app.logger.Info("Files picked", "session", sess.id, "instance", instanceID, "count", len(attached))
	respond(w, r, http.StatusOK, resp)
}

// previewHandler streams a picked image while its preview is live.
func (app *adminApplication) previewHandler(w http.ResponseWriter, r *http.Request) {
	fh, ok := app.sessions.preview(chi.URLParam(r, "token"))
	if !ok {
		app.errorResponse(w, r, fmt.Errorf("preview: %w", cms.ErrNotFound))
		return
	}
	f, err := fh.Open()
	if err != nil {
		app.errorResponse(w, r, fmt.Errorf("opening preview %s: %w", fh.Filename, err))
		return
	}
	defer f.Close()

	ctype := fh.Header.Get("Content-Type")
	if ctype == "" {
		ctype = mime.TypeByExtension(filepath.Ext(fh.Filename))
	}
	if ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		app.logger.Warn("Preview write failed", "file", fh.Filename, "error", err)
	}
}

// discardFormHandler ends a form session without saving.
func (app *adminApplication) discardFormHandler(w http.ResponseWriter, r *http.Request) {
	if !app.sessions.end(chi.URLParam(r, "session")) {
		app.errorResponse(w, r, fmt.Errorf("form session: %w", cms.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
