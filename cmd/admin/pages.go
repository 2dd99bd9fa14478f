package main

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"campus-cms/internal/cms"
	"campus-cms/internal/entry"
	"campus-cms/internal/form"
	"campus-cms/internal/schema"
	"campus-cms/internal/templating"
)

// maxFormMemory is how much of a multipart form is held in memory; larger
// files spill to temporary files.
const maxFormMemory = 32 << 20

func (app *adminApplication) listPagesHandler(w http.ResponseWriter, r *http.Request) {
	pages, err := app.cms.ListPages()
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pages)
}

func (app *adminApplication) createPageHandler(w http.ResponseWriter, r *http.Request) {
	var in cms.PageInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	p, err := app.cms.CreatePage(in)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, p)
}

func (app *adminApplication) getPageHandler(w http.ResponseWriter, r *http.Request) {
	p, err := app.cms.GetPage(chi.URLParam(r, "id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, p)
}

func (app *adminApplication) updatePageHandler(w http.ResponseWriter, r *http.Request) {
	var in cms.PageInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	p, err := app.cms.UpdatePage(chi.URLParam(r, "id"), in)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, p)
}

func (app *adminApplication) deletePageHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.cms.DeletePage(chi.URLParam(r, "id")); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// renderPageHandler previews the page body as the public site would show it.
func (app *adminApplication) renderPageHandler(w http.ResponseWriter, r *http.Request) {
	p, err := app.cms.GetPage(chi.URLParam(r, "id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	rendered, err := app.engine().RenderPage(p)
	if err != nil {
		if errors.Is(err, templating.ErrPageInactive) {
			err = fmt.Errorf("%w: %v", cms.ErrInvalid, err)
		}
		app.errorResponse(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, rendered.Body())
}

// --- Section instances ---

type attachRequest struct {
	SectionID string `json:"section_id"`
}

func (app *adminApplication) attachSectionHandler(w http.ResponseWriter, r *http.Request) {
	var req attachRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	if req.SectionID == "" {
		app.errorResponse(w, r, schema.ValidationErrors{{Field: "section_id", Message: "Section is required"}})
		return
	}
	ps, err := app.cms.AttachSection(chi.URLParam(r, "id"), req.SectionID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, ps)
}

func (app *adminApplication) detachSectionHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.cms.DetachSection(chi.URLParam(r, "id"), chi.URLParam(r, "instanceID")); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *adminApplication) moveSectionHandler(w http.ResponseWriter, r *http.Request) {
	dir, err := direction(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	pageID := chi.URLParam(r, "id")
	if err := app.cms.MoveSection(pageID, chi.URLParam(r, "instanceID"), dir); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.getPageHandler(w, r)
}

type activeRequest struct {
	IsActive bool `json:"is_active"`
}

func (app *adminApplication) sectionActiveHandler(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	if err := app.cms.SetSectionActive(chi.URLParam(r, "id"), chi.URLParam(r, "instanceID"), req.IsActive); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.getPageHandler(w, r)
}

type contentResponse struct {
	InstanceID string         `json:"instance_id"`
	SectionID  string         `json:"section_id"`
	Values     entry.ValueBag `json:"values"`
	Items      entry.Items    `json:"items"`
}

func newContentResponse(c *cms.InstanceContent) contentResponse {
	items := c.Items
	if items == nil {
		items = entry.Items{}
	}
	return contentResponse{InstanceID: c.Instance.ID, SectionID: c.Section.ID, Values: c.Values, Items: items}
}

func (app *adminApplication) getContentHandler(w http.ResponseWriter, r *http.Request) {
	c, err := app.cms.SectionContent(chi.URLParam(r, "id"), chi.URLParam(r, "instanceID"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newContentResponse(c))
}

// saveContentHandler validates and stores the values of a section instance.
// Items may be posted as a list of objects or as per-field arrays.
func (app *adminApplication) saveContentHandler(w http.ResponseWriter, r *http.Request) {
	pageID, instanceID := chi.URLParam(r, "id"), chi.URLParam(r, "instanceID")
	current, err := app.cms.SectionContent(pageID, instanceID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	var in cms.ContentInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	items, err := in.DecodeItems(current.Section.RepeatableFields())
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.saveContent(w, r, pageID, instanceID, in.Values, items)
}

func (app *adminApplication) saveContent(w http.ResponseWriter, r *http.Request, pageID, instanceID string, values entry.ValueBag, items entry.Items) {
	if _, err := app.cms.SaveSectionContent(pageID, instanceID, values, items); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	c, err := app.cms.SectionContent(pageID, instanceID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newContentResponse(c))
}

// contentFormHandler renders the edit form of a section instance filled with
// its stored values. With ?session= the file inputs show the previews of the
// files picked in that form session.
func (app *adminApplication) contentFormHandler(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")
	c, err := app.cms.SectionContent(chi.URLParam(r, "id"), instanceID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	var scope *form.Scope
	if id := r.URL.Query().Get("session"); id != "" {
		sess, err := app.sessions.open(id, instanceID)
		if err != nil {
			app.errorResponse(w, r, err)
			return
		}
		scope = sess.scope
	}
	app.writeForm(w, r, c.Section.Fields, c.Section.RepeatableFields(), c.Values, c.Items, scope)
}

// submitContentFormHandler applies a multipart submission of the instance
// form. Files posted with it, and those picked earlier in the form session
// named by the "session" field, are stored in the uploads directory and their
// URLs saved as the field values. A successful save ends the session.
func (app *adminApplication) submitContentFormHandler(w http.ResponseWriter, r *http.Request) {
	pageID, instanceID := chi.URLParam(r, "id"), chi.URLParam(r, "instanceID")
	c, err := app.cms.SectionContent(pageID, instanceID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if app.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, app.maxUpload+maxFormMemory)
	}
	// Plain urlencoded submissions are accepted too; ParseMultipartForm has
	// already filled PostForm by the time it reports ErrNotMultipart.
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		app.errorResponse(w, r, formError(err))
		return
	}

	var (
		files map[string][]*multipart.FileHeader
		scope *form.Scope
	)
	sessionID := r.PostForm.Get("session")
	if sessionID != "" {
		sess, err := app.sessions.open(sessionID, instanceID)
		if err != nil {
			if r.MultipartForm != nil {
				r.MultipartForm.RemoveAll()
			}
			app.errorResponse(w, r, err)
			return
		}
		if r.MultipartForm != nil {
			app.sessions.keep(sess, r.MultipartForm)
		}
		scope = sess.scope
	} else {
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		scope = form.NewScope(previewPrefix)
		defer scope.Close()
	}
	if r.MultipartForm != nil {
		files = r.MultipartForm.File
	}

	f := &form.Form{
		Fields:     c.Section.Fields,
		ItemFields: c.Section.RepeatableFields(),
		Values:     c.Values,
		Items:      c.Items,
		Scope:      scope,
	}
	attached, err := f.Bind(r.PostForm, files)
	if err != nil {
		app.errorResponse(w, r, fmt.Errorf("%w: %v", cms.ErrInvalid, err))
		return
	}
	attached = append(attached, pickedEarlier(f, attached)...)

	for _, in := range attached {
		url, err := app.storeAttachment(scope, in)
		if err != nil {
			app.errorResponse(w, r, err)
			return
		}
		in.Change(url)
	}

	if _, err := app.cms.SaveSectionContent(pageID, instanceID, f.Values, f.Items); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if sessionID != "" {
		app.sessions.end(sessionID)
	}
	app.getContentHandler(w, r)
}

// pickedEarlier returns the inputs whose file was attached to the form's scope
// before this submission. Files of items that no longer exist are skipped.
func pickedEarlier(f *form.Form, attached []*form.Input) []*form.Input {
	done := make(map[string]bool, len(attached))
	for _, in := range attached {
		done[in.Key] = true
	}
	byKey := map[string]*form.Input{}
	for _, in := range f.Inputs() {
		byKey[in.Key] = in
	}
	for i := range f.Items {
		for _, in := range f.ItemInputs(i) {
			byKey[in.Key] = in
		}
	}

	var out []*form.Input
	for key := range f.Scope.Files() {
		if in, ok := byKey[key]; ok && !done[key] && in.Control == form.ControlFile {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
