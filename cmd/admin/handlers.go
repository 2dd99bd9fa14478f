package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-cms/internal/cms"
	"campus-cms/internal/entry"
	"campus-cms/internal/form"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

// --- Sections ---

func (app *adminApplication) listSectionsHandler(w http.ResponseWriter, r *http.Request) {
	sections, err := app.cms.ListSections()
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, sections)
}

func (app *adminApplication) createSectionHandler(w http.ResponseWriter, r *http.Request) {
	var in cms.SectionInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	sec, err := app.cms.CreateSection(in)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, sec)
}

func (app *adminApplication) getSectionHandler(w http.ResponseWriter, r *http.Request) {
	sec, err := app.cms.GetSection(chi.URLParam(r, "id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, sec)
}

func (app *adminApplication) updateSectionHandler(w http.ResponseWriter, r *http.Request) {
	var in cms.SectionInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	sec, err := app.cms.UpdateSection(chi.URLParam(r, "id"), in)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, sec)
}

func (app *adminApplication) deleteSectionHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.cms.DeleteSection(chi.URLParam(r, "id")); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sectionFormHandler renders an empty form for the section: default values
// and, when items are enabled, one blank item.
func (app *adminApplication) sectionFormHandler(w http.ResponseWriter, r *http.Request) {
	sec, err := app.cms.GetSection(chi.URLParam(r, "id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	items := entry.Items{}
	if itemSchema := sec.RepeatableFields(); len(itemSchema) > 0 {
		items = items.Add(itemSchema)
	}
	app.writeForm(w, r, sec.Fields, sec.RepeatableFields(), entry.BuildDefaults(sec.Fields), items, nil)
}

type previewRequest struct {
	// HTMLTemplate overrides the stored template while it is being edited.
	HTMLTemplate string `json:"html_template"`
	cms.ContentInput
}

// sectionPreviewHandler expands the section template with posted values
// without saving anything.
func (app *adminApplication) sectionPreviewHandler(w http.ResponseWriter, r *http.Request) {
	sec, err := app.cms.GetSection(chi.URLParam(r, "id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	var req previewRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	items, err := req.DecodeItems(sec.RepeatableFields())
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	tpl := sec.HTMLTemplate
	if req.HTMLTemplate != "" {
		tpl = req.HTMLTemplate
	}
	html := app.engine().Preview(tpl, entry.Conform(sec.Fields, req.Values), items)
	respond(w, r, http.StatusOK, map[string]string{"html": html})
}

// --- Schemas ---

func schemaRef(r *http.Request, kind storage.Kind) (cms.SchemaRef, error) {
	target, err := cms.ParseSchemaTarget(chi.URLParam(r, "target"))
	if err != nil {
		return cms.SchemaRef{}, err
	}
	return cms.SchemaRef{Kind: kind, ID: chi.URLParam(r, "id"), Target: target}, nil
}

type schemaResponse struct {
	Ref    string        `json:"ref"`
	Fields schema.Schema `json:"fields"`
}

// schemaOp adapts one field operation into a handler answering with the
// updated schema.
func (app *adminApplication) schemaOp(kind storage.Kind, op func(w http.ResponseWriter, r *http.Request, ref cms.SchemaRef) (schema.Schema, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := schemaRef(r, kind)
		if err != nil {
			app.errorResponse(w, r, err)
			return
		}
		s, ok := op(w, r, ref)
		if !ok {
			return
		}
		respond(w, r, http.StatusOK, schemaResponse{Ref: ref.String(), Fields: s})
	}
}

func (app *adminApplication) getSchemaHandler(kind storage.Kind) http.HandlerFunc {
	return app.schemaOp(kind, func(w http.ResponseWriter, r *http.Request, ref cms.SchemaRef) (schema.Schema, bool) {
		s, err := app.cms.Schema(ref)
		if err != nil {
			app.errorResponse(w, r, err)
			return nil, false
		}
		return s, true
	})
}

func (app *adminApplication) replaceSchemaHandler(kind storage.Kind) http.HandlerFunc {
	return app.schemaOp(kind, func(w http.ResponseWriter, r *http.Request, ref cms.SchemaRef) (schema.Schema, bool) {
		var next schema.Schema
		if !app.decodeJSON(w, r, &next) {
			return nil, false
		}
		if err := app.cms.ReplaceSchema(ref, next); err != nil {
			app.errorResponse(w, r, err)
			return nil, false
		}
		return next, true
	})
}

func (app *adminApplication) addFieldHandler(kind storage.Kind) http.HandlerFunc {
	return app.schemaOp(kind, func(w http.ResponseWriter, r *http.Request, ref cms.SchemaRef) (schema.Schema, bool) {
		var f schema.Field
		if !app.decodeJSON(w, r, &f) {
			return nil, false
		}
		s, err := app.cms.AddField(ref, f)
		if err != nil {
			app.errorResponse(w, r, err)
			return nil, false
		}
		return s, true
	})
}

func (app *adminApplication) editFieldHandler(kind storage.Kind) http.HandlerFunc {
	return app.schemaOp(kind, func(w http.ResponseWriter, r *http.Request, ref cms.SchemaRef) (schema.Schema, bool) {
		var f schema.Field
		if !app.decodeJSON(w, r, &f) {
			return nil, false
		}
		s, err := app.cms.EditField(ref, chi.URLParam(r, "name"), f)
		if err != nil {
			app.errorResponse(w, r, err)
			return nil, false
		}
		return s, true
	})
}

func (app *adminApplication) removeFieldHandler(kind storage.Kind) http.HandlerFunc {
	return app.schemaOp(kind, func(w http.ResponseWriter, r *http.Request, ref cms.SchemaRef) (schema.Schema, bool) {
		s, err := app.cms.RemoveField(ref, chi.URLParam(r, "name"))
		if err != nil {
			app.errorResponse(w, r, err)
			return nil, false
		}
		return s, true
	})
}

func (app *adminApplication) moveFieldHandler(kind storage.Kind) http.HandlerFunc {
	return app.schemaOp(kind, func(w http.ResponseWriter, r *http.Request, ref cms.SchemaRef) (schema.Schema, bool) {
		dir, err := direction(r)
		if err != nil {
			app.errorResponse(w, r, err)
			return nil, false
		}
		s, err := app.cms.MoveField(ref, chi.URLParam(r, "name"), dir)
		if err != nil {
			app.errorResponse(w, r, err)
			return nil, false
		}
		return s, true
	})
}

// --- Forms ---

// writeForm renders the inputs of a schema with the given values as an HTML
// fragment. Source-module fields get their lookup choices.
func (app *adminApplication) writeForm(w http.ResponseWriter, r *http.Request, fields, itemFields schema.Schema, values entry.ValueBag, items entry.Items, scope *form.Scope) {
	lookups, err := app.cms.LookupsFor(append(append(schema.Schema{}, fields...), itemFields...))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	f := &form.Form{
		Fields:     fields,
		ItemFields: itemFields,
		Values:     values,
		Items:      items,
		Lookups:    lookups,
		Scope:      scope,
	}
	html, err := f.HTML()
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, html)
}
