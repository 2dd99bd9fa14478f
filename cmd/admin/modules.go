package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-cms/internal/cms"
	"campus-cms/internal/entry"
)

func (app *adminApplication) listModulesHandler(w http.ResponseWriter, r *http.Request) {
	modules, err := app.cms.ListModules()
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, modules)
}

func (app *adminApplication) createModuleHandler(w http.ResponseWriter, r *http.Request) {
	var in cms.ModuleInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	mod, err := app.cms.CreateModule(in)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, mod)
}

func (app *adminApplication) getModuleHandler(w http.ResponseWriter, r *http.Request) {
	mod, err := app.cms.GetModule(chi.URLParam(r, "id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mod)
}

func (app *adminApplication) updateModuleHandler(w http.ResponseWriter, r *http.Request) {
	var in cms.ModuleInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	mod, err := app.cms.UpdateModule(chi.URLParam(r, "id"), in)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mod)
}

func (app *adminApplication) deleteModuleHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.cms.DeleteModule(chi.URLParam(r, "id")); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// moduleFormHandler renders the entry form of a module, filled from an
// existing entry when ?entry= names one.
func (app *adminApplication) moduleFormHandler(w http.ResponseWriter, r *http.Request) {
	moduleID := chi.URLParam(r, "id")
	mod, err := app.cms.GetModule(moduleID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	values := entry.BuildDefaults(mod.Fields)
	if entryID := r.URL.Query().Get("entry"); entryID != "" {
		e, err := app.cms.GetEntry(moduleID, entryID)
		if err != nil {
			app.errorResponse(w, r, err)
			return
		}
		values = entry.Conform(mod.Fields, e.Values)
	}
	app.writeForm(w, r, mod.Fields, nil, values, nil, nil)
}

func (app *adminApplication) lookupsHandler(w http.ResponseWriter, r *http.Request) {
	lookups, err := app.cms.Lookups(chi.URLParam(r, "module"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, lookups)
}

// --- Entries ---

type entryRequest struct {
	Values   map[string]any `json:"data"`
	IsActive *bool          `json:"is_active"`
}

func (app *adminApplication) listEntriesHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := app.cms.ListEntries(chi.URLParam(r, "id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, entries)
}

func (app *adminApplication) createEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	e, err := app.cms.CreateEntry(chi.URLParam(r, "id"), req.Values)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, e)
}

func (app *adminApplication) getEntryHandler(w http.ResponseWriter, r *http.Request) {
	e, err := app.cms.GetEntry(chi.URLParam(r, "id"), chi.URLParam(r, "entryID"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, e)
}

func (app *adminApplication) updateEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	e, err := app.cms.UpdateEntry(chi.URLParam(r, "id"), chi.URLParam(r, "entryID"), req.Values, req.IsActive)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, e)
}

func (app *adminApplication) deleteEntryHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.cms.DeleteEntry(chi.URLParam(r, "id"), chi.URLParam(r, "entryID")); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *adminApplication) moveEntryHandler(w http.ResponseWriter, r *http.Request) {
	dir, err := direction(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if err := app.cms.MoveEntry(chi.URLParam(r, "id"), chi.URLParam(r, "entryID"), dir); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.listEntriesHandler(w, r)
}

// --- Mappings ---

func (app *adminApplication) listMappingsHandler(w http.ResponseWriter, r *http.Request) {
	mappings, err := app.cms.ListMappings()
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mappings)
}

func (app *adminApplication) createMappingHandler(w http.ResponseWriter, r *http.Request) {
	var in cms.MappingInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	mp, err := app.cms.CreateMapping(in)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, mp)
}

func (app *adminApplication) getMappingHandler(w http.ResponseWriter, r *http.Request) {
	mp, err := app.cms.GetMapping(chi.URLParam(r, "id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mp)
}

func (app *adminApplication) deleteMappingHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.cms.DeleteMapping(chi.URLParam(r, "id")); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkRequest struct {
	SourceEntryID string `json:"source_entry_id"`
	TargetEntryID string `json:"target_entry_id"`
}

func (app *adminApplication) linkHandler(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	mp, err := app.cms.Link(chi.URLParam(r, "id"), req.SourceEntryID, req.TargetEntryID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mp)
}

func (app *adminApplication) unlinkHandler(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	mp, err := app.cms.Unlink(chi.URLParam(r, "id"), req.SourceEntryID, req.TargetEntryID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mp)
}

func (app *adminApplication) linkedEntriesHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := app.cms.LinkedEntries(chi.URLParam(r, "id"), chi.URLParam(r, "sourceEntryID"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, entries)
}
