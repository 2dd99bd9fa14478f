package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/justinas/nosurf"

	"campus-cms/internal/storage"
)

// routes sets up the HTTP router for the admin application.
func (app *adminApplication) routes() http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/admin", func(r chi.Router) {
		if app.csrf {
			r.Use(app.csrfProtect)
		}
		r.Get("/csrf", app.csrfTokenHandler)

		r.Get("/sections", app.listSectionsHandler)
		r.Post("/sections", app.createSectionHandler)
		r.Route("/sections/{id}", func(r chi.Router) {
			r.Get("/", app.getSectionHandler)
			r.Put("/", app.updateSectionHandler)
			r.Delete("/", app.deleteSectionHandler)
			r.Get("/form", app.sectionFormHandler)
			r.Post("/preview", app.sectionPreviewHandler)
			r.Route("/schema/{target}", app.schemaRoutes(storage.KindSection))
		})

		r.Get("/pages", app.listPagesHandler)
		r.Post("/pages", app.createPageHandler)
		r.Route("/pages/{id}", func(r chi.Router) {
			r.Get("/", app.getPageHandler)
			r.Put("/", app.updatePageHandler)
			r.Delete("/", app.deletePageHandler)
			r.Get("/render", app.renderPageHandler)
			r.Post("/sections", app.attachSectionHandler)
			r.Route("/sections/{instanceID}", func(r chi.Router) {
				r.Delete("/", app.detachSectionHandler)
				r.Post("/move", app.moveSectionHandler)
				r.Put("/active", app.sectionActiveHandler)
				r.Get("/content", app.getContentHandler)
				r.Put("/content", app.saveContentHandler)
				r.Get("/form", app.contentFormHandler)
				r.Post("/form", app.submitContentFormHandler)
				r.Post("/form/files", app.pickFilesHandler)
			})
		})

		r.Get("/modules", app.listModulesHandler)
		r.Post("/modules", app.createModuleHandler)
		r.Route("/modules/{id}", func(r chi.Router) {
			r.Get("/", app.getModuleHandler)
			r.Put("/", app.updateModuleHandler)
			r.Delete("/", app.deleteModuleHandler)
			r.Get("/form", app.moduleFormHandler)
			r.Route("/schema/{target}", app.schemaRoutes(storage.KindModule))
			r.Get("/entries", app.listEntriesHandler)
			r.Post("/entries", app.createEntryHandler)
			r.Route("/entries/{entryID}", func(r chi.Router) {
				r.Get("/", app.getEntryHandler)
				r.Put("/", app.updateEntryHandler)
				r.Delete("/", app.deleteEntryHandler)
				r.Post("/move", app.moveEntryHandler)
			})
		})
		r.Get("/lookups/{module}", app.lookupsHandler)

		r.Get("/mappings", app.listMappingsHandler)
		r.Post("/mappings", app.createMappingHandler)
		r.Route("/mappings/{id}", func(r chi.Router) {
			r.Get("/", app.getMappingHandler)
			r.Delete("/", app.deleteMappingHandler)
			r.Post("/links", app.linkHandler)
			r.Delete("/links", app.unlinkHandler)
			r.Get("/links/{sourceEntryID}", app.linkedEntriesHandler)
		})

		r.Get("/previews/{token}", app.previewHandler)
		r.Delete("/form-sessions/{session}", app.discardFormHandler)

		r.Get("/images", app.listImagesHandler)
		r.Post("/images", app.uploadImageHandler)
		r.Delete("/images/{id}", app.deleteImageHandler)
	})

	return r
}

// schemaRoutes mounts the field operations of one schema. {target} selects
// "fields" or "items".
func (app *adminApplication) schemaRoutes(kind storage.Kind) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", app.getSchemaHandler(kind))
		r.Put("/", app.replaceSchemaHandler(kind))
		r.Post("/fields", app.addFieldHandler(kind))
		r.Put("/fields/{name}", app.editFieldHandler(kind))
		r.Delete("/fields/{name}", app.removeFieldHandler(kind))
		r.Post("/fields/{name}/move", app.moveFieldHandler(kind))
	}
}

// csrfProtect rejects state-changing requests without a valid token. The token
// is read from the X-CSRF-Token header or the csrf_token form field.
func (app *adminApplication) csrfProtect(next http.Handler) http.Handler {
	h := nosurf.New(next)
	h.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.logger.Warn("CSRF check failed", "method", r.Method, "path", r.URL.Path, "reason", nosurf.Reason(r))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, map[string]string{"error": "CSRF token missing or invalid"})
	}))
	return h
}

func (app *adminApplication) csrfTokenHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"token": nosurf.Token(r)})
}
