package main

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"campus-cms/internal/cms"
	"campus-cms/internal/model"
	"campus-cms/internal/templating"
)

//go:embed templates/*.html
var templateFS embed.FS

// application holds the application-wide dependencies of the public site.
type application struct {
	logger     *slog.Logger
	cms        *cms.Manager
	layout     *template.Template
	uploadsURL string
	// sanitize is flipped by config reloads.
	sanitize atomic.Bool
}

// navLink is one entry of the site navigation.
type navLink struct {
	Title   string
	Href    string
	Current bool
}

// LayoutData holds the data passed to the layout template.
type LayoutData struct {
	Title       string
	Description string
	Slug        string
	Nav         []navLink
	Sections    []templating.RenderedSection
}

func newApplication(manager *cms.Manager, logger *slog.Logger, uploadsURL string) (*application, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	layout, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if uploadsURL == "" {
		uploadsURL = "/uploads"
	}
	return &application{
		logger:     logger,
		cms:        manager,
		layout:     layout,
		uploadsURL: "/" + strings.Trim(uploadsURL, "/"),
	}, nil
}

// routes sets up the HTTP router for the public site.
func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	uploads := http.FileServer(http.Dir(app.cms.UploadsDir()))
	r.Handle(app.uploadsURL+"/*", http.StripPrefix(app.uploadsURL+"/", uploads))

	r.Get("/", app.handlePage)
	r.Get("/{slug}", app.handlePage)

	return r
}

// handlePage renders the page named by the URL slug; the root path serves the
// home page. HTMX requests get the sections without the layout.
func (app *application) handlePage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		slug = cms.HomeSlug
	}

	page, err := app.cms.GetPageBySlug(slug)
	if err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}

	opts := []templating.EngineOption{templating.WithLogger(app.logger)}
	if app.sanitize.Load() {
		opts = append(opts, templating.WithSanitizer())
	}
	rendered, err := templating.NewEngine(app.cms.GetStore(), opts...).RenderPage(page)
	if err != nil {
		if errors.Is(err, templating.ErrPageInactive) {
			app.logger.Debug("Inactive page requested", "slug", slug)
			http.NotFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}

	data := LayoutData{
		Title:       page.Title,
		Description: page.MetaDescription,
		Slug:        page.Slug,
		Sections:    rendered.Sections,
	}
	if page.MetaTitle != "" {
		data.Title = page.MetaTitle
	}

	name := "layout.html"
	if r.Header.Get("HX-Request") == "true" {
		name = "page"
	} else if data.Nav, err = app.navigation(page.Slug); err != nil {
		app.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := app.layout.ExecuteTemplate(w, name, data); err != nil {
		app.logger.Error("Error executing layout template", "template", name, "slug", slug, "error", err)
	}
}

// navigation lists the active pages, home first.
func (app *application) navigation(current string) ([]navLink, error) {
	pages, err := app.cms.ListPages()
	if err != nil {
		return nil, err
	}
	links := make([]navLink, 0, len(pages))
	for _, p := range pages {
		if !p.IsActive {
			continue
		}
		link := navLink{Title: p.Title, Href: pageHref(p), Current: p.Slug == current}
		if p.Slug == cms.HomeSlug {
			links = append([]navLink{link}, links...)
			continue
		}
		links = append(links, link)
	}
	return links, nil
}

func pageHref(p *model.Page) string {
	if p.Slug == cms.HomeSlug {
		return "/"
	}
	return "/" + p.Slug
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Error("Error serving page", "path", r.URL.Path, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
