package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"campus-cms/internal/cms"
	"campus-cms/internal/entry"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

// newTestApplication builds a site backed by a JSON store in a temp dir with
// a home page, an about page and a hidden draft page.
func newTestApplication(t *testing.T) *application {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewJSONStore(filepath.Join(dir, "data"), nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	manager := cms.NewManager(store, nil, cms.WithUploads(filepath.Join(dir, "uploads"), "/uploads", 0))

	sec, err := manager.CreateSection(cms.SectionInput{
		Name:         "Hero",
		Fields:       schema.Schema{{Name: "title", Type: schema.TypeText, Label: "Title"}},
		HTMLTemplate: "<h1>{title}</h1>",
	})
	if err != nil {
		t.Fatalf("CreateSection() error = %v", err)
	}

	for _, in := range []cms.PageInput{
		{Title: "Home", MetaTitle: "University of Somewhere"},
		{Title: "About", MetaDescription: "Who we are"},
	} {
		p, err := manager.CreatePage(in)
		if err != nil {
			t.Fatalf("CreatePage(%s) error = %v", in.Title, err)
		}
		inst, err := manager.AttachSection(p.ID, sec.ID)
		if err != nil {
			t.Fatalf("AttachSection() error = %v", err)
		}
		if _, err := manager.SaveSectionContent(p.ID, inst.ID, entry.ValueBag{"title": in.Title + " <em>page</em>"}, nil); err != nil {
			t.Fatalf("SaveSectionContent() error = %v", err)
		}
	}
	inactive := false
	if _, err := manager.CreatePage(cms.PageInput{Title: "Draft", IsActive: &inactive}); err != nil {
		t.Fatalf("CreatePage(draft) error = %v", err)
	}

	app, err := newApplication(manager, nil, "/uploads")
	if err != nil {
		t.Fatalf("newApplication() error = %v", err)
	}
	return app
}

func serve(t *testing.T, app *application, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	app.routes().ServeHTTP(rr, req)
	return rr
}

func TestHomePage(t *testing.T) {
	app := newTestApplication(t)
	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"<title>University of Somewhere</title>",
		"<h1>Home <em>page</em></h1>",
		`<a href="/" aria-current="page">Home</a>`,
		`<a href="/about">About</a>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("GET / body missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "Draft") {
		t.Errorf("inactive page listed in navigation:\n%s", body)
	}
}

func TestPageBySlug(t *testing.T) {
	app := newTestApplication(t)
	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/about", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("GET /about status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `<meta name="description" content="Who we are">`) {
		t.Errorf("meta description missing:\n%s", body)
	}
	if !strings.Contains(body, "<h1>About <em>page</em></h1>") {
		t.Errorf("section not rendered:\n%s", body)
	}
}

func TestSanitizeSwitch(t *testing.T) {
	app := newTestApplication(t)
	app.sanitize.Store(true)
	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/about", nil))
	if !strings.Contains(rr.Body.String(), "<h1>About <em>page</em></h1>") {
		t.Errorf("allowed markup removed by sanitizer:\n%s", rr.Body.String())
	}
}

func TestHTMXFragment(t *testing.T) {
	app := newTestApplication(t)
	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	req.Header.Set("HX-Request", "true")
	rr := serve(t, app, req)

	body := rr.Body.String()
	if strings.Contains(body, "<html") {
		t.Errorf("HTMX request got the full layout:\n%s", body)
	}
	if !strings.Contains(body, `class="cms-section section-hero"`) {
		t.Errorf("HTMX fragment missing section wrapper:\n%s", body)
	}
}

func TestMissingAndInactivePages(t *testing.T) {
	app := newTestApplication(t)
	for _, path := range []string{"/nope", "/draft"} {
		rr := serve(t, app, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, rr.Code, http.StatusNotFound)
		}
	}
}

func TestUploadsServed(t *testing.T) {
	app := newTestApplication(t)
	if err := os.MkdirAll(app.cms.UploadsDir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(app.cms.UploadsDir(), "site.css"), []byte("body{}"), 0644); err != nil {
		t.Fatal(err)
	}

	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/uploads/site.css", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /uploads/site.css status = %d", rr.Code)
	}
	if got := rr.Body.String(); got != "body{}" {
		t.Errorf("body = %q", got)
	}
}
