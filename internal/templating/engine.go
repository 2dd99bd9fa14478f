package templating

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"sort"
	"strings"

	"campus-cms/internal/entry"
	"campus-cms/internal/model"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

// ErrPageInactive is returned when rendering a page that is switched off.
var ErrPageInactive = errors.New("page is inactive")

// Engine renders pages by expanding each placed section's template with the
// content stored for that placement.
type Engine struct {
	store  storage.DataStore
	logger *slog.Logger
	filter ValueFilter
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSanitizer passes every substituted value through the HTML sanitizer.
func WithSanitizer() EngineOption {
	return func(e *Engine) { e.filter = Sanitize }
}

// WithLogger sets the logger used for recoverable rendering problems.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new template engine.
func NewEngine(store storage.DataStore, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RenderedSection is one expanded section instance of a page.
type RenderedSection struct {
	InstanceID  string
	SectionID   string
	SectionSlug string
	HTML        template.HTML
}

// RenderedPage is a page ready to be written into the site layout.
type RenderedPage struct {
	Page     *model.Page
	Sections []RenderedSection
}

// Body joins the rendered sections in order.
func (rp *RenderedPage) Body() template.HTML {
	var b strings.Builder
	for _, s := range rp.Sections {
		b.WriteString(string(s.HTML))
		b.WriteString("\n")
	}
	return template.HTML(b.String())
}

// RenderPage expands the active section instances of page in order. Instances
// pointing at a missing or inactive section are skipped. Content that fails to
// parse is logged and rendered as empty values.
func (e *Engine) RenderPage(page *model.Page) (*RenderedPage, error) {
	if page == nil {
		return nil, errors.New("page is nil")
	}
	if !page.IsActive {
		return nil, fmt.Errorf("cannot render page %s: %w", page.Slug, ErrPageInactive)
	}

	instances := make([]model.PageSection, 0, len(page.Sections))
	for _, ps := range page.Sections {
		if ps.IsActive {
			instances = append(instances, ps)
		}
	}
	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].Order < instances[j].Order
	})

	out := &RenderedPage{Page: page, Sections: make([]RenderedSection, 0, len(instances))}
	for _, ps := range instances {
		var sec model.Section
		if err := e.store.Load(storage.KindSection, ps.SectionID, &sec); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				e.logger.Warn("Section of page instance not found, skipping", "page", page.Slug, "instance", ps.ID, "section", ps.SectionID)
				continue
			}
			return nil, fmt.Errorf("failed to load section %s for page %s: %w", ps.SectionID, page.Slug, err)
		}
		if !sec.IsActive {
			e.logger.Debug("Skipping inactive section", "page", page.Slug, "section", sec.Slug)
			continue
		}

		out.Sections = append(out.Sections, RenderedSection{
			InstanceID:  ps.ID,
			SectionID:   sec.ID,
			SectionSlug: sec.Slug,
			HTML:        template.HTML(e.RenderSection(&sec, ps.Content)),
		})
	}
	return out, nil
}

// RenderSection expands sec's template with a stored content blob.
func (e *Engine) RenderSection(sec *model.Section, content json.RawMessage) string {
	bag, items, err := entry.Decode(content, sec.Fields, sec.RepeatableFields())
	if err != nil {
		var perr *schema.ParseError
		if errors.As(err, &perr) {
			e.logger.Warn("Malformed section content, rendering empty values", "section", sec.Slug, "error", err)
		} else {
			e.logger.Error("Failed to decode section content", "section", sec.Slug, "error", err)
		}
	}
	return e.Preview(sec.HTMLTemplate, bag, items)
}

// Preview expands a template with in-memory values, as the admin preview does
// while a form is being edited.
func (e *Engine) Preview(tpl string, bag entry.ValueBag, items entry.Items) string {
	return expand(tpl, bag, items, e.filter)
}
