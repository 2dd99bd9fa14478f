package cms

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-cms/internal/entry"
	"campus-cms/internal/model"
	"campus-cms/internal/schema"
	"campus-cms/internal/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewJSONStore(filepath.Join(dir, "data"), nil)
	require.NoError(t, err)

	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return NewManager(store, nil, WithUploads(filepath.Join(dir, "uploads"), "/uploads", 1<<20), WithClock(clock))
}

var heroInput = SectionInput{
	Name: "Hero Banner",
	Fields: schema.Schema{
		{Name: "title", Type: schema.TypeText, Label: "Title", Required: true},
		{Name: "subtitle", Type: schema.TypeText, Label: "Subtitle", Default: "Welcome"},
	},
	HTMLTemplate: "<h1>{title}</h1><p>{subtitle}</p>",
}

var listInput = SectionInput{
	Name:           "Link List",
	Fields:         schema.Schema{{Name: "heading", Type: schema.TypeText, Label: "Heading"}},
	MappingEnabled: true,
	ItemFields:     schema.Schema{{Name: "desc", Type: schema.TypeText, Label: "Description"}},
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verrs schema.ValidationErrors
	require.True(t, errors.As(err, &verrs), "error %v is not ValidationErrors", err)
	var fields []string
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestSections(t *testing.T) {
	m := newTestManager(t)

	hero, err := m.CreateSection(heroInput)
	require.NoError(t, err)
	assert.Equal(t, "hero-banner", hero.Slug)
	assert.True(t, hero.IsActive)

	list, err := m.CreateSection(listInput)
	require.NoError(t, err)
	assert.Contains(t, list.HTMLTemplate, "{item.desc}", "default template generated from the item schema")

	again, err := m.CreateSection(heroInput)
	require.NoError(t, err)
	assert.Equal(t, "hero-banner-2", again.Slug)

	dup := heroInput
	dup.Slug = "hero-banner"
	_, err = m.CreateSection(dup)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = m.CreateSection(SectionInput{Fields: schema.Schema{{Name: "Bad Name", Label: "x"}}})
	assert.Equal(t, []string{"name", "fields_config"}, validationFields(t, err))

	bySlug, err := m.GetSectionBySlug("link-list")
	require.NoError(t, err)
	assert.Equal(t, list.ID, bySlug.ID)

	all, err := m.ListSections()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Hero Banner", all[0].Name)

	_, err = m.GetSection("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFieldOperationsPersist(t *testing.T) {
	m := newTestManager(t)
	sec, err := m.CreateSection(listInput)
	require.NoError(t, err)

	_, err = m.AddField(SectionFields(sec.ID), schema.Field{Name: "intro", Label: "Intro", Type: schema.TypeTextarea})
	require.NoError(t, err)
	_, err = m.AddField(SectionItems(sec.ID), schema.Field{Name: "link", Label: "Link", Type: schema.TypeURL})
	require.NoError(t, err)

	_, err = m.AddField(SectionFields(sec.ID), schema.Field{Name: "intro", Label: "Again"})
	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)

	_, err = m.MoveField(SectionFields(sec.ID), "intro", schema.Up)
	require.NoError(t, err)
	_, err = m.EditField(SectionItems(sec.ID), "desc", schema.Field{Name: "summary", Label: "Summary"})
	require.NoError(t, err)

	stored, err := m.GetSection(sec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro", "heading"}, stored.Fields.Names())
	assert.Equal(t, []string{"summary", "link"}, stored.ItemFields.Names())

	_, err = m.RemoveField(SectionFields(sec.ID), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.EditField(SectionFields(sec.ID), "nope", schema.Field{Name: "nope", Label: "Nope"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.MoveField(SectionFields(sec.ID), "nope", schema.Down)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.RemoveField(SectionFields(sec.ID), "intro")
	require.NoError(t, err)

	s, err := m.Schema(SectionFields(sec.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"heading"}, s.Names())

	require.NoError(t, m.ReplaceSchema(SectionItems(sec.ID), schema.Schema{{Name: "only", Label: "Only", Type: schema.TypeText}}))
	s, err = m.Schema(SectionItems(sec.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, s.Names())

	_, err = m.Schema(SchemaRef{Kind: storage.KindModule, ID: "x", Target: TargetItems})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestPageSections(t *testing.T) {
	m := newTestManager(t)
	hero, err := m.CreateSection(heroInput)
	require.NoError(t, err)
	list, err := m.CreateSection(listInput)
	require.NoError(t, err)

	page, err := m.CreatePage(PageInput{Title: "Home"})
	require.NoError(t, err)
	assert.Equal(t, HomeSlug, page.Slug)

	first, err := m.AttachSection(page.ID, hero.ID)
	require.NoError(t, err)
	second, err := m.AttachSection(page.ID, list.ID)
	require.NoError(t, err)

	content, err := m.SectionContent(page.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", content.Values["subtitle"], "defaults applied on attach")

	require.NoError(t, m.MoveSection(page.ID, second.ID, schema.Up))
	p, err := m.GetPage(page.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, p.Sections[0].ID)
	assert.Equal(t, 0, p.Sections[0].Order)
	assert.Equal(t, 1, p.Sections[1].Order)

	_, err = m.SaveSectionContent(page.ID, first.ID, entry.ValueBag{"title": ""}, nil)
	assert.Equal(t, []string{"title"}, validationFields(t, err))

	items := entry.Items{{"desc": "a"}, {"desc": "b"}}
	saved, err := m.SaveSectionContent(page.ID, second.ID, entry.ValueBag{"heading": "Links", "extra": "dropped"}, items)
	require.NoError(t, err)
	assert.JSONEq(t, `{"values":{"heading":"Links"},"items":{"desc":["a","b"]}}`, string(saved.Content))

	require.NoError(t, m.SetSectionActive(page.ID, first.ID, false))
	require.NoError(t, m.DetachSection(page.ID, second.ID))
	p, err = m.GetPage(page.ID)
	require.NoError(t, err)
	require.Len(t, p.Sections, 1)
	assert.False(t, p.Sections[0].IsActive)
	assert.Equal(t, 0, p.Sections[0].Order)

	assert.ErrorIs(t, m.DetachSection(page.ID, "missing"), ErrNotFound)
}

func TestSectionContent_LegacyAndMalformed(t *testing.T) {
	m := newTestManager(t)
	list, err := m.CreateSection(listInput)
	require.NoError(t, err)
	page, err := m.CreatePage(PageInput{Title: "About"})
	require.NoError(t, err)
	inst, err := m.AttachSection(page.ID, list.ID)
	require.NoError(t, err)

	// Write legacy content straight to the store.
	p, err := m.GetPage(page.ID)
	require.NoError(t, err)
	p.Sections[0].Content = json.RawMessage(`{"heading":"Old","mapping_items":[{"desc":"a"},{"desc":"b"}]}`)
	require.NoError(t, m.GetStore().Save(storage.KindPage, p.ID, p))

	content, err := m.SectionContent(page.ID, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old", content.Values["heading"])
	assert.Equal(t, entry.Items{{"desc": "a"}, {"desc": "b"}}, content.Items)

	p.Sections[0].Content = json.RawMessage(`{"values":`)
	require.NoError(t, m.GetStore().Save(storage.KindPage, p.ID, p))
	content, err = m.SectionContent(page.ID, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ValueBag{"heading": ""}, content.Values)
	assert.Empty(t, content.Items)
}

func TestContentInput_DecodeItems(t *testing.T) {
	itemSchema := schema.Schema{{Name: "desc", Type: schema.TypeText, Label: "Description"}}

	list := ContentInput{Items: json.RawMessage(`[{"desc":"a"},{"desc":"b","x":1}]`)}
	items, err := list.DecodeItems(itemSchema)
	require.NoError(t, err)
	assert.Equal(t, entry.Items{{"desc": "a"}, {"desc": "b"}}, items)

	arrays := ContentInput{Items: json.RawMessage(`{"desc":["a","b"]}`)}
	items, err = arrays.DecodeItems(itemSchema)
	require.NoError(t, err)
	assert.Equal(t, entry.Items{{"desc": "a"}, {"desc": "b"}}, items)

	_, err = ContentInput{Items: json.RawMessage(`"nope"`)}.DecodeItems(itemSchema)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDeleteSectionDetachesInstances(t *testing.T) {
	m := newTestManager(t)
	hero, err := m.CreateSection(heroInput)
	require.NoError(t, err)
	page, err := m.CreatePage(PageInput{Title: "Home"})
	require.NoError(t, err)
	_, err = m.AttachSection(page.ID, hero.ID)
	require.NoError(t, err)

	require.NoError(t, m.DeleteSection(hero.ID))
	p, err := m.GetPage(page.ID)
	require.NoError(t, err)
	assert.Empty(t, p.Sections)
	assert.ErrorIs(t, m.DeleteSection(hero.ID), ErrNotFound)
}

func TestModulesEntriesAndLookups(t *testing.T) {
	m := newTestManager(t)

	depts, err := m.CreateModule(ModuleInput{
		Name:   "Departments",
		Fields: schema.Schema{{Name: "name", Type: schema.TypeText, Label: "Name", Required: true}},
	})
	require.NoError(t, err)
	staff, err := m.CreateModule(ModuleInput{
		Name: "Staff",
		Fields: schema.Schema{
			{Name: "name", Type: schema.TypeText, Label: "Name", Required: true},
			{Name: "email", Type: schema.TypeEmail, Label: "Email"},
			{Name: "dept", Type: schema.TypeSelect, Label: "Department", SourceModule: "departments"},
			{Name: "visible", Type: schema.TypeCheckbox, Label: "Visible", Default: "1"},
		},
	})
	require.NoError(t, err)

	physics, err := m.CreateEntry(depts.ID, map[string]any{"name": "Physics"})
	require.NoError(t, err)
	history, err := m.CreateEntry(depts.ID, map[string]any{"name": "History"})
	require.NoError(t, err)
	assert.Equal(t, 1, history.Order)

	_, err = m.CreateEntry(staff.ID, map[string]any{"email": "not-an-email"})
	assert.Equal(t, []string{"name", "email"}, validationFields(t, err))

	ada, err := m.CreateEntry(staff.ID, map[string]any{"name": "Ada", "dept": physics.ID})
	require.NoError(t, err)
	assert.Equal(t, true, ada.Values["visible"], "declared default applied")

	require.NoError(t, m.MoveEntry(depts.ID, history.ID, schema.Up))
	entries, err := m.ListEntries(depts.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{history.ID, physics.ID}, []string{entries[0].ID, entries[1].ID})

	inactive := false
	_, err = m.UpdateEntry(depts.ID, history.ID, map[string]any{"name": "History"}, &inactive)
	require.NoError(t, err)

	lookups, err := m.LookupsFor(staff.Fields)
	require.NoError(t, err)
	assert.Equal(t, []model.LookupOption{{ID: physics.ID, Label: "Physics"}}, lookups["departments"])

	_, err = m.GetEntry(staff.ID, physics.ID)
	assert.ErrorIs(t, err, ErrNotFound, "entry of another module")

	require.NoError(t, m.DeleteModule(depts.ID))
	_, err = m.GetEntry(depts.ID, physics.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	lookups, err = m.LookupsFor(staff.Fields)
	require.NoError(t, err)
	assert.Empty(t, lookups["departments"])
}

func TestMappings(t *testing.T) {
	m := newTestManager(t)
	fields := schema.Schema{{Name: "name", Type: schema.TypeText, Label: "Name"}}
	programs, err := m.CreateModule(ModuleInput{Name: "Programs", Fields: fields})
	require.NoError(t, err)
	courses, err := m.CreateModule(ModuleInput{Name: "Courses", Fields: fields})
	require.NoError(t, err)

	bsc, err := m.CreateEntry(programs.ID, map[string]any{"name": "BSc"})
	require.NoError(t, err)
	c1, err := m.CreateEntry(courses.ID, map[string]any{"name": "Calculus"})
	require.NoError(t, err)
	c2, err := m.CreateEntry(courses.ID, map[string]any{"name": "Optics"})
	require.NoError(t, err)

	mp, err := m.CreateMapping(MappingInput{Name: "Program courses", SourceModuleID: programs.ID, TargetModuleID: courses.ID})
	require.NoError(t, err)

	_, err = m.Link(mp.ID, bsc.ID, c2.ID)
	require.NoError(t, err)
	_, err = m.Link(mp.ID, bsc.ID, c1.ID)
	require.NoError(t, err)
	mp, err = m.Link(mp.ID, bsc.ID, c1.ID)
	require.NoError(t, err)
	assert.Len(t, mp.Links, 2, "relinking is a no-op")

	_, err = m.Link(mp.ID, c1.ID, bsc.ID)
	assert.ErrorIs(t, err, ErrNotFound, "entries must belong to the mapped modules")

	linked, err := m.LinkedEntries(mp.ID, bsc.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, c1.ID, linked[0].ID, "target module order")

	require.NoError(t, m.DeleteEntry(courses.ID, c1.ID))
	mp, err = m.GetMapping(mp.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Link{{SourceEntryID: bsc.ID, TargetEntryID: c2.ID}}, mp.Links)

	_, err = m.Unlink(mp.ID, bsc.ID, c2.ID)
	require.NoError(t, err)
	_, err = m.Unlink(mp.ID, bsc.ID, c2.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImages(t *testing.T) {
	m := newTestManager(t)

	img, err := m.UploadImage("Campus Map.png", "", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "campus_map.png", img.Filename)
	assert.Equal(t, "/uploads/campus_map.png", img.URL)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, int64(9), img.Size)

	_, err = m.UploadImage("notes.txt", "text/plain", strings.NewReader("x"))
	assert.Equal(t, []string{"file"}, validationFields(t, err))

	second, err := m.UploadImage("campus map.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "campus_map-2.png", second.Filename)

	images, err := m.ListImages()
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, second.ID, images[0].ID, "newest first")

	require.NoError(t, m.DeleteImage(img.ID))
	_, err = os.Stat(filepath.Join(m.UploadsDir(), "campus_map.png"))
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, m.DeleteImage(img.ID), ErrNotFound)
}

func TestBackup(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateSection(heroInput)
	require.NoError(t, err)
	_, err = m.UploadImage("logo.png", "", strings.NewReader("x"))
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "backup")
	require.NoError(t, m.Backup(dst))

	ids, err := os.ReadDir(filepath.Join(dst, "data", "sections"))
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	_, err = os.Stat(filepath.Join(dst, "uploads", "logo.png"))
	assert.NoError(t, err)
}
