package form

import (
	"mime/multipart"
	"net/textproto"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"campus-cms/internal/entry"
	"campus-cms/internal/schema"
)

func TestBind(t *testing.T) {
	f := &Form{
		Fields: schema.Schema{
			{Name: "title", Type: schema.TypeText, Label: "Title"},
			{Name: "count", Type: schema.TypeNumber, Label: "Count"},
			{Name: "featured", Type: schema.TypeCheckbox, Label: "Featured"},
			{Name: "hero", Type: schema.TypeImage, Label: "Hero"},
		},
		ItemFields: schema.Schema{
			{Name: "desc", Type: schema.TypeText, Label: "Description"},
			{Name: "done", Type: schema.TypeCheckbox, Label: "Done"},
		},
		Values: entry.ValueBag{"title": "Old", "count": 1.0, "featured": true, "hero": "/uploads/old.png"},
		Items:  entry.Items{{"desc": "keep", "done": false}},
		Scope:  NewScope("/preview"),
	}
	defer f.Scope.Close()

	values := url.Values{
		"count":         {"7"},
		"items.0.desc":  {"first"},
		"items.1.desc":  {"second"},
		"items.1.done":  {"on"},
		"unknown_field": {"ignored"},
	}
	logo := &multipart.FileHeader{Filename: "logo.png", Header: textproto.MIMEHeader{"Content-Type": {"image/png"}}}
	files := map[string][]*multipart.FileHeader{"hero": {logo}}

	attached, err := f.Bind(values, files)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	wantValues := entry.ValueBag{"title": "Old", "count": 7.0, "featured": false, "hero": "logo.png"}
	if diff := cmp.Diff(wantValues, f.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	wantItems := entry.Items{{"desc": "first", "done": false}, {"desc": "second", "done": true}}
	if diff := cmp.Diff(wantItems, f.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	if len(attached) != 1 || attached[0].Key != "hero" {
		t.Fatalf("attached = %v, want the hero input", attached)
	}
	if f.Scope.Live() != 1 {
		t.Errorf("live previews = %d, want 1", f.Scope.Live())
	}

	attached[0].Change("/uploads/logo.png")
	if f.Values["hero"] != "/uploads/logo.png" {
		t.Errorf("hero after Change = %v", f.Values["hero"])
	}
}

func TestBind_ItemCount(t *testing.T) {
	f := &Form{
		ItemFields: schema.Schema{{Name: "desc", Type: schema.TypeText, Label: "Description"}},
		Values:     entry.ValueBag{},
		Items:      entry.Items{{"desc": "a"}, {"desc": "b"}, {"desc": "c"}},
	}
	if _, err := f.Bind(url.Values{ItemCountKey: {"1"}}, nil); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if diff := cmp.Diff(entry.Items{{"desc": "a"}}, f.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	if _, err := f.Bind(url.Values{}, nil); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if len(f.Items) != 1 {
		t.Errorf("items without count or keys = %d, want 1 kept", len(f.Items))
	}
}

func TestBind_FileWithoutScope(t *testing.T) {
	f := &Form{
		Fields: schema.Schema{{Name: "doc", Type: schema.TypeFile, Label: "Doc"}},
		Values: entry.ValueBag{"doc": ""},
	}
	files := map[string][]*multipart.FileHeader{"doc": {{Filename: "a.pdf"}}}
	if _, err := f.Bind(url.Values{}, files); err == nil {
		t.Error("Bind() without a scope accepted a file")
	}
}
