package entry

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"campus-cms/internal/schema"
)

var sectionSchema = schema.Schema{
	{Name: "title", Type: schema.TypeText, Label: "Title", Required: true},
	{Name: "count", Type: schema.TypeNumber, Label: "Count"},
	{Name: "featured", Type: schema.TypeCheckbox, Label: "Featured"},
	{Name: "hero", Type: schema.TypeImage, Label: "Hero"},
}

var itemSchema = schema.Schema{
	{Name: "desc", Type: schema.TypeText, Label: "Description"},
	{Name: "done", Type: schema.TypeCheckbox, Label: "Done"},
}

func TestBuildEmpty(t *testing.T) {
	want := ValueBag{"title": "", "count": "", "featured": false, "hero": ""}
	if diff := cmp.Diff(want, BuildEmpty(sectionSchema)); diff != "" {
		t.Errorf("BuildEmpty() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDefaults(t *testing.T) {
	s := schema.Schema{
		{Name: "title", Type: schema.TypeText, Label: "Title", Default: "Welcome"},
		{Name: "count", Type: schema.TypeNumber, Label: "Count", Default: "3"},
		{Name: "on", Type: schema.TypeCheckbox, Label: "On", Default: "1"},
	}
	want := ValueBag{"title": "Welcome", "count": 3.0, "on": true}
	if diff := cmp.Diff(want, BuildDefaults(s)); diff != "" {
		t.Errorf("BuildDefaults() mismatch (-want +got):\n%s", diff)
	}
}

func TestSetIsPure(t *testing.T) {
	bag := BuildEmpty(sectionSchema)
	next := Set(bag, "title", "Hello")
	if bag["title"] != "" {
		t.Errorf("Set() mutated input: %v", bag["title"])
	}
	if next["title"] != "Hello" {
		t.Errorf("Set() result title = %v", next["title"])
	}
}

func TestCoerceAndString(t *testing.T) {
	number := schema.Field{Name: "n", Type: schema.TypeNumber}
	check := schema.Field{Name: "c", Type: schema.TypeCheckbox}

	if got := Coerce(number, "2.50"); got != 2.5 {
		t.Errorf("Coerce(number, 2.50) = %v", got)
	}
	if got := Coerce(number, "abc"); got != "abc" {
		t.Errorf("Coerce(number, abc) = %v", got)
	}
	if got := Coerce(check, "on"); got != true {
		t.Errorf("Coerce(checkbox, on) = %v", got)
	}
	if got := Coerce(check, "off"); got != false {
		t.Errorf("Coerce(checkbox, off) = %v", got)
	}

	cases := map[string]any{
		"":      nil,
		"x":     "x",
		"false": false,
		"true":  true,
		"2.5":   2.5,
		"10":    10.0,
		"a, b":  []any{"a", "b"},
	}
	for want, in := range cases {
		if got := String(in); got != want {
			t.Errorf("String(%#v) = %q, want %q", in, got, want)
		}
	}
}

func TestItemsOperations(t *testing.T) {
	var items Items
	items = items.Add(itemSchema).Add(itemSchema)
	items = items.Update(0, "desc", "first").Update(1, "desc", "second")

	want := Items{
		{"desc": "first", "done": false},
		{"desc": "second", "done": false},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	moved := items.Move(1, schema.Up)
	if moved[0]["desc"] != "second" || items[0]["desc"] != "first" {
		t.Errorf("Move() = %v, original %v", moved, items)
	}
	if got := items.Move(1, schema.Down); !cmp.Equal(got, items) {
		t.Errorf("Move past end changed items: %v", got)
	}

	removed := items.Remove(0)
	if len(removed) != 1 || removed[0]["desc"] != "second" || len(items) != 2 {
		t.Errorf("Remove(0) = %v, original %v", removed, items)
	}
	if got := items.Remove(5); len(got) != 2 {
		t.Errorf("Remove(out of range) = %v", got)
	}
	if got := items.Update(9, "desc", "x"); !cmp.Equal(got, items) {
		t.Errorf("Update(out of range) changed items: %v", got)
	}
}

func TestNormalizeItems_Legacy(t *testing.T) {
	s := schema.Schema{{Name: "desc"}}
	raw := map[string]any{
		LegacyItemsKey: []any{
			map[string]any{"desc": "a"},
			map[string]any{"desc": "b"},
		},
	}

	got := NormalizeItems(raw, s)
	want := FieldArrays{"desc": {"a", "b"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalizeItems() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeItems_Idempotent(t *testing.T) {
	raw := map[string]any{
		LegacyItemsKey: []any{
			map[string]any{"desc": "a", "done": true},
			map[string]any{"desc": "b"},
			"not an object",
		},
	}

	once := NormalizeItems(raw, itemSchema)
	twice := NormalizeItems(once.Map(), itemSchema)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second normalization changed data (-once +twice):\n%s", diff)
	}

	want := FieldArrays{
		"desc": {"a", "b", ""},
		"done": {true, false, false},
	}
	if diff := cmp.Diff(want, once); diff != "" {
		t.Errorf("NormalizeItems() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeItems_PadsShortArrays(t *testing.T) {
	raw := map[string]any{"desc": []any{"a", "b"}, "done": []any{true}}
	want := FieldArrays{"desc": {"a", "b"}, "done": {true, false}}
	if diff := cmp.Diff(want, NormalizeItems(raw, itemSchema)); diff != "" {
		t.Errorf("NormalizeItems() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEncode(t *testing.T) {
	bag := Set(BuildEmpty(sectionSchema), "title", "Hello")
	bag = Set(bag, "count", 4.0)
	items := Items{}.Add(itemSchema).Update(0, "desc", "a")

	raw, err := Encode(bag, items, itemSchema)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	gotBag, gotItems, err := Decode(raw, sectionSchema, itemSchema)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff(bag, gotBag); diff != "" {
		t.Errorf("bag mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(items, gotItems); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_LegacyAndFlatLayouts(t *testing.T) {
	legacy := []byte(`{"title":"Old","featured":"1","mapping_items":[{"desc":"x"},{"desc":"y","done":true}]}`)
	bag, items, err := Decode(legacy, sectionSchema, itemSchema)
	if err != nil {
		t.Fatalf("Decode(legacy) error = %v", err)
	}
	if bag["title"] != "Old" || bag["featured"] != true {
		t.Errorf("legacy bag = %v", bag)
	}
	want := Items{{"desc": "x", "done": false}, {"desc": "y", "done": true}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("legacy items mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Malformed(t *testing.T) {
	bag, items, err := Decode([]byte(`{"values":`), sectionSchema, itemSchema)
	var perr *schema.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Decode() error = %v, want *schema.ParseError", err)
	}
	if diff := cmp.Diff(BuildEmpty(sectionSchema), bag); diff != "" {
		t.Errorf("bag not empty (-want +got):\n%s", diff)
	}
	if len(items) != 0 {
		t.Errorf("items = %v, want none", items)
	}
}

func TestValidate(t *testing.T) {
	s := schema.Schema{
		{Name: "title", Type: schema.TypeText, Label: "Title", Required: true},
		{Name: "email", Type: schema.TypeEmail, Label: "Email"},
		{Name: "site", Type: schema.TypeURL, Label: "Site"},
		{Name: "age", Type: schema.TypeNumber, Label: "Age"},
		{Name: "day", Type: schema.TypeDate, Label: "Day"},
		{Name: "tint", Type: schema.TypeColor, Label: "Tint"},
		{Name: "kind", Type: schema.TypeSelect, Label: "Kind", Options: []schema.Option{{Value: "a"}}},
		{Name: "agree", Type: schema.TypeCheckbox, Label: "Agree", Required: true},
	}

	good := ValueBag{
		"title": "x", "email": "a@b.edu", "site": "https://example.edu", "age": 3.0,
		"day": "2024-09-01", "tint": "#0af", "kind": "a", "agree": true,
	}
	if errs := Validate(s, good); len(errs) != 0 {
		t.Errorf("Validate(good) = %v", errs)
	}

	bad := ValueBag{
		"title": " ", "email": "nope", "site": "example", "age": "x",
		"day": "01/09/2024", "tint": "blue", "kind": "z", "agree": false,
	}
	errs := Validate(s, bad)
	var fields []string
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	want := []string{"title", "email", "site", "age", "day", "tint", "kind", "agree"}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("failing fields mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_TypeRules(t *testing.T) {
	tests := []struct {
		name  string
		field schema.Field
		value any
		ok    bool
	}{
		{"short hex with alpha", schema.Field{Type: schema.TypeColor}, "#abcd", true},
		{"long hex with alpha", schema.Field{Type: schema.TypeColor}, "#0a0b0cff", true},
		{"named color", schema.Field{Type: schema.TypeColor}, "teal", false},
		{"ftp url", schema.Field{Type: schema.TypeURL}, "ftp://files.example.edu/syllabus.pdf", true},
		{"mailto url", schema.Field{Type: schema.TypeURL}, "mailto:registrar@example.edu", true},
		{"site path", schema.Field{Type: schema.TypeURL}, "/admissions/apply?term=fall#deadlines", true},
		{"anchor", schema.Field{Type: schema.TypeURL}, "#contact", true},
		{"path escaping the site", schema.Field{Type: schema.TypeURL}, "/../../etc", false},
		{"protocol relative", schema.Field{Type: schema.TypeURL}, "//cdn", false},
		{"bare word", schema.Field{Type: schema.TypeURL}, "campus", false},
		{"email", schema.Field{Type: schema.TypeEmail}, "dean@example.edu", true},
		{"email with display name", schema.Field{Type: schema.TypeEmail}, "Dean <dean@example.edu>", false},
		{"date", schema.Field{Type: schema.TypeDate}, "2025-02-28", true},
		{"impossible date", schema.Field{Type: schema.TypeDate}, "2025-02-30", false},
		{"option with spaces", roomField(), "Room A101", true},
		{"option with comma", roomField(), "B2, annex", true},
		{"option with pipe", roomField(), "lab|north", true},
		{"partial option", roomField(), "Room", false},
		{"lookup select skips options", schema.Field{Type: schema.TypeSelect, SourceModule: "rooms"}, "any-id", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.field.Name, tt.field.Label = "f", "F"
			err := validateValue(tt.field, tt.value)
			if tt.ok && err != nil {
				t.Errorf("validateValue(%q) = %v, want ok", tt.value, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("validateValue(%q) passed, want an error", tt.value)
			}
		})
	}
}

func roomField() schema.Field {
	return schema.Field{Type: schema.TypeRadio, Options: []schema.Option{
		{Value: "Room A101"}, {Value: "B2, annex"}, {Value: "lab|north"},
	}}
}
