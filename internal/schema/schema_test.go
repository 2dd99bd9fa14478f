package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func titleField() Field {
	return Field{Name: "title", Type: TypeText, Label: "Title", Required: true}
}

func TestValidName(t *testing.T) {
	valid := []string{"a", "title", "hero_image", "item2", "a_b_c_1"}
	for _, name := range valid {
		if !ValidName(name) {
			t.Errorf("ValidName(%q) = false, want true", name)
		}
	}

	invalid := []string{"", "Title", "hero image", "1title", "_title", "title-2", "héro", " title"}
	for _, name := range invalid {
		if ValidName(name) {
			t.Errorf("ValidName(%q) = true, want false", name)
		}
	}
}

func TestAdd_ValidationOrder(t *testing.T) {
	existing := Schema{titleField()}

	tests := []struct {
		name      string
		field     Field
		wantField string
	}{
		{"missing label wins over everything", Field{Name: "Title", Type: TypeSelect}, "label"},
		{"blank label", Field{Name: "body", Label: "   "}, "label"},
		{"missing name", Field{Label: "Body"}, "name"},
		{"duplicate checked before format", Field{Name: "title", Label: "Again"}, "name"},
		{"bad format", Field{Name: "Body Text", Label: "Body"}, "name"},
		{"leading digit", Field{Name: "1body", Label: "Body"}, "name"},
		{"select without options", Field{Name: "kind", Label: "Kind", Type: TypeSelect}, "options"},
		{"radio with blank options", Field{Name: "kind", Label: "Kind", Type: TypeRadio, Options: []Option{{Value: " "}}}, "options"},
		{"unknown type", Field{Name: "kind", Label: "Kind", Type: "slider"}, "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := existing.Add(tt.field)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Add() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("ValidationError.Field = %q, want %q (%s)", verr.Field, tt.wantField, verr.Message)
			}
			if diff := cmp.Diff(existing, got); diff != "" {
				t.Errorf("schema changed on failed add (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAdd_DuplicateLeavesSchemaUnchanged(t *testing.T) {
	s := Schema{titleField(), {Name: "body", Type: TypeTextarea, Label: "Body"}}
	before := s.clone()

	_, err := s.Add(Field{Name: "body", Type: TypeText, Label: "Another body"})
	if err == nil {
		t.Fatal("Add() with duplicate name succeeded")
	}
	if diff := cmp.Diff(before, s); diff != "" {
		t.Errorf("receiver mutated (-want +got):\n%s", diff)
	}
}

func TestAdd_DefaultsTypeAndAppends(t *testing.T) {
	s, err := Schema{}.Add(Field{Name: "title", Label: "Title"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	s, err = s.Add(Field{Name: "kind", Label: "Kind", Type: "SELECT", Options: []Option{{Value: "a"}, {Value: ""}, {Value: "b", Label: "Bee"}}})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	want := Schema{
		{Name: "title", Type: TypeText, Label: "Title"},
		{Name: "kind", Type: TypeSelect, Label: "Kind", Options: []Option{{Value: "a"}, {Value: "b", Label: "Bee"}}},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_SourceModuleSelectNeedsNoOptions(t *testing.T) {
	s, err := Schema{}.Add(Field{Name: "department", Label: "Department", Type: TypeSelect, SourceModule: "departments"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if f, _ := s.Lookup("department"); f.SourceModule != "departments" || f.Options != nil {
		t.Errorf("Add() stored %+v", f)
	}
}

func TestRemoveAndMove(t *testing.T) {
	s := Schema{
		{Name: "a", Type: TypeText, Label: "A"},
		{Name: "b", Type: TypeText, Label: "B"},
		{Name: "c", Type: TypeText, Label: "C"},
	}

	if got := s.Remove("b").Names(); !cmp.Equal(got, []string{"a", "c"}) {
		t.Errorf("Remove(b) = %v", got)
	}
	if got := s.Remove("zzz").Names(); !cmp.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Remove(unknown) = %v", got)
	}
	if got := s.Move("c", Up).Names(); !cmp.Equal(got, []string{"a", "c", "b"}) {
		t.Errorf("Move(c, Up) = %v", got)
	}
	if got := s.Move("a", Down).Names(); !cmp.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("Move(a, Down) = %v", got)
	}
	if got := s.Move("a", Up).Names(); !cmp.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Move(a, Up) at top = %v", got)
	}
	if got := s.Move("c", Down).Names(); !cmp.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Move(c, Down) at bottom = %v", got)
	}
	if got := s.Names(); !cmp.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("receiver mutated: %v", got)
	}
}

func TestEdit(t *testing.T) {
	s := Schema{
		titleField(),
		{Name: "body", Type: TypeTextarea, Label: "Body"},
		{Name: "cta", Type: TypeURL, Label: "CTA"},
	}

	t.Run("rename keeps position", func(t *testing.T) {
		got, err := s.Edit("body", Field{Name: "summary", Type: TypeTextarea, Label: "Summary"})
		if err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		if diff := cmp.Diff([]string{"title", "summary", "cta"}, got.Names()); diff != "" {
			t.Errorf("names (-want +got):\n%s", diff)
		}
	})

	t.Run("keeping the same name is allowed", func(t *testing.T) {
		got, err := s.Edit("body", Field{Name: "body", Type: TypeCode, Label: "Body HTML"})
		if err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		f, _ := got.Lookup("body")
		if f.Type != TypeCode || f.Label != "Body HTML" {
			t.Errorf("edited field = %+v", f)
		}
	})

	t.Run("colliding rename fails like a duplicate add", func(t *testing.T) {
		_, addErr := s.Add(Field{Name: "cta", Type: TypeText, Label: "X"})
		got, editErr := s.Edit("body", Field{Name: "cta", Type: TypeText, Label: "X"})
		if editErr == nil {
			t.Fatal("Edit() onto existing name succeeded")
		}
		if diff := cmp.Diff(addErr, editErr); diff != "" {
			t.Errorf("edit error differs from add error (-add +edit):\n%s", diff)
		}
		if diff := cmp.Diff(s, got); diff != "" {
			t.Errorf("schema changed (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		if _, err := s.Edit("nope", titleField()); err == nil {
			t.Fatal("Edit() of unknown field succeeded")
		}
	})
}

func TestValidate(t *testing.T) {
	good := Schema{titleField(), {Name: "kind", Type: TypeRadio, Label: "Kind", Options: []Option{{Value: "x"}}}}
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	dup := Schema{titleField(), titleField()}
	if err := dup.Validate(); err == nil {
		t.Error("Validate() accepted duplicate names")
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection(" UP "); err != nil || d != Up {
		t.Errorf("ParseDirection(UP) = %v, %v", d, err)
	}
	if d, err := ParseDirection("down"); err != nil || d != Down {
		t.Errorf("ParseDirection(down) = %v, %v", d, err)
	}
	if _, err := ParseDirection("left"); err == nil {
		t.Error("ParseDirection(left) succeeded")
	}
}
