// Package editor drives the add/edit workflow for the fields of a schema.
//
// An Editor moves between three states: Idle, Editing (a draft field is being
// filled in) and Validating (the draft is checked against the schema). A
// successful submit commits the draft and returns to Idle; a failed one returns
// to Editing with the validation error kept for display. While an existing
// field is edited it stays in the schema, so cancelling an edit never loses it.
package editor

import (
	"errors"
	"fmt"

	"campus-cms/internal/schema"
)

// State is the workflow state of an Editor.
type State int

const (
	Idle State = iota
	Editing
	Validating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Validating:
		return "validating"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrBusy is returned when a draft is started while another is open.
	ErrBusy = errors.New("a field is already being edited")
	// ErrNotEditing is returned when no draft is open.
	ErrNotEditing = errors.New("no field is being edited")
)

// CommitFunc persists a schema after a successful change. A commit error
// leaves the editor's schema unchanged.
type CommitFunc func(schema.Schema) error

// Editor holds one schema and at most one open draft.
type Editor struct {
	schema   schema.Schema
	state    State
	draft    schema.Field
	original string // name of the field being edited, "" when adding
	lastErr  *schema.ValidationError
	commit   CommitFunc
}

// New returns an idle editor over s. commit may be nil.
func New(s schema.Schema, commit CommitFunc) *Editor {
	if s == nil {
		s = schema.Schema{}
	}
	return &Editor{schema: s, commit: commit}
}

func (e *Editor) Schema() schema.Schema { return e.schema }
func (e *Editor) State() State          { return e.state }
func (e *Editor) Draft() schema.Field   { return e.draft }

// Editing returns the name of the field under edit, or "" for a new field.
func (e *Editor) Editing() string { return e.original }

// Err returns the validation error of the last failed submit.
func (e *Editor) Err() *schema.ValidationError { return e.lastErr }

// BeginAdd opens an empty text field draft.
func (e *Editor) BeginAdd() error {
	if e.state != Idle {
		return ErrBusy
	}
	e.open("", schema.Field{Type: schema.TypeText})
	return nil
}

// BeginEdit opens a draft holding a copy of the named field.
func (e *Editor) BeginEdit(name string) error {
	if e.state != Idle {
		return ErrBusy
	}
	f, ok := e.schema.Lookup(name)
	if !ok {
		return &schema.ValidationError{Field: "name", Message: fmt.Sprintf("field %q does not exist", name)}
	}
	if f.Options != nil {
		f.Options = append([]schema.Option(nil), f.Options...)
	}
	e.open(name, f)
	return nil
}

func (e *Editor) open(original string, draft schema.Field) {
	e.state = Editing
	e.original = original
	e.draft = draft
	e.lastErr = nil
}

// UpdateDraft applies fn to the open draft.
func (e *Editor) UpdateDraft(fn func(*schema.Field)) error {
	if e.state != Editing {
		return ErrNotEditing
	}
	fn(&e.draft)
	return nil
}

// Submit validates the draft. On success the schema is committed and the
// editor returns to Idle. A *schema.ValidationError keeps the editor in
// Editing with the draft intact.
func (e *Editor) Submit() error {
	if e.state != Editing {
		return ErrNotEditing
	}
	e.state = Validating

	var (
		next schema.Schema
		err  error
	)
	if e.original == "" {
		next, err = e.schema.Add(e.draft)
	} else {
		next, err = e.schema.Edit(e.original, e.draft)
	}
	if err != nil {
		e.state = Editing
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			e.lastErr = verr
		}
		return err
	}

	if err := e.apply(next); err != nil {
		e.state = Editing
		return err
	}
	e.state = Idle
	e.original = ""
	e.draft = schema.Field{}
	e.lastErr = nil
	return nil
}

// Cancel discards the open draft. The schema is left as it was.
func (e *Editor) Cancel() {
	e.state = Idle
	e.original = ""
	e.draft = schema.Field{}
	e.lastErr = nil
}

// Remove deletes a field. Only allowed while idle.
func (e *Editor) Remove(name string) error {
	if e.state != Idle {
		return ErrBusy
	}
	return e.apply(e.schema.Remove(name))
}

// Move shifts a field one position. Only allowed while idle.
func (e *Editor) Move(name string, dir schema.Direction) error {
	if e.state != Idle {
		return ErrBusy
	}
	return e.apply(e.schema.Move(name, dir))
}

func (e *Editor) apply(next schema.Schema) error {
	if e.commit != nil {
		if err := e.commit(next); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
	}
	e.schema = next
	return nil
}
