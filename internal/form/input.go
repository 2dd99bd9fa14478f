// Package form maps field descriptors to input affordances: the control kind,
// its current value and choices, a change hook that coerces raw input, and the
// HTML used by the admin pages.
package form

import (
	"fmt"
	"html/template"
	"mime/multipart"
	"regexp"
	"strings"

	"campus-cms/internal/entry"
	"campus-cms/internal/model"
	"campus-cms/internal/schema"
)

// Control is the kind of affordance an Input is drawn with.
type Control string

const (
	ControlInput    Control = "input"
	ControlTextarea Control = "textarea"
	ControlSelect   Control = "select"
	ControlCheckbox Control = "checkbox"
	ControlRadio    Control = "radio"
	ControlFile     Control = "file"
	ControlColor    Control = "color"
)

// TextareaRows is the default height of multi-line controls.
const TextareaRows = 3

// SelectPlaceholder labels the empty choice of a dropdown.
const SelectPlaceholder = "Select"

// ChangeFunc receives a field's coerced value after every change.
type ChangeFunc func(name string, value any)

// Choice is one option of a select or radio control.
type Choice struct {
	Value    string
	Label    string
	Selected bool
}

// Input is a rendered affordance for one field instance.
type Input struct {
	Field   schema.Field
	Control Control
	// Key is the instance path of the field ("title", "items.2.desc"). It names
	// the form control and, for radios, the exclusive group.
	Key string
	// InputType is the HTML input type of single-line and file controls.
	InputType   string
	Value       any
	Placeholder string
	Rows        int
	Choices     []Choice
	Checked     bool
	// Hex mirrors Value for color controls.
	Hex      string
	Accept   string
	Preview  string
	onChange ChangeFunc
	scope    *Scope
}

// Option customises a single Render call.
type Option func(*renderOptions)

type renderOptions struct {
	path    string
	lookups []model.LookupOption
	scope   *Scope
}

// WithPath sets the instance path prefix, e.g. "items.0" for the first item.
func WithPath(path string) Option {
	return func(o *renderOptions) { o.path = path }
}

// WithLookups supplies the choices of a field bound to another module.
func WithLookups(lookups []model.LookupOption) Option {
	return func(o *renderOptions) { o.lookups = lookups }
}

// WithScope attaches the scope that owns file handles and previews.
func WithScope(s *Scope) Option {
	return func(o *renderOptions) { o.scope = s }
}

type renderFunc func(in *Input, o *renderOptions)

// renderers is the dispatch table from field type to affordance.
var renderers = map[schema.FieldType]renderFunc{
	schema.TypeText:     singleLine("text"),
	schema.TypeCode:     renderCode,
	schema.TypeNumber:   singleLine("number"),
	schema.TypeEmail:    singleLine("email"),
	schema.TypeURL:      singleLine("url"),
	schema.TypeDate:     singleLine("date"),
	schema.TypeTextarea: renderTextarea,
	schema.TypeSelect:   renderSelect,
	schema.TypeCheckbox: renderCheckbox,
	schema.TypeRadio:    renderRadio,
	schema.TypeFile:     renderFile("*/*"),
	schema.TypeImage:    renderFile("image/*"),
	schema.TypeColor:    renderColor,
}

// Render builds the affordance for f with its current value. onChange may be
// nil. Fields bound to a source module render as a select over the supplied
// lookups whatever their declared type.
func Render(f schema.Field, current any, onChange ChangeFunc, opts ...Option) *Input {
	o := &renderOptions{}
	for _, opt := range opts {
		opt(o)
	}

	in := &Input{
		Field:       f,
		Key:         joinKey(o.path, f.Name),
		Value:       current,
		Placeholder: f.Placeholder,
		onChange:    onChange,
		scope:       o.scope,
	}
	if f.SourceModule != "" {
		renderLookup(in, o)
		return in
	}
	render, ok := renderers[f.Type]
	if !ok {
		render = singleLine("text")
	}
	render(in, o)
	return in
}

func joinKey(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func singleLine(inputType string) renderFunc {
	return func(in *Input, _ *renderOptions) {
		in.Control = ControlInput
		in.InputType = inputType
	}
}

func renderCode(in *Input, o *renderOptions) {
	renderTextarea(in, o)
	in.Rows = 8
}

func renderTextarea(in *Input, _ *renderOptions) {
	in.Control = ControlTextarea
	in.Rows = TextareaRows
}

func renderSelect(in *Input, _ *renderOptions) {
	in.Control = ControlSelect
	in.Choices = choices(in.Field.Options, in.Text())
}

func renderCheckbox(in *Input, _ *renderOptions) {
	in.Control = ControlCheckbox
	in.Checked = entry.Truthy(in.Value)
	in.Value = in.Checked
}

func renderRadio(in *Input, _ *renderOptions) {
	in.Control = ControlRadio
	in.Choices = choices(in.Field.Options, in.Text())
}

func renderFile(accept string) renderFunc {
	return func(in *Input, o *renderOptions) {
		in.Control = ControlFile
		in.InputType = "file"
		in.Accept = accept
		if o.scope != nil {
			in.Preview = o.scope.PreviewURL(in.Key)
		}
	}
}

func renderColor(in *Input, _ *renderOptions) {
	in.Control = ControlColor
	in.Hex = in.Text()
}

func renderLookup(in *Input, o *renderOptions) {
	in.Control = ControlSelect
	current := in.Text()
	in.Choices = make([]Choice, 0, len(o.lookups))
	for _, l := range o.lookups {
		in.Choices = append(in.Choices, Choice{Value: l.ID, Label: l.Label, Selected: l.ID == current})
	}
}

func choices(opts []schema.Option, current string) []Choice {
	out := make([]Choice, 0, len(opts))
	for _, opt := range opts {
		out = append(out, Choice{Value: opt.Value, Label: opt.Text(), Selected: opt.Value == current})
	}
	return out
}

// Text is the current value as shown in a text control.
func (in *Input) Text() string {
	return entry.String(in.Value)
}

// Change coerces raw input to the field's value type, updates the affordance
// and reports the new value through the change hook.
func (in *Input) Change(raw any) any {
	var v any
	if in.Field.SourceModule == "" {
		v = entry.Coerce(in.Field, raw)
	} else {
		v = entry.String(raw)
	}
	in.Value = v

	switch in.Control {
	case ControlCheckbox:
		in.Checked = entry.Truthy(v)
	case ControlColor:
		in.Hex = in.Text()
	case ControlSelect, ControlRadio:
		current := in.Text()
		for i := range in.Choices {
			in.Choices[i].Selected = in.Choices[i].Value == current
		}
	}

	if in.onChange != nil {
		in.onChange(in.Field.Name, v)
	}
	return v
}

// Attach picks a file for an upload control. The handle is kept by the scope;
// only the file's display name reaches the change hook. Image files get a
// preview, and any preview held by this input is released first.
func (in *Input) Attach(fh *multipart.FileHeader) error {
	if in.Control != ControlFile {
		return fmt.Errorf("field %s of type %s does not accept files", in.Field.Name, in.Field.Type)
	}
	if in.scope == nil {
		return fmt.Errorf("field %s has no file scope", in.Field.Name)
	}
	if fh == nil {
		return fmt.Errorf("field %s: no file selected", in.Field.Name)
	}
	preview, err := in.scope.attach(in.Key, fh)
	if err != nil {
		return err
	}
	in.Preview = preview
	in.Value = fh.Filename
	if in.onChange != nil {
		in.onChange(in.Field.Name, fh.Filename)
	}
	return nil
}

var nonIDChar = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ID is the DOM id of the control derived from its key.
func (in *Input) ID() string {
	return "f-" + strings.Trim(nonIDChar.ReplaceAllString(in.Key, "-"), "-")
}

// HTML renders the labelled control.
func (in *Input) HTML() (template.HTML, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, "field", in); err != nil {
		return "", fmt.Errorf("render field %s: %w", in.Key, err)
	}
	return template.HTML(b.String()), nil
}
