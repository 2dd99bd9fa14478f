package form

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"campus-cms/internal/entry"
	"campus-cms/internal/model"
	"campus-cms/internal/schema"
)

// Form binds a schema, its value bag and repeatable items to rendered inputs.
// Changes made through the inputs replace the bag and items with updated
// copies.
type Form struct {
	Fields     schema.Schema
	ItemFields schema.Schema
	Values     entry.ValueBag
	Items      entry.Items

	// Lookups holds {id, label} choices per source module slug.
	Lookups map[string][]model.LookupOption
	Scope   *Scope
}

// Inputs renders the top-level fields in schema order.
func (f *Form) Inputs() []*Input {
	out := make([]*Input, 0, len(f.Fields))
	for _, field := range f.Fields {
		out = append(out, Render(field, f.Values[field.Name], f.setValue, f.options("", field)...))
	}
	return out
}

// ItemInputs renders the fields of item i under the path "items.<i>".
func (f *Form) ItemInputs(i int) []*Input {
	if i < 0 || i >= len(f.Items) {
		return nil
	}
	path := "items." + strconv.Itoa(i)
	onChange := func(name string, value any) {
		f.Items = f.Items.Update(i, name, value)
	}
	out := make([]*Input, 0, len(f.ItemFields))
	for _, field := range f.ItemFields {
		out = append(out, Render(field, f.Items[i][field.Name], onChange, f.options(path, field)...))
	}
	return out
}

func (f *Form) setValue(name string, value any) {
	f.Values = entry.Set(f.Values, name, value)
}

func (f *Form) options(path string, field schema.Field) []Option {
	opts := []Option{WithPath(path)}
	if f.Scope != nil {
		opts = append(opts, WithScope(f.Scope))
	}
	if field.SourceModule != "" {
		opts = append(opts, WithLookups(f.Lookups[field.SourceModule]))
	}
	return opts
}

// HTML renders every input, then one fieldset per item.
func (f *Form) HTML() (template.HTML, error) {
	var b strings.Builder
	for _, in := range f.Inputs() {
		h, err := in.HTML()
		if err != nil {
			return "", err
		}
		b.WriteString(string(h))
		b.WriteString("\n")
	}
	for i := range f.Items {
		fmt.Fprintf(&b, "<fieldset class=\"item\" data-index=\"%d\">\n", i)
		for _, in := range f.ItemInputs(i) {
			h, err := in.HTML()
			if err != nil {
				return "", err
			}
			b.WriteString(string(h))
			b.WriteString("\n")
		}
		b.WriteString("</fieldset>\n")
	}
	return template.HTML(b.String()), nil
}
