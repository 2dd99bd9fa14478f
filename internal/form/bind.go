package form

import (
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
)

// ItemCountKey is the form key carrying the number of repeatable items.
const ItemCountKey = "items_count"

// Bind applies a submitted HTML form to the bag and items. Text controls take
// the posted value when their key is present, checkboxes are unchecked when
// absent and file controls attach the posted file. File controls without a
// new file keep their stored value. The inputs that received a file are
// returned so the caller can store the files and report their final location
// through Change.
func (f *Form) Bind(values url.Values, files map[string][]*multipart.FileHeader) ([]*Input, error) {
	f.resizeItems(itemCount(values, files, len(f.Items)))

	var attached []*Input
	apply := func(in *Input) error {
		if in.Control == ControlFile {
			if fhs := files[in.Key]; len(fhs) > 0 {
				if err := in.Attach(fhs[0]); err != nil {
					return err
				}
				attached = append(attached, in)
			}
			return nil
		}
		if in.Control == ControlCheckbox {
			in.Change(values.Get(in.Key))
			return nil
		}
		if _, ok := values[in.Key]; ok {
			in.Change(values.Get(in.Key))
		}
		return nil
	}

	for _, in := range f.Inputs() {
		if err := apply(in); err != nil {
			return nil, err
		}
	}
	for i := range f.Items {
		for _, in := range f.ItemInputs(i) {
			if err := apply(in); err != nil {
				return nil, err
			}
		}
	}
	return attached, nil
}

func (f *Form) resizeItems(n int) {
	for len(f.Items) < n {
		f.Items = f.Items.Add(f.ItemFields)
	}
	for len(f.Items) > n {
		f.Items = f.Items.Remove(len(f.Items) - 1)
	}
}

// itemCount reads ItemCountKey, or else counts the item indexes present in
// the submission. With neither, current is kept.
func itemCount(values url.Values, files map[string][]*multipart.FileHeader, current int) int {
	if raw := values.Get(ItemCountKey); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	n := -1
	seen := func(key string) {
		rest, ok := strings.CutPrefix(key, "items.")
		if !ok {
			return
		}
		idx, _, _ := strings.Cut(rest, ".")
		if i, err := strconv.Atoi(idx); err == nil && i+1 > n {
			n = i + 1
		}
	}
	for k := range values {
		seen(k)
	}
	for k := range files {
		seen(k)
	}
	if n < 0 {
		return current
	}
	return n
}
