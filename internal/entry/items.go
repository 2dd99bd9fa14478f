package entry

import (
	"campus-cms/internal/schema"
)

// LegacyItemsKey is the key older content used for repeatable items stored as
// a list of per-item objects.
const LegacyItemsKey = "mapping_items"

// Items is the ordered repeatable-item collection of a section instance. Every
// method returns a new collection.
type Items []ValueBag

// Add appends an empty item built from the repeatable schema.
func (it Items) Add(s schema.Schema) Items {
	return append(it.clone(), BuildEmpty(s))
}

// Remove drops the item at index i. Out of range indexes are a no-op.
func (it Items) Remove(i int) Items {
	if i < 0 || i >= len(it) {
		return it
	}
	out := make(Items, 0, len(it)-1)
	for j, item := range it {
		if j != i {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Update sets one value of the item at index i.
func (it Items) Update(i int, name string, value any) Items {
	if i < 0 || i >= len(it) {
		return it
	}
	out := it.clone()
	out[i] = Set(out[i], name, value)
	return out
}

// Move swaps the item at index i with its neighbour.
func (it Items) Move(i int, dir schema.Direction) Items {
	j := i - 1
	if dir == schema.Down {
		j = i + 1
	}
	if i < 0 || i >= len(it) || j < 0 || j >= len(it) {
		return it
	}
	out := it.clone()
	out[i], out[j] = out[j], out[i]
	return out
}

func (it Items) clone() Items {
	out := make(Items, len(it))
	for i, item := range it {
		out[i] = item.Clone()
	}
	return out
}

// FieldArrays is the stored shape of repeatable items: one array per field,
// index i of every array belonging to item i.
type FieldArrays map[string][]any

// Arrays converts the collection into per-field arrays for the given schema.
func (it Items) Arrays(s schema.Schema) FieldArrays {
	out := make(FieldArrays, len(s))
	for _, f := range s {
		values := make([]any, len(it))
		for i, item := range it {
			v, ok := item[f.Name]
			if !ok || v == nil {
				v = emptyValue(f)
			}
			values[i] = v
		}
		out[f.Name] = values
	}
	return out
}

// ItemsFromArrays rebuilds the collection from per-field arrays. The item count
// is the longest array; short arrays are padded with empty values.
func ItemsFromArrays(arrays FieldArrays, s schema.Schema) Items {
	n := 0
	for _, f := range s {
		if l := len(arrays[f.Name]); l > n {
			n = l
		}
	}
	items := make(Items, n)
	for i := range items {
		raw := make(map[string]any, len(s))
		for _, f := range s {
			if values := arrays[f.Name]; i < len(values) {
				raw[f.Name] = values[i]
			}
		}
		items[i] = Conform(s, raw)
	}
	return items
}

// NormalizeItems reads repeatable items from either stored shape. When raw holds
// a legacy mapping_items list each item is projected into per-field arrays;
// otherwise the per-field arrays are read directly. Both paths pad every field
// of s to the same length, so normalizing an already normalized value returns
// it unchanged.
func NormalizeItems(raw map[string]any, s schema.Schema) FieldArrays {
	if legacy, ok := raw[LegacyItemsKey].([]any); ok {
		items := make(Items, 0, len(legacy))
		for _, entry := range legacy {
			obj, _ := entry.(map[string]any)
			items = append(items, Conform(s, obj))
		}
		return items.Arrays(s)
	}

	arrays := make(FieldArrays, len(s))
	for _, f := range s {
		switch values := raw[f.Name].(type) {
		case []any:
			arrays[f.Name] = values
		case []string:
			for _, v := range values {
				arrays[f.Name] = append(arrays[f.Name], v)
			}
		}
	}
	return ItemsFromArrays(arrays, s).Arrays(s)
}
