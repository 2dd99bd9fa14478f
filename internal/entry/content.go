package entry

import (
	"bytes"
	"encoding/json"

	"campus-cms/internal/schema"
)

// Content is the stored blob of a section instance: top-level values and the
// repeatable items as per-field arrays.
type Content struct {
	Values ValueBag    `json:"values"`
	Items  FieldArrays `json:"items,omitempty"`
}

// Map exposes the arrays as a generic map, the shape NormalizeItems reads.
func (fa FieldArrays) Map() map[string]any {
	out := make(map[string]any, len(fa))
	for k, v := range fa {
		out[k] = v
	}
	return out
}

// Decode reads a stored content blob against the section's schemas. Three
// layouts are understood: {"values": {...}, "items": {...}}, the same with a
// legacy "mapping_items" list, and a flat object whose keys are field names.
// Malformed JSON yields empty values and a *schema.ParseError.
func Decode(raw []byte, s, itemSchema schema.Schema) (ValueBag, Items, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return BuildEmpty(s), Items{}, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return BuildEmpty(s), Items{}, &schema.ParseError{Source: "content", Err: err}
	}

	values := doc
	if nested, ok := doc["values"].(map[string]any); ok {
		values = nested
	}
	bag := Conform(s, values)

	itemSource := doc
	if nested, ok := doc["items"].(map[string]any); ok {
		itemSource = nested
	}
	if _, ok := doc[LegacyItemsKey]; ok {
		itemSource = doc
	}
	if len(itemSchema) == 0 {
		return bag, Items{}, nil
	}
	items := ItemsFromArrays(NormalizeItems(itemSource, itemSchema), itemSchema)
	return bag, items, nil
}

// Encode writes values and items in the canonical stored layout.
func Encode(bag ValueBag, items Items, itemSchema schema.Schema) (json.RawMessage, error) {
	c := Content{Values: bag}
	if c.Values == nil {
		c.Values = ValueBag{}
	}
	if len(itemSchema) > 0 {
		c.Items = items.Arrays(itemSchema)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return data, nil
}
