package templating

import (
	"regexp"
	"strings"

	"campus-cms/internal/entry"
)

// Marker comments delimiting the repeatable block of a section template.
const (
	BlockStart = "<!--START-->"
	BlockEnd   = "<!--END-->"
)

var (
	startMarker = regexp.MustCompile(`<!--\s*START\s*-->`)
	endMarker   = regexp.MustCompile(`<!--\s*END\s*-->`)
	// token matches {name} and {item.name}; names follow the field name rules.
	token = regexp.MustCompile(`\{(item\.)?([a-z][a-z0-9_]*)\}`)
)

// ValueFilter transforms a value before it is written into the template.
type ValueFilter func(value string) string

// Expand substitutes {field} tokens from bag and repeats the marked block once
// per item, replacing {item.field} tokens with that item's values. Unknown
// names become "". When the markers are missing or unbalanced no block is
// repeated and the template is only substituted.
func Expand(tpl string, bag entry.ValueBag, items entry.Items) string {
	return expand(tpl, bag, items, nil)
}

func expand(tpl string, bag entry.ValueBag, items entry.Items, filter ValueFilter) string {
	var b strings.Builder
	b.Grow(len(tpl))

	pos := 0
	for _, blk := range findBlocks(tpl) {
		b.WriteString(substitute(tpl[pos:blk.start], bag, nil, filter))
		inner := tpl[blk.innerStart:blk.innerEnd]
		for _, item := range items {
			b.WriteString(substitute(inner, bag, item, filter))
		}
		pos = blk.end
	}
	b.WriteString(substitute(tpl[pos:], bag, nil, filter))
	return b.String()
}

// substitute replaces every token of s in a single pass so substituted values
// are never scanned again. item is nil outside a repeatable block.
func substitute(s string, bag, item entry.ValueBag, filter ValueFilter) string {
	return token.ReplaceAllStringFunc(s, func(match string) string {
		m := token.FindStringSubmatch(match)
		source := bag
		if m[1] != "" {
			source = item
		}
		v, ok := source[m[2]]
		if !ok {
			return ""
		}
		out := entry.String(v)
		if filter != nil {
			out = filter(out)
		}
		return out
	})
}

type block struct {
	start, innerStart, innerEnd, end int
}

// findBlocks returns the START/END pairs of tpl in order. Markers must strictly
// alternate START, END, START, END...; anything else is treated as malformed
// and no block is returned.
func findBlocks(tpl string) []block {
	starts := startMarker.FindAllStringIndex(tpl, -1)
	ends := endMarker.FindAllStringIndex(tpl, -1)
	if len(starts) == 0 || len(starts) != len(ends) {
		return nil
	}

	blocks := make([]block, 0, len(starts))
	prevEnd := 0
	for i := range starts {
		s, e := starts[i], ends[i]
		if s[0] < prevEnd || e[0] < s[1] {
			return nil
		}
		if i+1 < len(starts) && starts[i+1][0] < e[1] {
			return nil
		}
		blocks = append(blocks, block{start: s[0], innerStart: s[1], innerEnd: e[0], end: e[1]})
		prevEnd = e[1]
	}
	return blocks
}

// HasBlock reports whether tpl contains a well-formed repeatable block.
func HasBlock(tpl string) bool {
	return len(findBlocks(tpl)) > 0
}

// Tokens lists the distinct top-level and item field names referenced by tpl,
// in order of first appearance.
func Tokens(tpl string) (fields, itemFields []string) {
	seen := map[string]bool{}
	for _, m := range token.FindAllStringSubmatch(tpl, -1) {
		key := m[1] + m[2]
		if seen[key] {
			continue
		}
		seen[key] = true
		if m[1] != "" {
			itemFields = append(itemFields, m[2])
		} else {
			fields = append(fields, m[2])
		}
	}
	return fields, itemFields
}
