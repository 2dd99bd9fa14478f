package templating

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"campus-cms/internal/entry"
	"campus-cms/internal/schema"
)

func TestExpand(t *testing.T) {
	items := entry.Items{{"desc": "a"}, {"desc": "b"}}

	tests := []struct {
		name  string
		tpl   string
		bag   entry.ValueBag
		items entry.Items
		want  string
	}{
		{
			name: "top-level field",
			tpl:  "<h1>{title}</h1>",
			bag:  entry.ValueBag{"title": "Hello"},
			want: "<h1>Hello</h1>",
		},
		{
			name:  "repeatable block",
			tpl:   "<!--START-->X:{item.desc}<!--END-->",
			items: items,
			want:  "X:aX:b",
		},
		{
			name:  "block with surrounding text",
			tpl:   "<ul>{title}<!--START--><li>{item.desc} of {title}</li><!--END--></ul>",
			bag:   entry.ValueBag{"title": "T"},
			items: items,
			want:  "<ul>T<li>a of T</li><li>b of T</li></ul>",
		},
		{
			name:  "whitespace inside markers",
			tpl:   "<!-- START -->{item.desc};<!--  END -->",
			items: items,
			want:  "a;b;",
		},
		{
			name:  "two blocks",
			tpl:   "<!--START-->{item.desc}<!--END-->|<!--START-->[{item.desc}]<!--END-->",
			items: items,
			want:  "ab|[a][b]",
		},
		{
			name:  "no items removes block",
			tpl:   "a<!--START-->{item.desc}<!--END-->b",
			items: nil,
			want:  "ab",
		},
		{
			name:  "no markers leaves item tokens empty",
			tpl:   "<p>{item.desc}</p>",
			items: items,
			want:  "<p></p>",
		},
		{
			name:  "unbalanced markers are not expanded",
			tpl:   "<!--START-->{item.desc}<!--START-->x<!--END-->",
			items: items,
			want:  "<!--START--><!--START-->x<!--END-->",
		},
		{
			name:  "end before start",
			tpl:   "<!--END-->{title}<!--START-->",
			bag:   entry.ValueBag{"title": "t"},
			items: items,
			want:  "<!--END-->t<!--START-->",
		},
		{
			name: "unknown field becomes empty",
			tpl:  "[{missing}]",
			bag:  entry.ValueBag{},
			want: "[]",
		},
		{
			name: "values are stringified",
			tpl:  "{n} {ok} {tags}",
			bag:  entry.ValueBag{"n": 2.5, "ok": true, "tags": []any{"x", "y"}},
			want: "2.5 true x, y",
		},
		{
			name: "substituted values are not rescanned",
			tpl:  "{a}",
			bag:  entry.ValueBag{"a": "{b}", "b": "nope"},
			want: "{b}",
		},
		{
			name:  "item values are not rescanned",
			tpl:   "<!--START--><li>{item.desc}</li><!--END-->",
			bag:   entry.ValueBag{"title": "T"},
			items: entry.Items{{"desc": "about {title}"}},
			want:  "<li>about {title}</li>",
		},
		{
			name: "non-token braces are kept",
			tpl:  "body { color: red } {Title} {1x}",
			bag:  entry.ValueBag{"title": "x"},
			want: "body { color: red } {Title} {1x}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.tpl, tt.bag, tt.items)
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.tpl, got, tt.want)
			}
		})
	}
}

func TestExpand_Idempotent(t *testing.T) {
	tpl := "<h2>{title}</h2><!--START--><p>{item.desc}</p><!--END-->"
	bag := entry.ValueBag{"title": "Faculty"}
	items := entry.Items{{"desc": "one"}}

	first := Expand(tpl, bag, items)
	if second := Expand(tpl, bag, items); second != first {
		t.Errorf("Expand() not deterministic: %q then %q", first, second)
	}
}

var anyToken = regexp.MustCompile(`\{(item\.)?[a-z][a-z0-9_]*\}`)

func TestExpand_EmptyBagLeavesNoTokens(t *testing.T) {
	fields := schema.Schema{
		{Name: "title", Type: schema.TypeText, Label: "Title"},
		{Name: "show", Type: schema.TypeCheckbox, Label: "Show"},
	}
	itemFields := schema.Schema{{Name: "desc", Type: schema.TypeText, Label: "Description"}}
	tpl := "<h1>{title}</h1>{show}<!--START--><li>{item.desc}</li><!--END-->"

	items := entry.Items{}.Add(itemFields)
	out := Expand(tpl, entry.BuildEmpty(fields), items)

	if anyToken.MatchString(out) {
		t.Errorf("Expand() left tokens in %q", out)
	}
	if want := "<h1></h1>false<li></li>"; out != want {
		t.Errorf("Expand() = %q, want %q", out, want)
	}
}

func TestHasBlockAndTokens(t *testing.T) {
	tpl := "{title}<!--START-->{item.desc}{item.link}{title}<!--END-->{item.desc}"
	if !HasBlock(tpl) {
		t.Error("HasBlock() = false, want true")
	}
	if HasBlock("<!--START-->") {
		t.Error("HasBlock() = true for a lone START marker")
	}

	fields, itemFields := Tokens(tpl)
	if diff := cmp.Diff([]string{"title"}, fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"desc", "link"}, itemFields); diff != "" {
		t.Errorf("item fields mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitize(t *testing.T) {
	got := Sanitize(`<b>bold</b><script>alert(1)</script>`)
	if got != "<b>bold</b>" {
		t.Errorf("Sanitize() = %q", got)
	}
	if got := Sanitize("plain"); got != "plain" {
		t.Errorf("Sanitize(plain) = %q", got)
	}
}
