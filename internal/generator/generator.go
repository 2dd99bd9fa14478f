// Package generator derives names and starter content for new CMS records:
// URL slugs, field names from labels and a default HTML template for a section
// schema.
package generator

import (
	"fmt"
	"regexp"
	"strings"

	"campus-cms/internal/schema"
	"campus-cms/internal/templating"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	multiHyphen     = regexp.MustCompile(`-{2,}`)
	nonFieldChar    = regexp.MustCompile(`[^a-z0-9_]+`)
	multiUnderscore = regexp.MustCompile(`_{2,}`)
)

// Slug creates a URL-friendly slug from a name. fallback is returned when the
// name has no usable characters.
func Slug(name, fallback string) string {
	slug := strings.ToLower(name)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-") // Replace non-alphanum with hyphens
	slug = multiHyphen.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallback
	}
	return slug
}

// UniqueSlug returns base, or base-2, base-3... when taken reports a clash.
func UniqueSlug(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// FieldName suggests a field name for a label ("Hero Image" -> "hero_image").
// The result satisfies schema.ValidName or is empty.
func FieldName(label string) string {
	name := nonFieldChar.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "_")
	name = multiUnderscore.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name != "" && (name[0] < 'a' || name[0] > 'z') {
		name = "field_" + name
	}
	if !schema.ValidName(name) {
		return ""
	}
	return name
}

// DefaultTemplate builds a starter template for a section: one element per
// field and, when items is non-empty, a list whose entries repeat per item.
func DefaultTemplate(slug string, fields, items schema.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<section class=\"section-%s\">\n", Slug(slug, "section"))
	for i, f := range fields {
		b.WriteString("  ")
		b.WriteString(fieldElement(f, "", i == 0))
		b.WriteString("\n")
	}
	if len(items) > 0 {
		b.WriteString("  <ul class=\"items\">\n")
		b.WriteString("    " + templating.BlockStart + "\n")
		b.WriteString("    <li>\n")
		for _, f := range items {
			b.WriteString("      ")
			b.WriteString(fieldElement(f, "item.", false))
			b.WriteString("\n")
		}
		b.WriteString("    </li>\n")
		b.WriteString("    " + templating.BlockEnd + "\n")
		b.WriteString("  </ul>\n")
	}
	b.WriteString("</section>")
	return b.String()
}

func fieldElement(f schema.Field, prefix string, heading bool) string {
	tok := "{" + prefix + f.Name + "}"
	class := "field-" + strings.ReplaceAll(f.Name, "_", "-")
	switch f.Type {
	case schema.TypeImage:
		return fmt.Sprintf(`<img class="%s" src="%s" alt="">`, class, tok)
	case schema.TypeFile:
		return fmt.Sprintf(`<a class="%s" href="%s" download>%s</a>`, class, tok, f.Label)
	case schema.TypeURL:
		return fmt.Sprintf(`<a class="%s" href="%s">%s</a>`, class, tok, tok)
	case schema.TypeEmail:
		return fmt.Sprintf(`<a class="%s" href="mailto:%s">%s</a>`, class, tok, tok)
	case schema.TypeTextarea, schema.TypeCode:
		return fmt.Sprintf(`<div class="%s">%s</div>`, class, tok)
	case schema.TypeColor:
		return fmt.Sprintf(`<span class="%s" style="color: %s">%s</span>`, class, tok, tok)
	case schema.TypeDate:
		return fmt.Sprintf(`<time class="%s" datetime="%s">%s</time>`, class, tok, tok)
	}
	if heading && f.Type == schema.TypeText {
		return fmt.Sprintf(`<h2 class="%s">%s</h2>`, class, tok)
	}
	return fmt.Sprintf(`<p class="%s">%s</p>`, class, tok)
}
