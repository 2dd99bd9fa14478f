package entry

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"campus-cms/internal/schema"
)

var validate = validator.New()

// typeTags are the validator tags checked for non-empty values of each type.
var typeTags = map[schema.FieldType]struct {
	tag     string
	message string
}{
	schema.TypeEmail: {"email", "a valid email address"},
	schema.TypeURL:   {"url", "a valid URL"},
	schema.TypeDate:  {"datetime=2006-01-02", "a date (YYYY-MM-DD)"},
	schema.TypeColor: {"hexcolor", "a hex color"},
}

// Validate checks a bag against its schema: required fields must be filled in
// and non-empty values must match their field type. All failures are returned.
func Validate(s schema.Schema, bag ValueBag) schema.ValidationErrors {
	var errs schema.ValidationErrors
	for _, f := range s {
		if err := validateValue(f, bag[f.Name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateValue(f schema.Field, v any) *schema.ValidationError {
	if f.Type == schema.TypeCheckbox {
		if f.Required && !Truthy(v) {
			return &schema.ValidationError{Field: f.Name, Message: fmt.Sprintf("%s must be checked", f.Label)}
		}
		return nil
	}

	s := strings.TrimSpace(String(v))
	if s == "" {
		if f.Required {
			return &schema.ValidationError{Field: f.Name, Message: fmt.Sprintf("%s is required", f.Label)}
		}
		return nil
	}

	invalid := func(format string) *schema.ValidationError {
		return &schema.ValidationError{Field: f.Name, Message: fmt.Sprintf("%s must be %s", f.Label, format)}
	}

	switch f.Type {
	case schema.TypeNumber:
		if _, ok := v.(float64); !ok {
			return invalid("a number")
		}
	case schema.TypeURL:
		if sitePath(s) {
			return nil
		}
	case schema.TypeSelect, schema.TypeRadio:
		if f.SourceModule != "" {
			return nil
		}
		tag, ok := oneOfTag(f.Options)
		if !ok {
			// a value the tag syntax cannot quote
			if !f.HasOption(s) {
				return invalid("one of the listed options")
			}
			return nil
		}
		if err := validate.Var(s, tag); err != nil {
			return invalid("one of the listed options")
		}
		return nil
	}

	if rule, ok := typeTags[f.Type]; ok {
		if err := validate.Var(s, rule.tag); err != nil {
			return invalid(rule.message)
		}
	}
	return nil
}

// sitePath accepts in-page anchors and site-relative paths that stay inside
// the site root.
func sitePath(s string) bool {
	if strings.HasPrefix(s, "#") {
		return true
	}
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") {
		return false
	}
	p, _, _ := strings.Cut(s, "?")
	p, _, _ = strings.Cut(p, "#")
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// oneOfTag builds a oneof tag from the option values. Values holding spaces are
// single-quoted; commas and pipes use the validator's hex escapes.
func oneOfTag(opts []schema.Option) (string, bool) {
	vals := make([]string, 0, len(opts))
	for _, o := range opts {
		v := o.Value
		if v == "" || strings.ContainsAny(v, "'=") {
			return "", false
		}
		v = strings.ReplaceAll(v, ",", "0x2C")
		v = strings.ReplaceAll(v, "|", "0x7C")
		if strings.ContainsAny(v, " \t") {
			v = "'" + v + "'"
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return "", false
	}
	return "oneof=" + strings.Join(vals, " "), true
}
