package cms

import (
	"campus-cms/internal/generator"
	"campus-cms/internal/storage"
)

// slugOwner extracts id and slug from a stored record.
type slugOwner[T any] func(*T) (id, slug string)

func findBySlug[T any](store storage.DataStore, kind storage.Kind, slug string, key slugOwner[T]) (*T, error) {
	all, err := storage.LoadAll[T](store, kind)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if _, s := key(rec); s == slug {
			return rec, nil
		}
	}
	return nil, nil
}

// resolveSlug picks the slug for a record being saved. A requested slug is
// normalized and must be free; otherwise one is generated from name and made
// unique with a numeric suffix.
func resolveSlug[T any](store storage.DataStore, kind storage.Kind, requested, name, fallback, exceptID string, key slugOwner[T]) (string, error) {
	all, err := storage.LoadAll[T](store, kind)
	if err != nil {
		return "", err
	}
	taken := func(slug string) bool {
		for _, rec := range all {
			if id, s := key(rec); s == slug && id != exceptID {
				return true
			}
		}
		return false
	}

	if requested != "" {
		slug := generator.Slug(requested, "")
		if slug == "" {
			return "", invalid("slug %q has no usable characters", requested)
		}
		if taken(slug) {
			return "", ErrConflict
		}
		return slug, nil
	}
	return generator.UniqueSlug(generator.Slug(name, fallback), taken), nil
}
