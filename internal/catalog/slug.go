package catalog

import (
	"regexp"
	"strings"
	"unicode"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Slugify lowercases name and joins its ASCII alphanumeric runs with hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// ResolveSlug returns the explicit slug when given, otherwise one derived from name.
func ResolveSlug(slug, name string) (string, error) {
	candidate := strings.TrimSpace(slug)
	if candidate == "" {
		candidate = Slugify(name)
	}
	if !slugPattern.MatchString(candidate) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid slug").
			WithDetails(map[string]any{"field": "slug", "pattern": slugPattern.String()})
	}
	return candidate, nil
}
