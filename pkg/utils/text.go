package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeText lowercases, strips diacritics and collapses whitespace.
func NormalizeText(value string) string {
	decomposed := norm.NFD.String(value)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContainsFold reports whether query occurs in value ignoring case,
// diacritics and repeated whitespace. An empty query never matches.
func ContainsFold(value, query string) bool {
	q := NormalizeText(query)
	if q == "" {
		return false
	}
	return strings.Contains(NormalizeText(value), q)
}

// Slugify turns a display name into a URL slug: "Max Super Speciality, Saket" -> "max-super-speciality-saket".
func Slugify(value string) string {
	slug := nonSlugChars.ReplaceAllString(NormalizeText(value), "-")
	return strings.Trim(slug, "-")
}
