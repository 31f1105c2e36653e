package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one raw CMS data item as decoded from JSON
type Record map[string]any

// ID returns the CMS identifier of the record
func (r Record) ID() string {
	if id := r.String("_id", "id"); id != "" {
		return id
	}
	return ""
}

// String returns the first non-empty string value among the given field
// aliases. A nested object contributes its name or title.
func (r Record) String(fields ...string) string {
	for _, f := range fields {
		if s := stringValue(r[f]); s != "" {
			return s
		}
	}
	return ""
}

// Int returns the first numeric value among the given field aliases
func (r Record) Int(fields ...string) int {
	for _, f := range fields {
		switch v := r[f].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case int64:
			return int(v)
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n)
			}
			if n, err := v.Float64(); err == nil {
				return int(n)
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}

// Bool returns the first boolean value among the given field aliases
func (r Record) Bool(fields ...string) bool {
	for _, f := range fields {
		switch v := r[f].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return false
}

// Image returns a browser-usable URL for the first image field found
func (r Record) Image(fields ...string) string {
	return MediaURL(r.String(fields...))
}

// Refs returns the normalised references held by the first present alias
func (r Record) Refs(fields ...string) []Ref {
	for _, f := range fields {
		if v, ok := r[f]; ok && v != nil {
			return Refs(v)
		}
	}
	return nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		return Record(t).String("name", "title")
	case Record:
		return t.String("name", "title")
	}
	return ""
}

const wixImagePrefix = "wix:image://v1/"

// MediaURL rewrites a CMS media reference (wix:image://v1/<id>/<file>#...)
// to its static CDN URL. Other values are returned unchanged.
func MediaURL(s string) string {
	if !strings.HasPrefix(s, wixImagePrefix) {
		return s
	}
	rest := strings.TrimPrefix(s, wixImagePrefix)
	if i := strings.IndexAny(rest, "/#"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return ""
	}
	return "https://static.wixstatic.com/media/" + rest
}
