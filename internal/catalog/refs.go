package catalog

// Ref is one normalised reference. Inline carries any fields the CMS
// embedded alongside the id (e.g. a per-branch cost on a treatment reference).
type Ref struct {
	ID     string
	Inline Record
}

// Refs coerces every reference shape the CMS produces into a flat list:
// a bare id string, {_id}, {id}, a list of any of those, or {items: [...]}.
// Shapes without an id are skipped.
func Refs(v any) []Ref {
	var out []Ref
	collectRefs(v, &out)
	return out
}

func collectRefs(v any, out *[]Ref) {
	switch t := v.(type) {
	case nil:
	case string:
		if t != "" {
			*out = append(*out, Ref{ID: t})
		}
	case []any:
		for _, item := range t {
			collectRefs(item, out)
		}
	case []string:
		for _, item := range t {
			collectRefs(item, out)
		}
	case []map[string]any:
		for _, item := range t {
			collectRefs(item, out)
		}
	case Record:
		collectRefs(map[string]any(t), out)
	case map[string]any:
		if items, ok := t["items"]; ok {
			collectRefs(items, out)
			return
		}
		rec := Record(t)
		if id := rec.ID(); id != "" {
			*out = append(*out, Ref{ID: id, Inline: rec})
		}
	}
}
