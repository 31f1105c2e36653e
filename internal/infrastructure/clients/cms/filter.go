package cms

// Filter is a CMS query filter document, e.g. {"city": {"$hasSome": ["c1"]}}
type Filter map[string]any

// Eq matches items whose field equals value
func Eq(field string, value any) Filter {
	return Filter{field: map[string]any{"$eq": value}}
}

// Contains matches items whose text field includes value, case-insensitively
func Contains(field, value string) Filter {
	return Filter{field: map[string]any{"$contains": value}}
}

// HasSome matches items whose field (or multi-reference) holds any of values
func HasSome(field string, values ...any) Filter {
	return Filter{field: map[string]any{"$hasSome": values}}
}

// And combines filters; nil filters are skipped
func And(filters ...Filter) Filter {
	var parts []Filter
	for _, f := range filters {
		if len(f) > 0 {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return Filter{"$and": parts}
	}
}
