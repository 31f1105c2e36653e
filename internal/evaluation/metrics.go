package evaluation

// topK truncates retrieved to its first k entries
func topK(retrieved []string, k int) []string {
	if k >= 0 && k < len(retrieved) {
		return retrieved[:k]
	}
	return retrieved
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// RecallAtK is the fraction of relevant items present in the top k
// retrieved. An empty relevant set scores 0.
func RecallAtK(relevant, retrieved []string, k int) float64 {
	if len(relevant) == 0 {
		return 0.0
	}
	want := toSet(relevant)

	found := 0
	for _, r := range topK(retrieved, k) {
		if _, ok := want[r]; ok {
			found++
			delete(want, r)
		}
	}
	return float64(found) / float64(len(toSet(relevant)))
}

// MRRAtK is the reciprocal rank of the first relevant item in the top k,
// or 0 when none appears.
func MRRAtK(relevant, retrieved []string, k int) float64 {
	if len(relevant) == 0 {
		return 0.0
	}
	want := toSet(relevant)

	for i, r := range topK(retrieved, k) {
		if _, ok := want[r]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}
