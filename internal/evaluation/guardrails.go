package evaluation

import "fmt"

// Thresholds are the minimum averages a search build must reach. A zero
// value disables that check.
type Thresholds struct {
	MinRecallAt10 float64
	MinMRRAt10    float64
	MaxFailed     int
}

// Check reports the first threshold the summary misses
func (t Thresholds) Check(s *EvalSummary) error {
	if s.Failed > t.MaxFailed {
		return fmt.Errorf("%d queries failed, at most %d allowed", s.Failed, t.MaxFailed)
	}
	if t.MinRecallAt10 > 0 && s.AvgRecallAt10 < t.MinRecallAt10 {
		return fmt.Errorf("recall@10 %.3f below %.3f", s.AvgRecallAt10, t.MinRecallAt10)
	}
	if t.MinMRRAt10 > 0 && s.AvgMRRAt10 < t.MinMRRAt10 {
		return fmt.Errorf("mrr@10 %.3f below %.3f", s.AvgMRRAt10, t.MinMRRAt10)
	}
	return nil
}
