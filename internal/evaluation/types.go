package evaluation

import (
	"time"

	"github.com/medtravel/directory/internal/domain/entities"
)

// GoldenQuery is a labeled query with the hits a good search must return.
// Expected holds ids of entities of the given type.
type GoldenQuery struct {
	ID         string                 `json:"id"`
	Query      string                 `json:"query"`
	Type       entities.SearchHitType `json:"type"`
	Expected   []string               `json:"expected"`
	Difficulty string                 `json:"difficulty"` // easy, medium, hard
}

// relevantKeys returns the expected hits in the form produced by hitKey
func (q GoldenQuery) relevantKeys() []string {
	keys := make([]string, len(q.Expected))
	for i, id := range q.Expected {
		keys[i] = string(q.Type) + ":" + id
	}
	return keys
}

func hitKey(h entities.SearchHit) string {
	return string(h.Type) + ":" + h.ID
}

// EvalResult holds the evaluation outcome for a single query.
type EvalResult struct {
	QueryID     string
	Query       string
	Type        entities.SearchHitType
	RecallAt10  float64
	MRRAt10     float64
	ResultCount int
	Retrieved   []string
	Latency     time.Duration
	Err         error
}

// EvalSummary holds aggregate metrics across all golden queries.
type EvalSummary struct {
	TotalQueries    int
	Failed          int
	AvgRecallAt10   float64
	AvgMRRAt10      float64
	AvgLatency      time.Duration
	QueriesWithHits int // queries that returned at least 1 result
	ByType          map[entities.SearchHitType]*TypeSummary
	Results         []EvalResult
}

// TypeSummary holds metrics grouped by the expected hit type.
type TypeSummary struct {
	Count         int
	AvgRecallAt10 float64
	AvgMRRAt10    float64
}
