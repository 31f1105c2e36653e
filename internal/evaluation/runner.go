package evaluation

import (
	"context"
	"time"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/search"
)

const evalDepth = 10

// Searcher answers free-text queries
type Searcher interface {
	Search(ctx context.Context, query string, p search.Pagination) ([]entities.SearchHit, int, error)
}

// SnapshotSearcher searches an in-memory snapshot directly
type SnapshotSearcher struct {
	Data *entities.CMSData
}

// Search implements Searcher
func (s SnapshotSearcher) Search(ctx context.Context, query string, p search.Pagination) ([]entities.SearchHit, int, error) {
	hits := search.SearchSnapshot(s.Data, query)
	return search.PageOf(hits, p), len(hits), nil
}

// Runner runs evaluation across a set of golden queries.
type Runner struct {
	searcher Searcher
}

func NewRunner(searcher Searcher) *Runner {
	return &Runner{searcher: searcher}
}

// Run scores every query. A failing query counts toward Failed and scores
// zero; only context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, queries []GoldenQuery) (*EvalSummary, error) {
	summary := &EvalSummary{
		TotalQueries: len(queries),
		ByType:       make(map[entities.SearchHitType]*TypeSummary),
		Results:      make([]EvalResult, 0, len(queries)),
	}

	for _, gq := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		hits, count, err := r.searcher.Search(ctx, gq.Query, search.NewPagination(0, evalDepth))
		result := EvalResult{
			QueryID: gq.ID,
			Query:   gq.Query,
			Type:    gq.Type,
			Latency: time.Since(start),
			Err:     err,
		}

		if err == nil {
			retrieved := make([]string, len(hits))
			for i, h := range hits {
				retrieved[i] = hitKey(h)
			}
			relevant := gq.relevantKeys()
			result.Retrieved = retrieved
			result.ResultCount = count
			result.RecallAt10 = RecallAtK(relevant, retrieved, evalDepth)
			result.MRRAt10 = MRRAtK(relevant, retrieved, evalDepth)
		}

		r.updateSummary(summary, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) updateSummary(s *EvalSummary, res EvalResult) {
	s.Results = append(s.Results, res)
	if res.Err != nil {
		s.Failed++
	}
	s.AvgRecallAt10 += res.RecallAt10
	s.AvgMRRAt10 += res.MRRAt10
	s.AvgLatency += res.Latency
	if res.ResultCount > 0 {
		s.QueriesWithHits++
	}

	ts, ok := s.ByType[res.Type]
	if !ok {
		ts = &TypeSummary{}
		s.ByType[res.Type] = ts
	}
	ts.Count++
	ts.AvgRecallAt10 += res.RecallAt10
	ts.AvgMRRAt10 += res.MRRAt10
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	if s.TotalQueries > 0 {
		n := float64(s.TotalQueries)
		s.AvgRecallAt10 /= n
		s.AvgMRRAt10 /= n
		s.AvgLatency /= time.Duration(s.TotalQueries)
	}

	for _, ts := range s.ByType {
		if ts.Count > 0 {
			n := float64(ts.Count)
			ts.AvgRecallAt10 /= n
			ts.AvgMRRAt10 /= n
		}
	}
}
