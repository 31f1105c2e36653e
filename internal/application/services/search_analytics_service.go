package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/repositories"
	"github.com/medtravel/directory/pkg/utils"
)

// SearchTracker observes answered searches
type SearchTracker interface {
	TrackSearch(ctx context.Context, query string, source entities.SearchSource, results int, latency time.Duration)
}

// SearchAnalyticsService logs searches without blocking the request
type SearchAnalyticsService struct {
	repo    repositories.SearchAnalyticsRepository
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewSearchAnalyticsService creates a new search analytics service
func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository) *SearchAnalyticsService {
	return &SearchAnalyticsService{repo: repo, timeout: 5 * time.Second}
}

// TrackSearch records the search in the background
func (s *SearchAnalyticsService) TrackSearch(ctx context.Context, query string, source entities.SearchSource, results int, latency time.Duration) {
	event := &entities.SearchEvent{
		Query:           query,
		NormalizedQuery: utils.NormalizeText(query),
		Source:          source,
		ResultCount:     results,
		LatencyMs:       int(latency.Milliseconds()),
		CreatedAt:       time.Now().UTC(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The request context is usually cancelled by the time this runs.
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		if err := s.repo.LogEvent(bgCtx, event); err != nil {
			log.Warn().Err(err).Str("query", event.NormalizedQuery).Msg("Failed to log search event")
		}
	}()
}

// GetZeroResultQueries lists the most frequent empty searches since the given time
func (s *SearchAnalyticsService) GetZeroResultQueries(ctx context.Context, since time.Time, limit int) ([]entities.ZeroResultQuery, error) {
	return s.repo.GetZeroResultQueries(ctx, since, limit)
}

// Wait blocks until every pending write has finished
func (s *SearchAnalyticsService) Wait() {
	s.wg.Wait()
}
