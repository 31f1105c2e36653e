package repositories

import (
	"context"
	"time"

	"github.com/medtravel/directory/internal/domain/entities"
)

// SearchAnalyticsRepository stores search interactions
type SearchAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.SearchEvent) error
	// GetZeroResultQueries groups empty searches since the given time, most frequent first
	GetZeroResultQueries(ctx context.Context, since time.Time, limit int) ([]entities.ZeroResultQuery, error)
}
