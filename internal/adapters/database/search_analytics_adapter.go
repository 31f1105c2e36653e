package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/repositories"
	"github.com/medtravel/directory/internal/infrastructure/clients/postgres"
	apperrors "github.com/medtravel/directory/pkg/errors"
)

const searchAnalyticsTable = "search_analytics"

// SearchAnalyticsAdapter records directory searches in Postgres
type SearchAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchAnalyticsAdapter creates a new search analytics adapter
func NewSearchAnalyticsAdapter(client *postgres.Client) repositories.SearchAnalyticsRepository {
	return &SearchAnalyticsAdapter{
		client: client,
		db:     client.Goqu(),
	}
}

// LogEvent inserts one search event, assigning an id and timestamp if unset
func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query, args, err := buildSearchEventInsert(a.db, event)
	if err != nil {
		return apperrors.NewInternalError("failed to build search event insert query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}
	return nil
}

// GetZeroResultQueries lists the searches that most often found nothing
func (a *SearchAnalyticsAdapter) GetZeroResultQueries(ctx context.Context, since time.Time, limit int) ([]entities.ZeroResultQuery, error) {
	query, args, err := buildZeroResultQuery(a.db, since, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build zero result query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	defer rows.Close()

	out := []entities.ZeroResultQuery{}
	for rows.Next() {
		var q entities.ZeroResultQuery
		if err := rows.Scan(&q.NormalizedQuery, &q.Count, &q.LastSeen); err != nil {
			return nil, apperrors.NewInternalError("failed to scan zero result query", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read zero result queries", err)
	}
	return out, nil
}

func buildSearchEventInsert(db *goqu.Database, e *entities.SearchEvent) (string, []interface{}, error) {
	if e == nil {
		return "", nil, fmt.Errorf("search event is nil")
	}
	return db.Insert(searchAnalyticsTable).Rows(goqu.Record{
		"id":               e.ID,
		"query":            e.Query,
		"normalized_query": e.NormalizedQuery,
		"source":           string(e.Source),
		"result_count":     e.ResultCount,
		"latency_ms":       e.LatencyMs,
		"created_at":       e.CreatedAt,
	}).Prepared(true).ToSQL()
}

func buildZeroResultQuery(db *goqu.Database, since time.Time, limit int) (string, []interface{}, error) {
	if limit <= 0 {
		limit = 100
	}
	return db.From(searchAnalyticsTable).
		Select(
			goqu.C("normalized_query"),
			goqu.COUNT("*").As("count"),
			goqu.MAX("created_at").As("last_seen"),
		).
		Where(
			goqu.C("result_count").Eq(0),
			goqu.C("created_at").Gte(since),
		).
		GroupBy(goqu.C("normalized_query")).
		Order(goqu.I("count").Desc(), goqu.I("last_seen").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
}
