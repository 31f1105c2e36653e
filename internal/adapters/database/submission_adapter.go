package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/repositories"
	"github.com/medtravel/directory/internal/infrastructure/clients/postgres"
	apperrors "github.com/medtravel/directory/pkg/errors"
)

const submissionsTable = "form_submissions"

// SubmissionAdapter implements the submission ledger in Postgres
type SubmissionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSubmissionAdapter creates a new submission adapter
func NewSubmissionAdapter(client *postgres.Client) repositories.SubmissionRepository {
	return &SubmissionAdapter{
		client: client,
		db:     client.Goqu(),
	}
}

// Create inserts a submission record
func (a *SubmissionAdapter) Create(ctx context.Context, submission *entities.Submission) error {
	query, args, err := buildSubmissionInsert(a.db, submission)
	if err != nil {
		return apperrors.NewInternalError("failed to build submission insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create submission", err)
	}
	return nil
}

// UpdateStatus records what happened after the submission was stored
func (a *SubmissionAdapter) UpdateStatus(ctx context.Context, id string, status entities.SubmissionStatus, detail string) error {
	query, args, err := buildSubmissionStatusUpdate(a.db, id, status, detail, time.Now().UTC())
	if err != nil {
		return apperrors.NewInternalError("failed to build submission update query", err)
	}

	res, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update submission", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("submission %s not found", id))
	}
	return nil
}

func buildSubmissionInsert(db *goqu.Database, s *entities.Submission) (string, []interface{}, error) {
	if s == nil {
		return "", nil, fmt.Errorf("submission is nil")
	}

	var extra interface{}
	if len(s.Extra) > 0 {
		raw, err := json.Marshal(s.Extra)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode extra fields: %w", err)
		}
		extra = string(raw)
	}

	record := goqu.Record{
		"id":           s.ID,
		"kind":         string(s.Kind),
		"name":         s.Name,
		"email":        nullString(s.Email),
		"phone":        nullString(s.Phone),
		"country":      nullString(s.Country),
		"message":      nullString(s.Message),
		"organization": nullString(s.Organization),
		"hospital_id":  nullString(s.HospitalID),
		"treatment_id": nullString(s.TreatmentID),
		"page":         nullString(s.Page),
		"extra":        extra,
		"cms_item_id":  nullString(s.CMSItemID),
		"status":       string(entities.SubmissionStatusStored),
		"created_at":   s.CreatedAt,
		"updated_at":   s.CreatedAt,
	}

	return db.Insert(submissionsTable).Rows(record).Prepared(true).ToSQL()
}

func buildSubmissionStatusUpdate(db *goqu.Database, id string, status entities.SubmissionStatus, detail string, now time.Time) (string, []interface{}, error) {
	return db.Update(submissionsTable).
		Set(goqu.Record{
			"status":        string(status),
			"status_detail": nullString(detail),
			"updated_at":    now,
		}).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
