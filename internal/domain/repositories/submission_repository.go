package repositories

import (
	"context"

	"github.com/medtravel/directory/internal/domain/entities"
)

// SubmissionRepository is the local ledger of accepted form submissions
type SubmissionRepository interface {
	Create(ctx context.Context, submission *entities.Submission) error
	UpdateStatus(ctx context.Context, id string, status entities.SubmissionStatus, detail string) error
}
