package repositories

import (
	"context"

	"github.com/medtravel/directory/internal/domain/entities"
)

// DirectorySearchRepository runs free-text queries against a search index
type DirectorySearchRepository interface {
	// Search returns one zero-based page of hits and the total hit count
	Search(ctx context.Context, query string, page, pageSize int) ([]entities.SearchHit, int, error)
}
