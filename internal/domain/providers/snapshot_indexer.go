package providers

import (
	"context"

	"github.com/medtravel/directory/internal/domain/entities"
)

// SnapshotIndexer receives every freshly built snapshot
type SnapshotIndexer interface {
	IndexSnapshot(ctx context.Context, data *entities.CMSData) error
}

// SnapshotExporter writes a snapshot to durable storage and returns its location
type SnapshotExporter interface {
	Export(ctx context.Context, data *entities.CMSData, key string) (string, error)
}
