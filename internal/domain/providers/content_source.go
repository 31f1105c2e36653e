package providers

import (
	"context"

	"github.com/medtravel/directory/internal/catalog"
)

// ContentSource fetches every raw CMS collection the directory is built from
type ContentSource interface {
	FetchCollections(ctx context.Context) (catalog.Collections, error)
}

// ContentWriter stores a new item in a CMS collection and returns its id
type ContentWriter interface {
	InsertItem(ctx context.Context, collection string, data map[string]any) (string, error)
}
