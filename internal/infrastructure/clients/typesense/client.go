package typesense

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/medtravel/directory/pkg/config"
	"github.com/medtravel/directory/pkg/retry"
)

const (
	// DirectoryAlias is the name readers search. It points at the newest
	// fully indexed snapshot collection.
	DirectoryAlias = "directory"

	snapshotCollectionPrefix = DirectoryAlias + "_"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a Typesense client and waits for the server to be healthy
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig()
	retryConfig.MaxTotalTimeout = 30 * time.Second
	err := retry.Do(ctx, retryConfig, "Typesense", func() error {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := client.Health(healthCtx, 2*time.Second)
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Typesense health check failed, retrying")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// SnapshotCollectionName names the collection a snapshot built at t is indexed into
func SnapshotCollectionName(t time.Time) string {
	return snapshotCollectionPrefix + strconv.FormatInt(t.UnixNano(), 10)
}

// DirectorySchema describes one snapshot collection: a document per
// hospital, branch, doctor and treatment
func DirectorySchema(name string) *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: name,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "type", Type: "string", Facet: pointer.True()},
			{Name: "entity_id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "subtitle", Type: "string", Optional: pointer.True()},
			{Name: "hospital_id", Type: "string", Optional: pointer.True()},
			{Name: "hospital_slug", Type: "string", Optional: pointer.True()},
			{Name: "image", Type: "string", Optional: pointer.True()},
			{Name: "cities", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "rank", Type: "int32"},
		},
		DefaultSortingField: pointer.String("rank"),
	}
}

// CreateCollection creates an empty snapshot collection
func (c *Client) CreateCollection(ctx context.Context, name string) error {
	if _, err := c.client.Collections().Create(ctx, DirectorySchema(name)); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

// DropCollection deletes a snapshot collection
func (c *Client) DropCollection(ctx context.Context, name string) error {
	if _, err := c.client.Collection(name).Delete(ctx); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	return nil
}

// PointAlias switches DirectoryAlias to collection in one step and returns
// the collection it pointed at before, or "" when the alias is new.
func (c *Client) PointAlias(ctx context.Context, collection string) (string, error) {
	previous := ""
	if alias, err := c.client.Alias(DirectoryAlias).Retrieve(ctx); err == nil && alias != nil {
		previous = alias.CollectionName
	} else if legacy, err := c.client.Collection(DirectoryAlias).Retrieve(ctx); err == nil && legacy.Name == DirectoryAlias {
		// A plain collection from before aliasing would shadow the alias.
		if err := c.DropCollection(ctx, DirectoryAlias); err != nil {
			return "", err
		}
	}

	if _, err := c.client.Aliases().Upsert(ctx, DirectoryAlias, &api.CollectionAliasSchema{CollectionName: collection}); err != nil {
		return "", fmt.Errorf("failed to point %s at %s: %w", DirectoryAlias, collection, err)
	}
	log.Info().Str("alias", DirectoryAlias).Str("collection", collection).Str("previous", previous).Msg("Switched Typesense alias")
	return previous, nil
}
