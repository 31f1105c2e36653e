package cms

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medtravel/directory/internal/catalog"
	"github.com/medtravel/directory/internal/domain/providers"
	cmsclient "github.com/medtravel/directory/internal/infrastructure/clients/cms"
	"github.com/medtravel/directory/internal/infrastructure/observability"
)

// CMS collection names
const (
	CollectionHospitals      = "HospitalMaster"
	CollectionBranches       = "BranchesMaster"
	CollectionDoctors        = "DoctorMaster"
	CollectionTreatments     = "TreatmentMaster"
	CollectionSpecialists    = "SpecialistsMaster"
	CollectionDepartments    = "Department"
	CollectionCities         = "CityMaster"
	CollectionAccreditations = "Accreditation"
)

// maxPages bounds a single collection scan
const maxPages = 200

// Fetcher reads every directory collection from the CMS and writes form
// submissions back to it.
type Fetcher struct {
	client   cmsclient.Client
	pageSize int
}

var (
	_ providers.ContentSource = (*Fetcher)(nil)
	_ providers.ContentWriter = (*Fetcher)(nil)
)

// NewFetcher creates a fetcher; pageSize is the per-request item limit
func NewFetcher(client cmsclient.Client, pageSize int) *Fetcher {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Fetcher{client: client, pageSize: pageSize}
}

// FetchCollections fetches all collections in parallel. Any failure fails
// the whole fetch so no partial snapshot is ever built.
func (f *Fetcher) FetchCollections(ctx context.Context) (catalog.Collections, error) {
	var out catalog.Collections
	targets := []struct {
		name string
		dest *[]catalog.Record
	}{
		{CollectionHospitals, &out.Hospitals},
		{CollectionBranches, &out.Branches},
		{CollectionDoctors, &out.Doctors},
		{CollectionTreatments, &out.Treatments},
		{CollectionSpecialists, &out.Specialists},
		{CollectionDepartments, &out.Departments},
		{CollectionCities, &out.Cities},
		{CollectionAccreditations, &out.Accreditations},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			records, err := f.FetchAll(gctx, target.name)
			if err != nil {
				return err
			}
			*target.dest = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return catalog.Collections{}, err
	}
	return out, nil
}

// FetchAll pages through one collection until the CMS reports no more items
func (f *Fetcher) FetchAll(ctx context.Context, collection string) ([]catalog.Record, error) {
	return f.FetchMatching(ctx, collection, nil)
}

// FetchMatching pages through the items of collection that match filter.
// A nil filter matches everything.
func (f *Fetcher) FetchMatching(ctx context.Context, collection string, filter cmsclient.Filter) ([]catalog.Record, error) {
	ctx, span := observability.StartSpan(ctx, "cms.FetchAll")
	defer span.End()

	start := time.Now()
	var records []catalog.Record
	var err error
	defer func() {
		observability.RecordCMSFetch(collection, len(records), time.Since(start), err)
		observability.RecordError(span, err)
	}()

	for page := 0; page < maxPages; page++ {
		var result *cmsclient.QueryResult
		result, err = f.client.Query(ctx, cmsclient.Query{
			Collection: collection,
			Filter:     filter,
			Sort:       []cmsclient.Sort{{FieldName: "_createdDate", Order: "ASC"}},
			Limit:      f.pageSize,
			Offset:     page * f.pageSize,
		})
		if err != nil {
			err = fmt.Errorf("failed to fetch %s: %w", collection, err)
			return nil, err
		}

		for _, item := range result.Items {
			records = append(records, itemRecord(item))
		}

		if !hasNext(result, f.pageSize) {
			observability.LoggerFromContext(ctx).Debug().
				Str("collection", collection).
				Int("records", len(records)).
				Dur("duration", time.Since(start)).
				Msg("Fetched CMS collection")
			return records, nil
		}
	}

	err = fmt.Errorf("failed to fetch %s: more than %d pages", collection, maxPages)
	return nil, err
}

// InsertItem stores a new item and returns its CMS id
func (f *Fetcher) InsertItem(ctx context.Context, collection string, data map[string]any) (string, error) {
	item, err := f.client.Insert(ctx, collection, data)
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

func hasNext(result *cmsclient.QueryResult, pageSize int) bool {
	if len(result.Items) == 0 {
		return false
	}
	if result.PagingMetadata != nil {
		return result.PagingMetadata.HasNext
	}
	return len(result.Items) >= pageSize
}

// itemRecord flattens an item into a record keyed like the CMS data fields
func itemRecord(item cmsclient.Item) catalog.Record {
	rec := make(catalog.Record, len(item.Data)+1)
	for k, v := range item.Data {
		rec[k] = v
	}
	if _, ok := rec["_id"]; !ok && item.ID != "" {
		rec["_id"] = item.ID
	}
	return rec
}
