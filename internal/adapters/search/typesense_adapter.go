package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/providers"
	"github.com/medtravel/directory/internal/domain/repositories"
	tsclient "github.com/medtravel/directory/internal/infrastructure/clients/typesense"
	"github.com/medtravel/directory/internal/infrastructure/observability"
)

// TypesenseAdapter indexes directory snapshots and serves free-text search
type TypesenseAdapter struct {
	client *tsclient.Client
}

var (
	_ repositories.DirectorySearchRepository = (*TypesenseAdapter)(nil)
	_ providers.SnapshotIndexer              = (*TypesenseAdapter)(nil)
)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// IndexSnapshot indexes the snapshot into a fresh collection and then points
// the directory alias at it. Searches keep hitting the previous collection
// until the new one is complete.
func (a *TypesenseAdapter) IndexSnapshot(ctx context.Context, data *entities.CMSData) error {
	ctx, span := observability.StartSpan(ctx, "typesense.IndexSnapshot")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	name := tsclient.SnapshotCollectionName(time.Now())
	if err := a.client.CreateCollection(ctx, name); err != nil {
		observability.RecordError(span, err)
		return err
	}
	discard := func() {
		if err := a.client.DropCollection(context.WithoutCancel(ctx), name); err != nil {
			logger.Warn().Err(err).Str("collection", name).Msg("Failed to drop unfinished collection")
		}
	}

	docs := SnapshotDocuments(data)
	if err := a.importDocuments(ctx, name, docs); err != nil {
		observability.RecordError(span, err)
		discard()
		return err
	}

	previous, err := a.client.PointAlias(ctx, name)
	if err != nil {
		observability.RecordError(span, err)
		discard()
		return err
	}
	if previous != "" && previous != name {
		if err := a.client.DropCollection(ctx, previous); err != nil {
			logger.Warn().Err(err).Str("collection", previous).Msg("Failed to drop previous collection")
		}
	}

	logger.Info().Int("documents", len(docs)).Str("collection", name).Msg("Indexed directory snapshot")
	return nil
}

func (a *TypesenseAdapter) importDocuments(ctx context.Context, collection string, docs []map[string]interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, len(docs))
	for i, doc := range docs {
		batch[i] = doc
	}
	responses, err := a.client.Client().Collection(collection).Documents().Import(ctx, batch, &api.ImportDocumentsParams{
		Action:    pointer.String("upsert"),
		BatchSize: pointer.Int(importBatchSize),
	})
	if err != nil {
		return fmt.Errorf("failed to import into %s: %w", collection, err)
	}
	return importFailures(responses)
}

const importBatchSize = 500

// importFailures turns per-document import results into one error
func importFailures(responses []*api.ImportDocumentResponse) error {
	failed := 0
	var first string
	for _, r := range responses {
		if r == nil || r.Success {
			continue
		}
		if failed == 0 {
			first = r.Error
		}
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to import: %s", failed, len(responses), first)
	}
	return nil
}

// Search runs a typo-tolerant query over names and subtitles
func (a *TypesenseAdapter) Search(ctx context.Context, query string, page, pageSize int) ([]entities.SearchHit, int, error) {
	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("name,subtitle,cities"),
		SortBy:  pointer.String("_text_match:desc,rank:asc"),
		Page:    pointer.Int(page + 1),
		PerPage: pointer.Int(pageSize),
	}

	result, err := a.client.Client().Collection(tsclient.DirectoryAlias).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search directory: %w", err)
	}

	hits := []entities.SearchHit{}
	if result.Hits != nil {
		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			hits = append(hits, hitFromDocument(*hit.Document))
		}
	}

	total := len(hits)
	if result.Found != nil {
		total = *result.Found
	}
	return hits, total, nil
}

// SnapshotDocuments converts a snapshot to index documents. rank preserves
// tree order so hospitals sort before branches, doctors and treatments.
func SnapshotDocuments(data *entities.CMSData) []map[string]interface{} {
	var docs []map[string]interface{}
	if data == nil {
		return docs
	}
	add := func(hit entities.SearchHit, cities []string) {
		docs = append(docs, map[string]interface{}{
			"id":            string(hit.Type) + "-" + hit.ID,
			"type":          string(hit.Type),
			"entity_id":     hit.ID,
			"name":          hit.Name,
			"subtitle":      hit.Subtitle,
			"hospital_id":   hit.HospitalID,
			"hospital_slug": hit.HospitalSlug,
			"image":         hit.Image,
			"cities":        cities,
			"rank":          len(docs),
		})
	}

	for _, h := range data.Hospitals {
		var cities []string
		for _, b := range h.Branches {
			cities = append(cities, cityNames(b.City)...)
		}
		add(entities.SearchHit{
			Type: entities.SearchHitHospital, ID: h.ID, Name: h.HospitalName,
			HospitalID: h.ID, HospitalSlug: h.Slug, Image: h.Logo,
		}, cities)
	}
	for _, h := range data.Hospitals {
		if h.IsStandalone {
			continue
		}
		for _, b := range h.Branches {
			names := cityNames(b.City)
			add(entities.SearchHit{
				Type: entities.SearchHitBranch, ID: b.ID, Name: b.BranchName,
				HospitalID: h.ID, HospitalSlug: h.Slug, Subtitle: strings.Join(names, ", "), Image: b.Image,
			}, names)
		}
	}
	for _, d := range data.Doctors {
		hit := entities.SearchHit{
			Type: entities.SearchHitDoctor, ID: d.ID, Name: d.DoctorName,
			Subtitle: specializationNames(d.Specialization), Image: d.ProfileImage,
		}
		var cities []string
		for i, l := range d.Locations {
			if i == 0 {
				hit.HospitalID, hit.HospitalSlug = l.HospitalID, l.HospitalSlug
			}
			cities = append(cities, cityNames(l.Cities)...)
		}
		add(hit, cities)
	}
	for _, t := range data.Treatments {
		var cities []string
		for _, l := range t.BranchesAvailableAt {
			cities = append(cities, cityNames(l.Cities)...)
		}
		add(entities.SearchHit{
			Type: entities.SearchHitTreatment, ID: t.ID, Name: t.Name, Subtitle: t.Cost, Image: t.Image,
		}, cities)
	}
	return docs
}

func hitFromDocument(doc map[string]interface{}) entities.SearchHit {
	str := func(key string) string {
		s, _ := doc[key].(string)
		return s
	}
	return entities.SearchHit{
		Type:         entities.SearchHitType(str("type")),
		ID:           str("entity_id"),
		Name:         str("name"),
		HospitalID:   str("hospital_id"),
		HospitalSlug: str("hospital_slug"),
		Subtitle:     str("subtitle"),
		Image:        str("image"),
	}
}

func cityNames(cities []entities.City) []string {
	names := []string{}
	for _, c := range cities {
		if c.CityName != "" {
			names = append(names, c.CityName)
		}
	}
	return names
}

func specializationNames(specs []entities.Specialization) string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}
