package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/medtravel/directory/internal/catalog"
	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/providers"
	"github.com/medtravel/directory/internal/domain/repositories"
	"github.com/medtravel/directory/internal/infrastructure/observability"
	"github.com/medtravel/directory/internal/search"
	"github.com/medtravel/directory/pkg/config"
	apperrors "github.com/medtravel/directory/pkg/errors"
)

// snapshotEntry is one cached aggregation and the moment it goes stale
type snapshotEntry struct {
	data      *entities.CMSData
	expiresAt time.Time
}

// CMSDataService owns the aggregated directory snapshot. Reads are served from
// an in-process entry, then the optional shared L2 cache, and only then from
// the CMS. Concurrent misses share a single rebuild.
type CMSDataService struct {
	source  providers.ContentSource
	l2      providers.CacheProvider
	indexer providers.SnapshotIndexer
	index   repositories.DirectorySearchRepository
	metrics *observability.Metrics
	bus     providers.EventBus
	origin  string
	tracker SearchTracker

	ttl        time.Duration
	version    string
	serveStale bool
	now        func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	entry *snapshotEntry

	// indexing state; pending holds the newest snapshot that arrived while
	// a reindex was running
	indexMu      sync.Mutex
	indexing     bool
	pending      *entities.CMSData
	indexWG      sync.WaitGroup
	indexCurrent atomic.Bool
}

const indexTimeout = 5 * time.Minute

// NewCMSDataService creates a new snapshot service. l2 may be nil.
func NewCMSDataService(source providers.ContentSource, l2 providers.CacheProvider, cfg config.CacheConfig) *CMSDataService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CMSDataService{
		source:     source,
		l2:         l2,
		ttl:        ttl,
		version:    cfg.Version,
		serveStale: cfg.ServeStaleOnError,
		now:        time.Now,
		origin:     uuid.NewString(),
	}
}

// WithIndexer pushes every rebuilt snapshot to indexer in the background.
// While a reindex runs, Search answers from the snapshot.
func (s *CMSDataService) WithIndexer(indexer providers.SnapshotIndexer) *CMSDataService {
	s.indexer = indexer
	return s
}

// WithSearchIndex answers Search from index, falling back to the snapshot
func (s *CMSDataService) WithSearchIndex(index repositories.DirectorySearchRepository) *CMSDataService {
	s.index = index
	return s
}

// WithMetrics enables OpenTelemetry cache metrics
func (s *CMSDataService) WithMetrics(m *observability.Metrics) *CMSDataService {
	s.metrics = m
	return s
}

// WithEventBus announces invalidations to the other instances on bus
func (s *CMSDataService) WithEventBus(bus providers.EventBus) *CMSDataService {
	s.bus = bus
	return s
}

// WithSearchTracker reports every answered search to tracker
func (s *CMSDataService) WithSearchTracker(tracker SearchTracker) *CMSDataService {
	s.tracker = tracker
	return s
}

// Origin identifies this instance on the event bus
func (s *CMSDataService) Origin() string {
	return s.origin
}

// Version is the cache version this instance reads and writes
func (s *CMSDataService) Version() string {
	return s.version
}

// CacheKey is the L2 key for the current cache version
func (s *CMSDataService) CacheKey() string {
	return fmt.Sprintf("cms:%s:all", s.version)
}

// GetAllCMSData returns the current snapshot, rebuilding it when expired.
// The returned value is shared and must not be mutated.
func (s *CMSDataService) GetAllCMSData(ctx context.Context) (*entities.CMSData, error) {
	if data, ok := s.fresh(); ok {
		observability.RecordSnapshotLookup("hit")
		observability.RecordCacheHit(ctx, s.metrics, "local")
		return data, nil
	}

	key := s.CacheKey()
	// The rebuild outlives any single caller so waiters are not failed by
	// whichever request happened to start it.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return s.onLoadError(ctx, res.Err)
		}
		return res.Val.(*entities.CMSData), nil
	}
}

// WarmCache builds the snapshot once so the first request does not pay for it
func (s *CMSDataService) WarmCache(ctx context.Context) error {
	start := s.now()
	data, err := s.GetAllCMSData(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Int("hospitals", data.TotalHospitals).
		Int("treatments", data.TotalTreatments).
		Int("doctors", data.TotalDoctors).
		Dur("duration", s.now().Sub(start)).
		Msg("Snapshot cache warmed")
	return nil
}

// Refresh rebuilds the snapshot from the CMS while the current entry keeps
// serving readers. It joins a rebuild already in flight.
func (s *CMSDataService) Refresh(ctx context.Context) error {
	ch := s.group.DoChan(s.CacheKey(), func() (interface{}, error) {
		return s.rebuild(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return apperrors.NewExternalError("failed to refresh CMS data", res.Err)
		}
		return nil
	}
}

// Invalidate drops the cached snapshot so the next read rebuilds it, then
// tells peer instances to drop theirs
func (s *CMSDataService) Invalidate(ctx context.Context) error {
	s.DropLocal()

	if s.l2 != nil {
		if err := s.l2.Delete(ctx, s.CacheKey()); err != nil {
			return apperrors.NewInternalError("failed to invalidate shared snapshot", err)
		}
	}
	if s.bus != nil {
		event := entities.NewSnapshotEvent(entities.SnapshotEventInvalidated, s.version, s.origin)
		if err := s.bus.Publish(ctx, providers.EventChannelSnapshot, event); err != nil {
			log.Warn().Err(err).Msg("Failed to announce snapshot invalidation")
		}
	}
	log.Info().Str("key", s.CacheKey()).Msg("Snapshot cache invalidated")
	return nil
}

// DropLocal clears only the in-process entry, including the stale copy
func (s *CMSDataService) DropLocal() {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()
	s.group.Forget(s.CacheKey())
}

// Search runs a free-text query. The search index is preferred; the in-memory
// snapshot answers when no index is configured or the index fails.
func (s *CMSDataService) Search(ctx context.Context, query string, p search.Pagination) ([]entities.SearchHit, int, error) {
	if query == "" {
		return []entities.SearchHit{}, 0, nil
	}

	start := s.now()
	if s.indexUsable() {
		hits, total, err := s.index.Search(ctx, query, p.Page, p.PageSize)
		if err == nil {
			if hits == nil {
				hits = []entities.SearchHit{}
			}
			s.track(ctx, query, entities.SearchSourceIndex, total, start)
			return hits, total, nil
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("query", query).
			Msg("Search index unavailable, falling back to snapshot search")
	}

	data, err := s.GetAllCMSData(ctx)
	if err != nil {
		return nil, 0, err
	}
	hits := search.SearchSnapshot(data, query)
	s.track(ctx, query, entities.SearchSourceSnapshot, len(hits), start)
	return search.PageOf(hits, p), len(hits), nil
}

func (s *CMSDataService) track(ctx context.Context, query string, source entities.SearchSource, results int, start time.Time) {
	if s.tracker != nil {
		s.tracker.TrackSearch(ctx, query, source, results, s.now().Sub(start))
	}
}

func (s *CMSDataService) fresh() (*entities.CMSData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil || !s.now().Before(s.entry.expiresAt) {
		return nil, false
	}
	return s.entry.data, true
}

func (s *CMSDataService) store(data *entities.CMSData, expiresAt time.Time) {
	s.mu.Lock()
	s.entry = &snapshotEntry{data: data, expiresAt: expiresAt}
	s.mu.Unlock()
}

// load runs inside the single flight
func (s *CMSDataService) load(ctx context.Context) (*entities.CMSData, error) {
	// Another flight may have finished between the caller's check and now.
	if data, ok := s.fresh(); ok {
		return data, nil
	}

	if data, ok := s.loadShared(ctx); ok {
		observability.RecordSnapshotLookup("l2_hit")
		observability.RecordCacheHit(ctx, s.metrics, "shared")
		return data, nil
	}

	observability.RecordSnapshotLookup("miss")
	observability.RecordCacheMiss(ctx, s.metrics)
	return s.rebuild(ctx)
}

func (s *CMSDataService) loadShared(ctx context.Context) (*entities.CMSData, bool) {
	if s.l2 == nil {
		return nil, false
	}
	raw, err := s.l2.Get(ctx, s.CacheKey())
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", s.CacheKey()).Msg("Shared snapshot cache read failed")
		}
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}

	var data entities.CMSData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Warn().Err(err).Str("key", s.CacheKey()).Msg("Discarding undecodable shared snapshot")
		return nil, false
	}

	expiresAt := data.LastUpdated.Add(s.ttl)
	if !s.now().Before(expiresAt) {
		return nil, false
	}
	s.store(&data, expiresAt)
	return &data, true
}

func (s *CMSDataService) rebuild(ctx context.Context) (*entities.CMSData, error) {
	ctx, span := observability.StartSpan(ctx, "cms.snapshot.rebuild")
	defer span.End()

	start := s.now()
	collections, err := s.source.FetchCollections(ctx)
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordSnapshotRebuild(ctx, s.metrics, "error")
		return nil, err
	}

	data, stats := catalog.Build(collections, s.now())
	duration := s.now().Sub(start)
	observability.RecordSnapshotBuild(duration, stats.TotalOrphans())
	observability.RecordSnapshotRebuild(ctx, s.metrics, "success")

	event := log.Info()
	if stats.TotalOrphans() > 0 {
		event = log.Warn().Interface("orphans", stats.Orphans)
	}
	event.
		Int("records", collections.Len()).
		Int("hospitals", data.TotalHospitals).
		Int("standalone", stats.Standalone).
		Int("duplicates", stats.Duplicates).
		Int("orphaned_refs", stats.TotalOrphans()).
		Dur("duration", duration).
		Msg("Snapshot rebuilt")

	s.store(data, s.now().Add(s.ttl))
	s.storeShared(ctx, data)

	s.scheduleIndex(data)
	return data, nil
}

// indexUsable reports whether Search may query the index. An index this
// service feeds is only trusted once a reindex has completed.
func (s *CMSDataService) indexUsable() bool {
	if s.index == nil {
		return false
	}
	return s.indexer == nil || s.indexCurrent.Load()
}

// scheduleIndex hands data to the indexer without blocking the rebuild.
// Snapshots arriving during a run collapse into one follow-up run.
func (s *CMSDataService) scheduleIndex(data *entities.CMSData) {
	if s.indexer == nil {
		return
	}
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.indexCurrent.Store(false)
	if s.indexing {
		s.pending = data
		return
	}
	s.indexing = true
	s.indexWG.Add(1)
	go s.runIndexer(data)
}

func (s *CMSDataService) runIndexer(data *entities.CMSData) {
	defer s.indexWG.Done()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		start := time.Now()
		err := s.indexer.IndexSnapshot(ctx, data)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to index snapshot")
		} else {
			log.Debug().Dur("duration", time.Since(start)).Msg("Snapshot indexed")
		}

		s.indexMu.Lock()
		if s.pending != nil {
			data, s.pending = s.pending, nil
			s.indexMu.Unlock()
			continue
		}
		s.indexing = false
		s.indexCurrent.Store(err == nil)
		s.indexMu.Unlock()
		return
	}
}

// WaitIndexing blocks until background indexing has finished
func (s *CMSDataService) WaitIndexing() {
	s.indexWG.Wait()
}

func (s *CMSDataService) storeShared(ctx context.Context, data *entities.CMSData) {
	if s.l2 == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode snapshot for shared cache")
		return
	}
	if err := s.l2.Set(ctx, s.CacheKey(), raw, int(s.ttl.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", s.CacheKey()).Msg("Failed to write shared snapshot")
	}
}

func (s *CMSDataService) onLoadError(ctx context.Context, err error) (*entities.CMSData, error) {
	if s.serveStale {
		s.mu.RLock()
		entry := s.entry
		s.mu.RUnlock()
		if entry != nil {
			observability.RecordSnapshotLookup("stale")
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Time("last_updated", entry.data.LastUpdated).
				Msg("CMS fetch failed, serving stale snapshot")
			return entry.data, nil
		}
	}
	observability.RecordSnapshotLookup("error")
	return nil, apperrors.NewExternalError("failed to fetch CMS data", err)
}
