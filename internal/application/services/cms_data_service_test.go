package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtravel/directory/internal/adapters/cache"
	"github.com/medtravel/directory/internal/catalog"
	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/search"
	"github.com/medtravel/directory/pkg/config"
	apperrors "github.com/medtravel/directory/pkg/errors"
)

type fakeSource struct {
	calls   atomic.Int32
	release chan struct{}
	mu      sync.Mutex
	err     error
}

func (f *fakeSource) FetchCollections(ctx context.Context) (catalog.Collections, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return catalog.Collections{}, err
	}
	return catalog.Collections{
		Cities: []catalog.Record{{"_id": "c1", "cityName": "Delhi", "state": "Delhi"}},
		Hospitals: []catalog.Record{
			{"_id": "h1", "hospitalName": "Apollo Hospitals", "branches": []any{"b1"}},
		},
		Branches: []catalog.Record{
			{"_id": "b1", "branchName": "Apollo Delhi", "city": []any{"c1"}},
		},
	}, nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeIndexer struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func (f *fakeIndexer) IndexSnapshot(ctx context.Context, data *entities.CMSData) error {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.err
}

type fakeSearchIndex struct {
	hits  []entities.SearchHit
	total int
	err   error
}

func (f *fakeSearchIndex) Search(ctx context.Context, query string, page, pageSize int) ([]entities.SearchHit, int, error) {
	return f.hits, f.total, f.err
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestService(source *fakeSource, l2 *cache.MemoryCache, serveStale bool) (*CMSDataService, *testClock) {
	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	cfg := config.CacheConfig{TTL: 10 * time.Minute, Version: "v3", ServeStaleOnError: serveStale}
	var svc *CMSDataService
	if l2 != nil {
		svc = NewCMSDataService(source, l2, cfg)
	} else {
		svc = NewCMSDataService(source, nil, cfg)
	}
	svc.now = clock.Now
	return svc, clock
}

func TestCMSDataService_CachesWithinTTL(t *testing.T) {
	source := &fakeSource{}
	svc, clock := newTestService(source, nil, false)
	ctx := context.Background()

	first, err := svc.GetAllCMSData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalHospitals)

	clock.Advance(9 * time.Minute)
	second, err := svc.GetAllCMSData(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), source.calls.Load())

	clock.Advance(2 * time.Minute)
	third, err := svc.GetAllCMSData(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestCMSDataService_ConcurrentMissesShareOneFetch(t *testing.T) {
	source := &fakeSource{release: make(chan struct{})}
	svc, _ := newTestService(source, nil, false)

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*entities.CMSData, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetAllCMSData(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()

	assert.Equal(t, int32(1), source.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestCMSDataService_CallerCancelDoesNotAbortRebuild(t *testing.T) {
	source := &fakeSource{release: make(chan struct{})}
	svc, _ := newTestService(source, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.GetAllCMSData(ctx)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(source.release)
	require.Eventually(t, func() bool {
		_, ok := svc.fresh()
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestCMSDataService_FetchErrorPropagates(t *testing.T) {
	source := &fakeSource{}
	source.fail(errors.New("cms unreachable"))
	svc, _ := newTestService(source, nil, false)

	data, err := svc.GetAllCMSData(context.Background())
	assert.Nil(t, data)
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeExternal, appErr.Type)
	assert.Contains(t, appErr.Details(), "cms unreachable")
}

func TestCMSDataService_StaleOnError(t *testing.T) {
	tests := []struct {
		name       string
		serveStale bool
		expectErr  bool
	}{
		{"propagates by default", false, true},
		{"serves last good snapshot when enabled", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{}
			svc, clock := newTestService(source, nil, tt.serveStale)
			ctx := context.Background()

			good, err := svc.GetAllCMSData(ctx)
			require.NoError(t, err)

			clock.Advance(11 * time.Minute)
			source.fail(errors.New("boom"))

			data, err := svc.GetAllCMSData(ctx)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, data)
				return
			}
			require.NoError(t, err)
			assert.Same(t, good, data)
		})
	}
}

func TestCMSDataService_SharedCache(t *testing.T) {
	t.Run("rebuild writes through", func(t *testing.T) {
		l2 := cache.NewMemoryCache()
		svc, _ := newTestService(&fakeSource{}, l2, false)

		_, err := svc.GetAllCMSData(context.Background())
		require.NoError(t, err)

		exists, err := l2.Exists(context.Background(), "cms:v3:all")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("fresh shared entry skips the CMS", func(t *testing.T) {
		l2 := cache.NewMemoryCache()
		source := &fakeSource{}
		svc, clock := newTestService(source, l2, false)

		raw, err := json.Marshal(&entities.CMSData{
			Hospitals:      []entities.Hospital{{ID: "h9", HospitalName: "Shared"}},
			TotalHospitals: 1,
			LastUpdated:    clock.Now().Add(-time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, l2.Set(context.Background(), svc.CacheKey(), raw, 600))

		data, err := svc.GetAllCMSData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "h9", data.Hospitals[0].ID)
		assert.Equal(t, int32(0), source.calls.Load())
	})

	t.Run("expired shared entry is ignored", func(t *testing.T) {
		l2 := cache.NewMemoryCache()
		source := &fakeSource{}
		svc, clock := newTestService(source, l2, false)

		raw, err := json.Marshal(&entities.CMSData{LastUpdated: clock.Now().Add(-time.Hour)})
		require.NoError(t, err)
		require.NoError(t, l2.Set(context.Background(), svc.CacheKey(), raw, 600))

		_, err = svc.GetAllCMSData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(1), source.calls.Load())
	})
}

func TestCMSDataService_Invalidate(t *testing.T) {
	l2 := cache.NewMemoryCache()
	source := &fakeSource{}
	svc, _ := newTestService(source, l2, false)
	ctx := context.Background()

	_, err := svc.GetAllCMSData(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))

	exists, _ := l2.Exists(ctx, svc.CacheKey())
	assert.False(t, exists)

	_, err = svc.GetAllCMSData(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestCMSDataService_IndexerFailureIsNonFatal(t *testing.T) {
	indexer := &fakeIndexer{err: errors.New("typesense down")}
	svc, _ := newTestService(&fakeSource{}, nil, false)
	svc.WithIndexer(indexer)

	data, err := svc.GetAllCMSData(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, data)
	svc.WaitIndexing()
	assert.Equal(t, int32(1), indexer.calls.Load())
	assert.False(t, svc.indexUsable())
}

func TestCMSDataService_IndexingDoesNotBlockReads(t *testing.T) {
	indexer := &fakeIndexer{started: make(chan struct{}, 1), release: make(chan struct{})}
	index := &fakeSearchIndex{
		hits:  []entities.SearchHit{{Type: entities.SearchHitHospital, ID: "h1", Name: "Apollo"}},
		total: 42,
	}
	svc, _ := newTestService(&fakeSource{}, nil, false)
	svc.WithIndexer(indexer).WithSearchIndex(index)
	ctx := context.Background()
	p := search.NewPagination(0, 10)

	done := make(chan error, 1)
	go func() {
		_, err := svc.GetAllCMSData(ctx)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("GetAllCMSData waited for the indexer")
	}
	<-indexer.started

	// The index is being rebuilt, so the snapshot answers.
	hits, total, err := svc.Search(ctx, "apollo", p)
	require.NoError(t, err)
	assert.Equal(t, len(hits), total)
	assert.NotEqual(t, 42, total)

	close(indexer.release)
	svc.WaitIndexing()

	_, total, err = svc.Search(ctx, "apollo", p)
	require.NoError(t, err)
	assert.Equal(t, 42, total)
}

func TestCMSDataService_RebuildsDuringIndexingCollapse(t *testing.T) {
	indexer := &fakeIndexer{started: make(chan struct{}, 3), release: make(chan struct{})}
	svc, _ := newTestService(&fakeSource{}, nil, false)
	svc.WithIndexer(indexer)
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx))
	<-indexer.started
	require.NoError(t, svc.Refresh(ctx))
	require.NoError(t, svc.Refresh(ctx))

	close(indexer.release)
	svc.WaitIndexing()
	assert.Equal(t, int32(2), indexer.calls.Load())
}

func TestCMSDataService_Search(t *testing.T) {
	ctx := context.Background()
	p := search.NewPagination(0, 10)

	t.Run("empty query", func(t *testing.T) {
		svc, _ := newTestService(&fakeSource{}, nil, false)
		hits, total, err := svc.Search(ctx, "", p)
		require.NoError(t, err)
		assert.Empty(t, hits)
		assert.Zero(t, total)
	})

	t.Run("index answers", func(t *testing.T) {
		source := &fakeSource{}
		svc, _ := newTestService(source, nil, false)
		svc.WithSearchIndex(&fakeSearchIndex{
			hits:  []entities.SearchHit{{Type: entities.SearchHitHospital, ID: "h1", Name: "Apollo"}},
			total: 7,
		})

		hits, total, err := svc.Search(ctx, "apollo", p)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
		assert.Equal(t, 7, total)
		assert.Equal(t, int32(0), source.calls.Load())
	})

	t.Run("falls back to snapshot when index fails", func(t *testing.T) {
		svc, _ := newTestService(&fakeSource{}, nil, false)
		svc.WithSearchIndex(&fakeSearchIndex{err: errors.New("unavailable")})

		hits, total, err := svc.Search(ctx, "apollo", p)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, len(hits), total)
		assert.Equal(t, entities.SearchHitHospital, hits[0].Type)
		assert.Equal(t, "h1", hits[0].ID)
	})
}
