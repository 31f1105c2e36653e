package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/providers"
	"github.com/medtravel/directory/pkg/config"
)

// memoryBus delivers published events to subscribers in-process
type memoryBus struct {
	mu          sync.Mutex
	subscribers []chan *entities.SnapshotEvent
	published   []*entities.SnapshotEvent
}

func (b *memoryBus) Publish(ctx context.Context, channel string, event *entities.SnapshotEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
	for _, ch := range b.subscribers {
		ch <- event
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SnapshotEvent, error) {
	ch := make(chan *entities.SnapshotEvent, 10)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s == ch {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}()
	return ch, nil
}

func (b *memoryBus) Close() error { return nil }

func (b *memoryBus) publishedEvents() []*entities.SnapshotEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*entities.SnapshotEvent(nil), b.published...)
}

var _ providers.EventBus = (*memoryBus)(nil)

func TestCacheInvalidation_PeerInvalidateDropsLocalSnapshot(t *testing.T) {
	ctx := context.Background()
	bus := &memoryBus{}
	cfg := config.CacheConfig{TTL: time.Hour, Version: "v1"}

	sourceA, sourceB := &fakeSource{}, &fakeSource{}
	instanceA := NewCMSDataService(sourceA, nil, cfg).WithEventBus(bus)
	instanceB := NewCMSDataService(sourceB, nil, cfg).WithEventBus(bus)

	listenerA := NewCacheInvalidationService(instanceA, bus)
	listenerB := NewCacheInvalidationService(instanceB, bus)
	require.NoError(t, listenerA.Start(ctx))
	require.NoError(t, listenerB.Start(ctx))

	_, err := instanceA.GetAllCMSData(ctx)
	require.NoError(t, err)
	_, err = instanceB.GetAllCMSData(ctx)
	require.NoError(t, err)

	require.NoError(t, instanceA.Invalidate(ctx))
	require.Len(t, bus.publishedEvents(), 1)
	assert.Equal(t, instanceA.Origin(), bus.publishedEvents()[0].Origin)

	assert.Eventually(t, func() bool {
		_, ok := instanceB.fresh()
		return !ok
	}, time.Second, 10*time.Millisecond)

	_, err = instanceB.GetAllCMSData(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), sourceB.calls.Load())

	// Stop waits for the event loop, so both listeners are idle afterwards.
	listenerA.Stop()
	listenerB.Stop()
	listenerB.Stop()
}

func TestCacheInvalidation_IgnoresOwnAndForeignVersionEvents(t *testing.T) {
	service := NewCMSDataService(&fakeSource{}, nil, config.CacheConfig{TTL: time.Hour, Version: "v2"})
	_, err := service.GetAllCMSData(context.Background())
	require.NoError(t, err)

	listener := NewCacheInvalidationService(service, &memoryBus{})
	listener.handleEvent(entities.NewSnapshotEvent(entities.SnapshotEventInvalidated, "v2", service.Origin()))
	listener.handleEvent(entities.NewSnapshotEvent(entities.SnapshotEventInvalidated, "v1", "peer"))
	listener.handleEvent(nil)

	_, ok := service.fresh()
	assert.True(t, ok)

	listener.handleEvent(entities.NewSnapshotEvent(entities.SnapshotEventInvalidated, "v2", "peer"))
	_, ok = service.fresh()
	assert.False(t, ok)
}
