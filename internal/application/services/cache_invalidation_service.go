package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/providers"
)

// LocalSnapshot is the in-process cache a peer's invalidation must clear
type LocalSnapshot interface {
	DropLocal()
	Origin() string
	Version() string
}

// CacheInvalidationService drops this instance's snapshot when another
// instance revalidates. The shared cache entry is already gone by then, so
// the next read rebuilds or picks up the peer's fresh snapshot.
type CacheInvalidationService struct {
	snapshot LocalSnapshot
	eventBus providers.EventBus
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(snapshot LocalSnapshot, eventBus providers.EventBus) *CacheInvalidationService {
	return &CacheInvalidationService{
		snapshot: snapshot,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
}

// Start begins listening for snapshot events
func (s *CacheInvalidationService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	eventChan, err := s.eventBus.Subscribe(ctx, providers.EventChannelSnapshot)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to snapshot events: %w", err)
	}
	s.cancel = cancel

	go s.processEvents(eventChan)
	log.Info().Str("origin", s.snapshot.Origin()).Msg("Cache invalidation listener started")
	return nil
}

// Stop stops listening and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.once.Do(func() {
		if s.cancel == nil {
			close(s.done)
			return
		}
		s.cancel()
		<-s.done
		log.Info().Msg("Cache invalidation listener stopped")
	})
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.SnapshotEvent) {
	defer close(s.done)
	for event := range eventChan {
		s.handleEvent(event)
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.SnapshotEvent) {
	if event == nil || event.Type != entities.SnapshotEventInvalidated {
		return
	}
	// Our own invalidation already cleared the entry. Other versions use a
	// different cache key and are not ours to drop.
	if event.Origin == s.snapshot.Origin() || event.Version != s.snapshot.Version() {
		return
	}
	s.snapshot.DropLocal()
	log.Info().
		Str("event_id", event.ID).
		Str("origin", event.Origin).
		Msg("Dropped local snapshot after peer invalidation")
}
