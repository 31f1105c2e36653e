package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SnapshotRefresher rebuilds the directory snapshot on demand
type SnapshotRefresher interface {
	WarmCache(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// CacheWarmingService keeps the snapshot warm so readers rarely wait on a
// rebuild. Refreshes replace the entry in place; a failed refresh leaves the
// previous snapshot serving until its TTL runs out.
type CacheWarmingService struct {
	directory SnapshotRefresher
	timeout   time.Duration
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(directory SnapshotRefresher) *CacheWarmingService {
	return &CacheWarmingService{
		directory: directory,
		timeout:   2 * time.Minute,
	}
}

// StartPeriodicWarming warms once, then refreshes every interval until ctx
// is done. The returned channel closes when the loop exits.
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		warmCtx, cancel := context.WithTimeout(ctx, s.timeout)
		if err := s.directory.WarmCache(warmCtx); err != nil {
			log.Warn().Err(err).Msg("Initial snapshot warm-up failed")
		}
		cancel()

		if interval <= 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Info().Dur("interval", interval).Msg("Started periodic snapshot refresh")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping snapshot refresh")
				return
			case <-ticker.C:
				s.refresh(ctx)
			}
		}
	}()

	return done
}

func (s *CacheWarmingService) refresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.directory.Refresh(refreshCtx); err != nil {
		log.Warn().Err(err).Msg("Periodic snapshot refresh failed")
		return
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Snapshot refreshed")
}
