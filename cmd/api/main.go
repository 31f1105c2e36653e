package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medtravel/directory/internal/adapters/cache"
	cmsadapter "github.com/medtravel/directory/internal/adapters/cms"
	"github.com/medtravel/directory/internal/adapters/database"
	"github.com/medtravel/directory/internal/adapters/events"
	"github.com/medtravel/directory/internal/adapters/search"
	"github.com/medtravel/directory/internal/api/handlers"
	"github.com/medtravel/directory/internal/api/routes"
	"github.com/medtravel/directory/internal/application/services"
	"github.com/medtravel/directory/internal/domain/providers"
	"github.com/medtravel/directory/internal/domain/repositories"
	"github.com/medtravel/directory/internal/infrastructure/clients/cms"
	"github.com/medtravel/directory/internal/infrastructure/clients/postgres"
	"github.com/medtravel/directory/internal/infrastructure/clients/redis"
	"github.com/medtravel/directory/internal/infrastructure/clients/typesense"
	"github.com/medtravel/directory/internal/infrastructure/notifications"
	"github.com/medtravel/directory/internal/infrastructure/observability"
	"github.com/medtravel/directory/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env, cfg.Server.LogFormat)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	if cfg.CMS.APIKey == "" || cfg.CMS.SiteID == "" {
		log.Fatal().Msg("CMS_API_KEY and CMS_SITE_ID are required")
	}
	fetcher := cmsadapter.NewFetcher(cms.NewClient(&cfg.CMS), cfg.CMS.PageSize)

	// Redis backs the shared snapshot and the form rate limit; without it
	// both fall back to in-process state.
	var sharedCache providers.CacheProvider
	var eventBus *events.RedisEventBus
	var limiter providers.RateLimiter = cache.NewLocalRateLimiter(cfg.Server.SubmitRateLimit, cfg.Server.SubmitWindow)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-process cache")
		} else {
			defer redisClient.Close()
			sharedCache = cache.NewRedisAdapter(redisClient)
			limiter = cache.NewRedisRateLimiter(redisClient, "ratelimit:submit", cfg.Server.SubmitRateLimit, cfg.Server.SubmitWindow)
			eventBus = events.NewRedisEventBus(redisClient)
			defer eventBus.Close()
		}
	}

	directory := services.NewCMSDataService(fetcher, sharedCache, cfg.Cache).WithMetrics(metrics)

	// Peers drop their in-process snapshot when any instance revalidates.
	if eventBus != nil {
		directory.WithEventBus(eventBus)
		invalidation := services.NewCacheInvalidationService(directory, eventBus)
		if err := invalidation.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Cross-instance invalidation disabled")
		} else {
			defer invalidation.Stop()
		}
	}

	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, search will use the in-memory snapshot")
		} else {
			index := search.NewTypesenseAdapter(tsClient)
			directory.WithIndexer(index).WithSearchIndex(index)
		}
	}

	// Postgres holds the submission ledger and search analytics
	var ledger repositories.SubmissionRepository
	var analytics *services.SearchAnalyticsService
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			log.Warn().Err(err).Msg("Submission ledger unavailable")
		} else {
			defer pgClient.Close()
			ledger = database.NewSubmissionAdapter(pgClient)
			analytics = services.NewSearchAnalyticsService(database.NewSearchAnalyticsAdapter(pgClient))
			directory.WithSearchTracker(analytics)
		}
	}

	var sender providers.EmailSender
	if emailSender, err := notifications.NewEmailAPISender(&cfg.Email); err != nil {
		log.Warn().Err(err).Msg("Email notifications disabled")
	} else {
		sender = emailSender
	}

	submissions := services.NewSubmissionService(fetcher, ledger, sender, cfg.Email.From, cfg.Email.NotifyTo)

	router := routes.NewRouter(
		handlers.NewCMSHandler(directory, cfg.Server.RevalidateToken),
		handlers.NewHospitalsHandler(directory),
		handlers.NewSubmissionHandler(submissions, limiter),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	warmDone := services.NewCacheWarmingService(directory).StartPeriodicWarming(ctx, cfg.Cache.RefreshInterval)

	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.Server.Env).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()
	<-warmDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if analytics != nil {
		analytics.Wait()
	}
	directory.WaitIndexing()

	log.Info().Msg("Server exited")
}
