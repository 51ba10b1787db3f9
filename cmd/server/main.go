package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	backfillapp "github.com/sssync/backend/internal/application/backfill"
	syncapp "github.com/sssync/backend/internal/application/sync"
	"github.com/sssync/backend/internal/domain/backfill"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/shared"
	domainsync "github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/infrastructure/cache"
	"github.com/sssync/backend/internal/infrastructure/config"
	"github.com/sssync/backend/internal/infrastructure/event"
	"github.com/sssync/backend/internal/infrastructure/logger"
	"github.com/sssync/backend/internal/infrastructure/persistence"
	"github.com/sssync/backend/internal/infrastructure/queue"
	"github.com/sssync/backend/internal/infrastructure/telemetry"
	"github.com/sssync/backend/internal/interfaces/http/handler"
	"github.com/sssync/backend/internal/interfaces/http/middleware"
	"github.com/sssync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const lightDrainInterval = 250 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting sssync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(rootCtx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Error("Failed to register database tracing", zap.Error(err))
	}

	idempotency := newIdempotencyStore(cfg, log)
	defer func() {
		_ = idempotency.Close()
	}()

	// Repositories
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)
	mappingRepo := persistence.NewGormProductMappingRepository(db.DB)
	conflictEventRepo := persistence.NewGormConflictEventRepository(db.DB)
	conflictRuleRepo := persistence.NewGormConflictRuleRepository(db.DB)
	dispatchJobRepo := persistence.NewGormDispatchJobRepository(db.DB)
	backfillJobRepo := persistence.NewGormBackfillJobRepository(db.DB)
	backfillItemRepo := persistence.NewGormBackfillItemRepository(db.DB)
	recorder := persistence.NewGormActivityRecorder(db.DB, log)

	// Domain services
	behaviors := platform.NewBehaviorRegistry(behaviorOverrides(cfg, log))

	// Platform API clients are injected here once their packages are wired;
	// an empty registry means test-connectivity and pushes report
	// ErrAdapterNotRegistered.
	adapters := domainsync.NewStaticAdapterRegistry()

	syncRouter := syncapp.NewSyncRouter()
	resolver := syncapp.NewConflictResolver(conflictRuleRepo, behaviors, conflictEventRepo, log)

	// Dispatch: two queue backends behind the adaptive dispatcher, one
	// executor fanning out by envelope kind
	pushExecutor := syncapp.NewPushExecutor(connectionRepo, adapters, log)
	backfillExecutor := backfillapp.NewExecutor(backfillJobRepo, backfillItemRepo, nil, log)
	execute := func(ctx context.Context, env domainsync.DispatchEnvelope) error {
		switch env.Kind {
		case domainsync.DispatchKindPropagation:
			return pushExecutor.Execute(ctx, env.Payload)
		case domainsync.DispatchKindBackfill:
			return backfillExecutor.Execute(ctx, env.Payload)
		default:
			log.Warn("unknown dispatch kind, dropping envelope", zap.String("kind", env.Kind))
			return nil
		}
	}

	lightQueue := queue.NewLightQueue(log)
	durableQueue := queue.NewDurableQueue(dispatchJobRepo, execute, queue.DurableQueueConfig{
		Workers:          cfg.Dispatcher.Workers,
		BatchSize:        cfg.Dispatcher.BatchSize,
		PollInterval:     cfg.Dispatcher.PollInterval,
		CleanupEnabled:   cfg.Dispatcher.CleanupEnabled,
		CleanupRetention: cfg.Dispatcher.CleanupRetention,
		CleanupInterval:  cfg.Dispatcher.CleanupInterval,
	}, log)
	dispatcher := queue.NewAdaptiveDispatcher(lightQueue, durableQueue, queue.DispatcherConfig{
		RateThreshold:   cfg.Dispatcher.RateThreshold,
		WindowThreshold: cfg.Dispatcher.WindowThreshold,
		WindowSpan:      cfg.Dispatcher.WindowSpan,
		RecentSpan:      cfg.Dispatcher.RecentSpan,
	}, log)

	if err := durableQueue.Start(rootCtx); err != nil {
		log.Fatal("Failed to start durable queue", zap.Error(err))
	}

	go drainLightQueue(rootCtx, lightQueue, execute)

	// Event bus with the propagation subscriber
	bus := event.NewInMemoryEventBus(log)
	propagation := syncapp.NewPropagationHandler(connectionRepo, mappingRepo, syncRouter, resolver, dispatcher, recorder, log)
	bus.Subscribe(propagation, propagation.EventTypes()...)
	if err := bus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	management := syncapp.NewManagementService(connectionRepo, adapters, recorder, log)
	planner := backfillapp.NewPlanner(
		connectionRepo, mappingRepo, backfillJobRepo, backfillItemRepo,
		dispatcher, behaviors, recorder, plannerConfig(cfg), log,
	)

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.BodySizeLimit(cfg.HTTP.MaxBodySize),
		logger.GinMiddleware(log),
	)

	router.NewRouter(engine).
		Register(handler.NewWebhookHandler(bus, idempotency, cfg.Conflict.IdempotencyTTL, log)).
		Register(handler.NewSyncHandler(management, log)).
		Register(handler.NewConflictHandler(conflictEventRepo, log)).
		Register(handler.NewBackfillHandler(planner, log)).
		Setup()

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	case <-rootCtx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus shutdown failed", zap.Error(err))
	}
	if err := durableQueue.Stop(shutdownCtx); err != nil {
		log.Error("Durable queue shutdown failed", zap.Error(err))
	}

	// Whatever is still in the light queue is best-effort before exit
	if drained := lightQueue.Drain(shutdownCtx, execute); drained > 0 {
		log.Info("Drained light queue on shutdown", zap.Int("processed", drained))
	}

	log.Info("Shutdown complete")
}

// drainLightQueue runs the light backend's pop-and-run loop until the
// process context ends
func drainLightQueue(ctx context.Context, q *queue.LightQueue, run queue.Executor) {
	ticker := time.NewTicker(lightDrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Drain(ctx, run)
		}
	}
}

// newIdempotencyStore connects the redis store, falling back to the
// in-memory one when redis is unreachable. Dedupe degrades to process-local
// in the fallback; webhook handling stays correct, only cross-instance
// dedupe is lost.
func newIdempotencyStore(cfg *config.Config, log *zap.Logger) shared.IdempotencyStore {
	store, err := cache.NewRedisIdempotencyStore(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency store",
			zap.String("host", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)),
			zap.Error(err),
		)
		return cache.NewInMemoryIdempotencyStore()
	}
	log.Info("Redis idempotency store connected")
	return store
}

// behaviorOverrides converts the configured platform overrides into
// behavior rules, dropping entries with an invalid inventory behavior
func behaviorOverrides(cfg *config.Config, log *zap.Logger) map[platform.Type]platform.BehaviorRule {
	overrides := make(map[platform.Type]platform.BehaviorRule, len(cfg.Platforms.Overrides))
	for name, o := range cfg.Platforms.Overrides {
		behavior := platform.InventoryBehavior(o.InventoryBehavior)
		if !behavior.IsValid() {
			log.Warn("Ignoring platform override with invalid inventory behavior",
				zap.String("platform", name),
				zap.String("inventory_behavior", o.InventoryBehavior),
			)
			continue
		}
		overrides[platform.Type(name)] = platform.BehaviorRule{
			InventoryBehavior:     behavior,
			DelistThreshold:       o.DelistThreshold,
			SupportsInventorySync: o.SupportsInventorySync,
			SupportsPricingSync:   o.SupportsPricingSync,
			SupportsMetadataSync:  o.SupportsMetadataSync,
			ListingRequiresImages: o.ListingRequiresImages,
		}
	}
	return overrides
}

// plannerConfig builds the backfill cost model from configuration
func plannerConfig(cfg *config.Config) backfillapp.PlannerConfig {
	return backfillapp.PlannerConfig{
		UnitCosts: map[backfill.DataType]decimal.Decimal{
			backfill.DataTypePhotos:       decimal.NewFromFloat(cfg.Backfill.PhotoUnitCost),
			backfill.DataTypeDescriptions: decimal.NewFromFloat(cfg.Backfill.DescriptionUnitCost),
			backfill.DataTypeBarcodes:     decimal.NewFromFloat(cfg.Backfill.BarcodeUnitCost),
			backfill.DataTypePricing:      decimal.NewFromFloat(cfg.Backfill.PricingUnitCost),
		},
		BatchSize: cfg.Backfill.BatchSize,
	}
}
