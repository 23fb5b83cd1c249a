package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/qrmenu/backend/internal/config"
	"github.com/qrmenu/backend/internal/identity"
	monitorInfra "github.com/qrmenu/backend/internal/infrastructure/monitor"
	pgInfra "github.com/qrmenu/backend/internal/infrastructure/postgres"
	redisInfra "github.com/qrmenu/backend/internal/infrastructure/redis"
	"github.com/qrmenu/backend/internal/services"
	"github.com/qrmenu/backend/internal/services/lifecycle"
	"github.com/qrmenu/backend/pkg/logger"
	"github.com/qrmenu/backend/repository"
	"github.com/qrmenu/backend/repository/postgres"
	redisRepo "github.com/qrmenu/backend/repository/redis"
	ledgerUC "github.com/qrmenu/backend/usecase/ledger"
	snapshotUC "github.com/qrmenu/backend/usecase/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	// The cache is an optimization for immutable snapshot reads; the core
	// runs fine without Redis.
	var snapshotCache repository.SnapshotCache
	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
	} else {
		snapshotCache = redisRepo.NewSnapshotCache(redisClient, cfg.Snapshot.CacheTTL, cfg.Snapshot.CurrentCacheTTL)
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	mon := monitorInfra.New(pool, redisClient, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	ledgerRepo := postgres.NewPriceLedgerRepository(pool)
	snapshotRepo := postgres.NewSnapshotRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	ledgerService := ledgerUC.New(ledgerRepo, catalogRepo, identity.ContextResolver(), zapLogger)
	snapshotService := snapshotUC.New(snapshotRepo, catalogRepo, ledgerService, snapshotCache, zapLogger)

	// The web/CRUD layer embeds the services; this binary hosts the
	// periodic snapshot publisher.
	if cfg.Snapshot.ScheduleEnabled {
		scheduler := services.NewSnapshotScheduler(
			snapshotService,
			catalogRepo,
			mon,
			zapLogger,
			services.SchedulerConfig{
				Schedule:   cfg.Snapshot.Schedule,
				RunTimeout: cfg.Snapshot.RunTimeout,
			},
		)
		scheduler.Start()
		manager.Register("snapshot_scheduler", func(ctx context.Context) error {
			scheduler.Stop(ctx)
			return nil
		})
	}

	zapLogger.Info("menu audit core started", zap.String("environment", cfg.Environment))

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
