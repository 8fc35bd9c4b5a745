// Package app assembles the recommendation service and its optional host components from
// configuration. Both the HTTP server and the MCP server start from here.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/internal/api"
	"github.com/preventive-care-server/internal/cache"
	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/confirmation"
	"github.com/preventive-care-server/internal/database"
	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/metrics"
	"github.com/preventive-care-server/internal/repository"
	"github.com/preventive-care-server/internal/service"
)

// App holds the wired components. Close releases them in reverse order of creation.
type App struct {
	Config        *domain.Config
	Logger        *logrus.Logger
	Catalog       *catalog.Catalog
	Metrics       *metrics.Metrics
	Service       *service.RecommendationService
	Bridge        *service.SchedulingBridge
	Confirmations confirmation.Store

	cache  domain.ChecklistCache
	db     *database.DB
	checks map[string]api.HealthCheck
}

// Build wires every component the configuration enables.
func Build(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		checks:  make(map[string]api.HealthCheck),
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("loading guideline catalog: %w", err)
	}
	a.Catalog = cat
	logger.WithFields(logrus.Fields{
		"catalog_version": cat.Version,
		"rules":           len(cat.Rules),
	}).Info("Guideline catalog loaded")

	opts := service.ServiceOptions{
		CacheTTL: cfg.Cache.DefaultTTL,
		Metrics:  a.Metrics,
	}

	if cfg.Cache.Enabled {
		a.cache = cache.New(cfg.Cache, logger)
		opts.Cache = a.cache
	}

	store, err := confirmation.NewStore(cfg.Confirmations)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening confirmation store: %w", err)
	}
	if store != nil {
		a.Confirmations = store
		opts.Confirmations = store
		a.checks["confirmations"] = func(ctx context.Context) error {
			_, err := store.Count(ctx)
			return err
		}
		logger.WithField("driver", cfg.Confirmations.Driver).Info("Recency confirmation store opened")
	}

	if cfg.Database.Enabled {
		snapshots, err := a.openSnapshots(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts.Snapshots = snapshots
	}

	svc, err := service.NewRecommendationService(logger, cat, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc
	a.Bridge = service.NewSchedulingBridge(cfg.Scheduling.Locations)

	return a, nil
}

func (a *App) openSnapshots(ctx context.Context) (domain.SnapshotRepository, error) {
	dbConfig := database.ConfigFrom(a.Config.Database)

	runner, err := database.NewMigrationRunner(dbConfig.URL(), a.Config.Database.MigrationsPath, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("preparing migrations: %w", err)
	}
	defer runner.Close()
	if err := runner.Up(ctx); err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, dbConfig, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to snapshot database: %w", err)
	}
	a.db = db
	a.checks["database"] = db.Health

	return repository.NewSnapshotRepository(db.Pool, a.Logger), nil
}

// APIDependencies returns what the HTTP server needs.
func (a *App) APIDependencies() api.Dependencies {
	return api.Dependencies{
		Service: a.Service,
		Bridge:  a.Bridge,
		Metrics: a.Metrics,
		Logger:  a.Logger,
		Checks:  a.checks,
	}
}

// Close releases the database pool, the confirmation store and the cache.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.Confirmations != nil {
		if err := a.Confirmations.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close confirmation store")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close checklist cache")
		}
	}
}
