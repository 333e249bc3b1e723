package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/cra-planner/internal/cache"
	"github.com/andresuchdata/cra-planner/internal/config"
	"github.com/andresuchdata/cra-planner/internal/drive"
	"github.com/andresuchdata/cra-planner/internal/metrics"
	"github.com/andresuchdata/cra-planner/internal/report"
	"github.com/andresuchdata/cra-planner/internal/repository"
	"github.com/andresuchdata/cra-planner/internal/repository/postgres"
	"github.com/andresuchdata/cra-planner/internal/storage"
)

// NewFromConfig assembles a PlanningService from configuration. The returned
// close function releases the database pool, if one was opened.
func NewFromConfig(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*PlanningService, func(), error) {
	closeFn := func() {}

	var store drive.DocumentStore
	if cfg.Drive.LocalDir != "" {
		log.Info().Str("dir", cfg.Drive.LocalDir).Msg("reading documents from local directory")
		store = drive.NewDirStore(cfg.Drive.LocalDir)
	} else {
		srv, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			return nil, closeFn, fmt.Errorf("failed to initialize google drive: %w", err)
		}
		store = srv
	}

	inventoryCache, err := cache.NewInventoryCache(cfg.Cache)
	if err != nil {
		return nil, closeFn, fmt.Errorf("failed to initialize inventory cache: %w", err)
	}

	var runs repository.RunRepository = repository.NewMemoryRunRepository(0)
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close database")
			}
		}
		runs = postgres.NewRunRepository(db)
	}

	archive, err := storage.New(cfg.Storage)
	if err != nil {
		closeFn()
		return nil, func() {}, fmt.Errorf("failed to initialize report archive: %w", err)
	}

	svc := NewPlanningService(cfg, Deps{
		Store:    store,
		Cache:    inventoryCache,
		Runs:     runs,
		Renderer: report.NewXLSXRenderer(),
		Archive:  archive,
		Metrics:  metrics.New(reg),
	})
	return svc, closeFn, nil
}
