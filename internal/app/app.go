// Package app wires configuration, the catalog database, the object store and the
// upstream client into the ingestion and catalog services. Both binaries start here.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/config"
	"sgxfeed/internal/database"
	"sgxfeed/internal/database/migration"
	"sgxfeed/internal/model"
	"sgxfeed/internal/repository"
	"sgxfeed/internal/repository/postgres"
	"sgxfeed/internal/repository/sqlite"
	"sgxfeed/internal/service"
	"sgxfeed/internal/source"
	"sgxfeed/internal/storage"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config   *config.AppConfig
	Logger   *slog.Logger
	Calendar calendar.Calendar
	Specs    []model.FileSpec
	DB       *sql.DB
	Repo     repository.VersionRepository
	Store    storage.Storage
	Source   *source.Client
	Registry *prometheus.Registry
	Metrics  *service.Metrics
	Ingest   service.IngestionService
	Catalog  service.CatalogService
}

// Build connects every dependency. The catalog schema is migrated before it returns.
// An unreachable catalog or object store is an error.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	holidays, err := ParseHolidays(cfg.Feed.Holidays)
	if err != nil {
		return nil, err
	}
	a.Calendar = calendar.New(cfg.Location(), holidays)

	a.Specs, err = config.LoadSpecs(cfg.Feed.SpecsFile)
	if err != nil {
		return nil, err
	}

	a.DB, err = database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect catalog: %w", err)
	}

	dialect := migration.Postgres
	if cfg.Database.Driver == database.DriverSQLite {
		dialect = migration.SQLite
	}
	if err := migration.EnsureMigrated(ctx, a.DB, dialect, logger); err != nil {
		a.DB.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}

	if dialect == migration.SQLite {
		a.Repo = sqlite.NewVersionSQLite(a.DB, a.Calendar)
	} else {
		a.Repo = postgres.NewVersionPostgres(a.DB, a.Calendar)
	}

	a.Store, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		a.DB.Close()
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	a.Source = source.NewClient(cfg.Feed, a.Calendar, logger)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics, err = service.NewMetrics(a.Registry)
	if err != nil {
		a.DB.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	a.Ingest = service.NewPipeline(a.Specs, a.Source, a.Repo, a.Store, a.Calendar, service.PipelineOptions{
		FetchConcurrency:   cfg.Pipeline.FetchConcurrency,
		StoreUnchangedCopy: cfg.Pipeline.StoreUnchangedCopy,
		ExtractArchives:    cfg.Pipeline.ExtractArchives,
		BusinessDateLag:    cfg.Feed.BusinessDateLag,
	}, a.Metrics, logger)

	a.Catalog = service.NewCatalogService(a.Specs, a.Repo, a.Store, time.Duration(cfg.Storage.PresignExpirySec)*time.Second)

	logger.Info("app_ready",
		"component", "app",
		"catalog_driver", cfg.Database.Driver,
		"storage_backend", cfg.Storage.Backend,
		"files", len(a.Specs),
		"timezone", a.Calendar.Location().String(),
	)
	return a, nil
}

// Close releases the catalog connection.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// ParseHolidays parses configured exchange holidays.
func ParseHolidays(items []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(items))
	var errs []error
	for _, s := range items {
		d, err := calendar.Parse(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, d)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("holidays: %w", errors.Join(errs...))
	}
	return out, nil
}
