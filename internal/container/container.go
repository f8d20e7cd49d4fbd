package container

import (
	"context"
	"fmt"
	"time"

	"termarea/adapters/excel"
	"termarea/adapters/filestore"
	"termarea/adapters/postgres"
	"termarea/app"
	"termarea/internal"
	"termarea/internal/config"
	"termarea/internal/errors"
	"termarea/internal/migration"
	"termarea/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds the wired collaborators of a report run
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	Source  ports.AnnotationSource
	Tracker ports.JobTracker

	ReportService *app.ReportService
}

// New wires the source, tracker and report service selected by cfg.
// A database connection is opened only when a postgres backend is configured.
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if cfg.NeedsDatabase() {
		db, err := Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		c.DB = db
	}

	switch cfg.Source.Backend {
	case config.SourceExcel:
		c.Source = excel.NewWorkbookSource(cfg.Source.File, logger)
	default:
		c.Source = postgres.NewAnnotationSource(c.DB)
	}

	switch cfg.Tracker.Backend {
	case config.TrackerPostgres:
		c.Tracker = postgres.NewJobTracker(c.DB)
	default:
		c.Tracker = filestore.NewTracker(cfg.Tracker.ArtifactDir, logger)
	}

	opts := app.ReportOptions{
		WorkDir:  cfg.Report.WorkDir,
		Filename: cfg.Report.Filename,
		Key:      cfg.Report.Key,
	}
	c.ReportService = app.NewReportService(c.Source, c.Tracker, opts, logger)

	logger.Debug("container ready: source=%s tracker=%s", cfg.Source.Backend, cfg.Tracker.Backend)
	return c, nil
}

// Connect opens and pings the postgres database
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to ping database", err)
	}
	return db, nil
}

// Migrate creates the schema on the container's database
func (c *Container) Migrate(ctx context.Context) error {
	if c.DB == nil {
		return errors.ConfigInvalid("no database configured")
	}
	runner := migration.NewRunner()
	if err := runner.Run(ctx, c.DB); err != nil {
		return err
	}
	c.Logger.Info("schema version %s applied", runner.Version())
	return nil
}

// Shutdown releases the database connection, if any
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
