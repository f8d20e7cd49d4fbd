package migration

import (
	"context"

	"termarea/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner creates the annotation store and job tracking schema
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. Every statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	steps := []struct {
		name string
		fn   func(context.Context, *sqlx.DB) error
	}{
		{"terms table", r.createTermsTable},
		{"images table", r.createImagesTable},
		{"user_jobs table", r.createUserJobsTable},
		{"annotations table", r.createAnnotationsTable},
		{"annotation_terms table", r.createAnnotationTermsTable},
		{"report_jobs table", r.createReportJobsTable},
		{"report_artifacts table", r.createReportArtifactsTable},
		{"indexes", r.createIndexes},
	}

	for _, step := range steps {
		if err := step.fn(ctx, db); err != nil {
			return errors.Wrapf(errors.DatabaseError("migration failed", err), "failed to create %s", step.name)
		}
	}
	return nil
}

func (r *MigrationRunner) createTermsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS terms (
			id BIGINT PRIMARY KEY,
			project_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createImagesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS images (
			id BIGINT PRIMARY KEY,
			project_id BIGINT NOT NULL,
			instance_filename TEXT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createUserJobsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_jobs (
			id BIGINT PRIMARY KEY,
			project_id BIGINT NOT NULL,
			user_job_id BIGINT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createAnnotationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS annotations (
			id BIGINT PRIMARY KEY,
			project_id BIGINT NOT NULL,
			image_id BIGINT NOT NULL REFERENCES images(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			area DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (area >= 0),
			created BIGINT NOT NULL,
			reviewed BOOLEAN NOT NULL DEFAULT false
		)
	`)
	return err
}

func (r *MigrationRunner) createAnnotationTermsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS annotation_terms (
			annotation_id BIGINT NOT NULL REFERENCES annotations(id) ON DELETE CASCADE,
			term_id BIGINT NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
			PRIMARY KEY (annotation_id, term_id)
		)
	`)
	return err
}

func (r *MigrationRunner) createReportJobsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS report_jobs (
			id TEXT PRIMARY KEY,
			progress INTEGER NOT NULL DEFAULT 0,
			status_comment TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createReportArtifactsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS report_artifacts (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL REFERENCES report_jobs(id) ON DELETE CASCADE,
			artifact_key VARCHAR(255) NOT NULL,
			filename VARCHAR(255) NOT NULL,
			content BYTEA NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_terms_project ON terms(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_images_project ON images(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_jobs_project ON user_jobs(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_annotations_project_image ON annotations(project_id, image_id)`,
		`CREATE INDEX IF NOT EXISTS idx_annotation_terms_term ON annotation_terms(term_id)`,
		`CREATE INDEX IF NOT EXISTS idx_report_artifacts_job_key ON report_artifacts(job_id, artifact_key, created_at DESC)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
