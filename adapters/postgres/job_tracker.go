package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"termarea/domain/core"
	"termarea/domain/job"
	"termarea/internal/errors"
	"termarea/ports"

	"github.com/jmoiron/sqlx"
)

// jobTracker stores job progress and report files in report_jobs / report_artifacts
type jobTracker struct {
	db *sqlx.DB
}

// NewJobTracker creates a PostgreSQL-backed job tracker
func NewJobTracker(db *sqlx.DB) ports.JobTracker {
	return &jobTracker{db: db}
}

// UpdateProgress creates the job on first use and records its latest progress
func (t *jobTracker) UpdateProgress(ctx context.Context, jobID core.ID, progress int, comment string) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO report_jobs (id, progress, status_comment, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			progress = EXCLUDED.progress,
			status_comment = EXCLUDED.status_comment,
			updated_at = EXCLUDED.updated_at
	`, jobID.String(), progress, comment)
	if err != nil {
		return errors.DatabaseError("failed to update job progress", err)
	}
	return nil
}

// UploadArtifact stores the file content under the job and key
func (t *jobTracker) UploadArtifact(ctx context.Context, artifact job.Artifact) (*job.Artifact, error) {
	if artifact.ID.IsEmpty() {
		artifact.ID = core.NewID()
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = core.Now()
	}

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO report_artifacts (id, job_id, artifact_key, filename, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, artifact.ID.String(), artifact.JobID.String(), artifact.Key, artifact.Filename,
		artifact.Content, artifact.CreatedAt.Time())
	if err != nil {
		return nil, errors.DatabaseError("failed to store artifact", err)
	}
	return &artifact, nil
}

type statusRow struct {
	ID        string    `db:"id"`
	Progress  int       `db:"progress"`
	Comment   string    `db:"status_comment"`
	UpdatedAt time.Time `db:"updated_at"`
}

// GetStatus returns the last progress recorded for a job
func (t *jobTracker) GetStatus(ctx context.Context, jobID core.ID) (*job.Status, error) {
	var row statusRow
	err := t.db.GetContext(ctx, &row, `
		SELECT id, progress, status_comment, updated_at
		FROM report_jobs WHERE id = $1
	`, jobID.String())
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s", core.ErrJobNotFound, jobID))
		}
		return nil, errors.DatabaseError("failed to get job status", err)
	}
	return &job.Status{
		JobID:     core.ID(row.ID),
		Progress:  row.Progress,
		Comment:   row.Comment,
		UpdatedAt: core.NewTimestamp(row.UpdatedAt),
	}, nil
}

type artifactRow struct {
	ID        string    `db:"id"`
	JobID     string    `db:"job_id"`
	Key       string    `db:"artifact_key"`
	Filename  string    `db:"filename"`
	Content   []byte    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// GetArtifact returns the newest artifact stored under key for the job
func (t *jobTracker) GetArtifact(ctx context.Context, jobID core.ID, key string) (*job.Artifact, error) {
	var row artifactRow
	err := t.db.GetContext(ctx, &row, `
		SELECT id, job_id, artifact_key, filename, content, created_at
		FROM report_artifacts
		WHERE job_id = $1 AND artifact_key = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, jobID.String(), key)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s for job %s", core.ErrArtifactNotFound, key, jobID))
		}
		return nil, errors.DatabaseError("failed to get artifact", err)
	}
	return &job.Artifact{
		ID:        core.ID(row.ID),
		JobID:     core.ID(row.JobID),
		Key:       row.Key,
		Filename:  row.Filename,
		Content:   row.Content,
		CreatedAt: core.NewTimestamp(row.CreatedAt),
	}, nil
}
