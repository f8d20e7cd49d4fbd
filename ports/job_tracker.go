package ports

import (
	"context"

	"termarea/domain/core"
	"termarea/domain/job"
)

// JobTracker records job progress and keeps the files a job produced
type JobTracker interface {
	UpdateProgress(ctx context.Context, jobID core.ID, progress int, comment string) error
	UploadArtifact(ctx context.Context, artifact job.Artifact) (*job.Artifact, error)
	GetStatus(ctx context.Context, jobID core.ID) (*job.Status, error)
	// GetArtifact returns the latest artifact stored under key for the job
	GetArtifact(ctx context.Context, jobID core.ID, key string) (*job.Artifact, error)
}
