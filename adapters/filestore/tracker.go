package filestore

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"termarea/domain/core"
	"termarea/domain/job"
	"termarea/internal"
	"termarea/internal/errors"
)

// Tracker keeps job progress in memory and report files under a directory,
// one sub-directory per job.
type Tracker struct {
	dir    string
	logger *internal.Logger

	mu        sync.RWMutex
	statuses  map[core.ID]job.Status
	artifacts map[core.ID]map[string]job.Artifact // job -> key -> artifact, content on disk
}

// NewTracker creates a tracker storing artifacts under dir
func NewTracker(dir string, logger *internal.Logger) *Tracker {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Tracker{
		dir:       dir,
		logger:    logger,
		statuses:  make(map[core.ID]job.Status),
		artifacts: make(map[core.ID]map[string]job.Artifact),
	}
}

// UpdateProgress records and logs the latest progress of a job
func (t *Tracker) UpdateProgress(ctx context.Context, jobID core.ID, progress int, comment string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	t.statuses[jobID] = job.Status{
		JobID:     jobID,
		Progress:  progress,
		Comment:   comment,
		UpdatedAt: core.Now(),
	}
	t.mu.Unlock()

	t.logger.Info("[job %s] %3d%% %s", jobID, progress, comment)
	return nil
}

// UploadArtifact writes the artifact content to <dir>/<job>/<filename>
func (t *Tracker) UploadArtifact(ctx context.Context, artifact job.Artifact) (*job.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if artifact.ID.IsEmpty() {
		artifact.ID = core.NewID()
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = core.Now()
	}

	path, err := t.artifactPath(artifact.JobID, artifact.Filename)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create artifact directory %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, artifact.Content, 0o644); err != nil {
		return nil, errors.Wrapf(err, "failed to write artifact %s", path)
	}

	meta := artifact
	meta.Content = nil

	t.mu.Lock()
	if t.artifacts[artifact.JobID] == nil {
		t.artifacts[artifact.JobID] = make(map[string]job.Artifact)
	}
	t.artifacts[artifact.JobID][artifact.Key] = meta
	t.mu.Unlock()

	t.logger.Info("[job %s] stored %q as %s (%d bytes)", artifact.JobID, artifact.Key, path, len(artifact.Content))
	return &artifact, nil
}

// GetStatus returns the last progress recorded for a job
func (t *Tracker) GetStatus(ctx context.Context, jobID core.ID) (*job.Status, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status, ok := t.statuses[jobID]
	if !ok {
		return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s", core.ErrJobNotFound, jobID))
	}
	return &status, nil
}

// GetArtifact reads back the latest artifact stored under key for the job
func (t *Tracker) GetArtifact(ctx context.Context, jobID core.ID, key string) (*job.Artifact, error) {
	t.mu.RLock()
	meta, ok := t.artifacts[jobID][key]
	t.mu.RUnlock()
	if !ok {
		return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s for job %s", core.ErrArtifactNotFound, key, jobID))
	}

	path, err := t.artifactPath(jobID, meta.Filename)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s", core.ErrArtifactNotFound, path))
		}
		return nil, errors.Wrapf(err, "failed to read artifact %s", path)
	}
	meta.Content = content
	return &meta, nil
}

// artifactPath resolves <dir>/<job>/<filename>; both parts must be plain names
func (t *Tracker) artifactPath(jobID core.ID, filename string) (string, error) {
	if err := jobID.Validate(); err != nil {
		return "", errors.WithCode(errors.CodeInvalidInput, err)
	}
	if err := core.ID(filename).Validate(); err != nil {
		return "", errors.InvalidInput(fmt.Sprintf("invalid artifact filename %q", filename))
	}
	return filepath.Join(t.dir, jobID.String(), filename), nil
}
