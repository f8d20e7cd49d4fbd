package app

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"termarea/adapters/filestore"
	"termarea/domain/annotation"
	"termarea/domain/core"
	"termarea/domain/job"
	"termarea/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectSource serves one term and n images per project, one annotation per image.
// Filenames carry the project id so reports of different projects never share a row.
type projectSource struct {
	imagesPerProject  int
	beforeAnnotations func(ctx context.Context)
}

func (s *projectSource) imageID(project annotation.ID, i int) annotation.ID {
	return project*100000 + annotation.ID(i)
}

func (s *projectSource) ListTerms(ctx context.Context, projectID annotation.ID) ([]annotation.Term, error) {
	return []annotation.Term{{ID: 1, ProjectID: projectID, Name: "T1"}}, nil
}

func (s *projectSource) ListImages(ctx context.Context, projectID annotation.ID) ([]annotation.Image, error) {
	images := make([]annotation.Image, 0, s.imagesPerProject)
	for i := 1; i <= s.imagesPerProject; i++ {
		images = append(images, annotation.Image{
			ID:        s.imageID(projectID, i),
			ProjectID: projectID,
			Filename:  fmt.Sprintf("p%d-img%d.png", projectID, i),
		})
	}
	return images, nil
}

func (s *projectSource) ListJobs(ctx context.Context, projectID annotation.ID) ([]annotation.Job, error) {
	return nil, nil
}

func (s *projectSource) ListAnnotations(ctx context.Context, q annotation.Query) ([]annotation.Record, error) {
	if s.beforeAnnotations != nil {
		s.beforeAnnotations(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := make([]annotation.Record, 0, len(q.ImageIDs))
	for i, imageID := range q.ImageIDs {
		records = append(records, annotation.Record{
			ID:        imageID,
			ProjectID: q.ProjectID,
			ImageID:   imageID,
			TermIDs:   []annotation.ID{1},
			Area:      float64(i + 1),
			CreatedAt: 1000,
		})
	}
	return records, nil
}

func (s *projectSource) params(project annotation.ID) job.Parameters {
	imageIDs := make([]annotation.ID, 0, s.imagesPerProject)
	for i := 1; i <= s.imagesPerProject; i++ {
		imageIDs = append(imageIDs, s.imageID(project, i))
	}
	return job.Parameters{
		JobID:     core.ID(fmt.Sprintf("job-%d", project)),
		ProjectID: project,
		TermIDs:   []annotation.ID{1},
		ImageIDs:  imageIDs,
	}
}

func newTrackedService(t *testing.T, source *projectSource) (*ReportService, *filestore.Tracker) {
	dir := t.TempDir()
	logger := internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError)
	tracker := filestore.NewTracker(filepath.Join(dir, "artifacts"), logger)
	opts := DefaultReportOptions()
	opts.WorkDir = dir
	opts.Location = time.UTC
	return NewReportService(source, tracker, opts, logger), tracker
}

func TestReportService_ConcurrentJobsKeepTheirOwnArtifacts(t *testing.T) {
	const projects = 8
	source := &projectSource{imagesPerProject: 500}
	service, tracker := newTrackedService(t, source)
	ctx := context.Background()

	for round := 0; round < 3; round++ {
		var wg sync.WaitGroup
		results := make([]*ReportResult, projects+1)
		for p := 1; p <= projects; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				result, err := service.Generate(ctx, source.params(annotation.ID(p)))
				if assert.NoError(t, err) {
					results[p] = result
				}
			}(p)
		}
		wg.Wait()

		for p := 1; p <= projects; p++ {
			require.NotNil(t, results[p])
			stored, err := tracker.GetArtifact(ctx, core.ID(fmt.Sprintf("job-%d", p)), service.ReportKey())
			require.NoError(t, err)

			content := string(stored.Content)
			assert.Equal(t, strings.Join(results[p].Lines, "\n")+"\n", content, "job-%d", p)
			assert.Contains(t, content, fmt.Sprintf("\np%d-img1.png,", p))
			for q := 1; q <= projects; q++ {
				if q != p {
					assert.NotContains(t, content, fmt.Sprintf("\np%d-img1.png,", q), "job-%d holds project %d rows", p, q)
				}
			}
		}
	}
}

func TestReportService_CancelledJobStillRecordsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := &projectSource{
		imagesPerProject:  2,
		beforeAnnotations: func(context.Context) { cancel() },
	}
	service, tracker := newTrackedService(t, source)

	_, err := service.Generate(ctx, source.params(3))
	require.Error(t, err)

	status, err := tracker.GetStatus(context.Background(), "job-3")
	require.NoError(t, err)
	assert.Equal(t, job.ProgressCollect, status.Progress)
	assert.True(t, strings.HasPrefix(status.Comment, "Failed: "), status.Comment)
	assert.Contains(t, status.Comment, context.Canceled.Error())
}

func TestReportService_RejectsPathLikeJobID(t *testing.T) {
	source := &projectSource{imagesPerProject: 1}
	service, tracker := newTrackedService(t, source)

	params := source.params(4)
	params.JobID = ".."
	_, err := service.Generate(context.Background(), params)
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))

	_, err = tracker.GetStatus(context.Background(), "..")
	assert.True(t, core.IsNotFoundError(err))
}
