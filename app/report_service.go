package app

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"termarea/domain/annotation"
	"termarea/domain/core"
	"termarea/domain/job"
	domainStats "termarea/domain/stats"
	"termarea/internal"
	"termarea/internal/errors"
	"termarea/internal/report"
	"termarea/ports"
)

// ReportOptions controls where the report file goes and how it is registered
type ReportOptions struct {
	WorkDir  string
	Filename string
	Key      string
	Location *time.Location // timestamps in the detail section; local time when nil
}

// DefaultReportOptions returns the stock report naming
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		WorkDir:  ".",
		Filename: "stat-area.csv",
		Key:      "Area CSV report",
	}
}

// ReportService runs a report job: fetch, aggregate, render, write and upload
type ReportService struct {
	source  ports.AnnotationSource
	tracker ports.JobTracker
	opts    ReportOptions
	logger  *internal.Logger
}

// ReportResult is the outcome of a finished report job
type ReportResult struct {
	JobID     core.ID                 `json:"job_id"`
	Summary   domainStats.AreaSummary `json:"-"`
	Lines     []string                `json:"-"`
	Path      string                  `json:"path"`
	Artifact  *job.Artifact           `json:"artifact"`
	RuntimeMs int64                   `json:"runtime_ms"`
}

// NewReportService creates a report service
func NewReportService(source ports.AnnotationSource, tracker ports.JobTracker, opts ReportOptions, logger *internal.Logger) *ReportService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ReportService{
		source:  source,
		tracker: tracker,
		opts:    opts,
		logger:  logger,
	}
}

// ReportKey is the artifact key finished reports are uploaded under
func (s *ReportService) ReportKey() string {
	return s.opts.Key
}

// reportInputs is what the collect phase hands to aggregation
type reportInputs struct {
	terms   []annotation.Term
	images  []annotation.Image
	records []annotation.Record
}

// Generate produces the area report for the selection in params.
// On failure the job is marked with a "Failed: ..." comment at its last progress.
func (s *ReportService) Generate(ctx context.Context, params job.Parameters) (*ReportResult, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, err)
	}

	startTime := time.Now()
	jobID := params.JobID
	if jobID.IsEmpty() {
		jobID = core.NewID()
	}

	progress := 0
	step := func(p int, comment string) error {
		progress = p
		if err := s.tracker.UpdateProgress(ctx, jobID, p, comment); err != nil {
			return errors.Wrapf(err, "failed to report progress %d", p)
		}
		return nil
	}

	result, err := s.run(ctx, jobID, params, step)
	if err != nil {
		s.logger.Error("report job %s failed at %d%%: %v", jobID, progress, err)
		if uerr := s.tracker.UpdateProgress(context.WithoutCancel(ctx), jobID, progress, "Failed: "+err.Error()); uerr != nil {
			s.logger.Warn("could not mark job %s as failed: %v", jobID, uerr)
		}
		return nil, err
	}

	result.RuntimeMs = time.Since(startTime).Milliseconds()
	s.logger.Info("report job %s finished in %dms (%d images, %d lines)", jobID, result.RuntimeMs, result.Summary.Len(), len(result.Lines))
	return result, nil
}

func (s *ReportService) run(ctx context.Context, jobID core.ID, params job.Parameters, step func(int, string) error) (*ReportResult, error) {
	if err := step(job.ProgressInit, job.CommentInit); err != nil {
		return nil, err
	}
	s.logger.Info("report job %s: project=%d terms=%v images=%v users=%v jobs=%v reviewed_only=%t",
		jobID, params.ProjectID, params.TermIDs, params.ImageIDs, params.UserIDs, params.JobIDs, params.ReviewedOnly)

	in, err := s.collect(ctx, params, step)
	if err != nil {
		return nil, err
	}

	if err := step(job.ProgressCompute, job.CommentCompute); err != nil {
		return nil, err
	}
	if dups := DuplicateFilenames(in.images); len(dups) > 0 {
		s.logger.Warn("report job %s: images share filenames %v, only the last image of each name is reported", jobID, dups)
	}
	summary := Aggregate(in.images, in.terms, in.records)

	if err := step(job.ProgressWrite, job.CommentWrite); err != nil {
		return nil, err
	}
	lines := report.NewRenderer(s.opts.Location).Render(summary, in.terms)
	var buf bytes.Buffer
	if err := report.WriteLines(&buf, lines); err != nil {
		return nil, errors.Wrap(err, "failed to render report")
	}
	content := buf.Bytes()

	// The work-dir copy is shared by all jobs; the tracker keeps each job's own.
	path := filepath.Join(s.opts.WorkDir, s.opts.Filename)
	if err := report.WriteFile(path, lines); err != nil {
		return nil, err
	}

	artifact, err := s.tracker.UploadArtifact(ctx, job.Artifact{
		ID:        core.NewID(),
		JobID:     jobID,
		Key:       s.opts.Key,
		Filename:  s.opts.Filename,
		Content:   content,
		CreatedAt: core.Now(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to upload report")
	}

	if err := step(job.ProgressFinished, job.CommentFinished); err != nil {
		return nil, err
	}

	return &ReportResult{
		JobID:    jobID,
		Summary:  summary,
		Lines:    lines,
		Path:     path,
		Artifact: artifact,
	}, nil
}

// collect fetches project metadata concurrently, then the annotations in scope
func (s *ReportService) collect(ctx context.Context, params job.Parameters, step func(int, string) error) (*reportInputs, error) {
	in := &reportInputs{}
	var jobs []annotation.Job

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		terms, err := s.source.ListTerms(gctx, params.ProjectID)
		if err != nil {
			return errors.Wrap(err, "failed to fetch terms")
		}
		in.terms = annotation.FilterTerms(terms, params.TermIDs)
		return nil
	})
	g.Go(func() error {
		images, err := s.source.ListImages(gctx, params.ProjectID)
		if err != nil {
			return errors.Wrap(err, "failed to fetch images")
		}
		in.images = annotation.FilterImages(images, params.ImageIDs)
		return nil
	})
	if len(params.JobIDs) > 0 {
		g.Go(func() error {
			all, err := s.source.ListJobs(gctx, params.ProjectID)
			if err != nil {
				return errors.Wrap(err, "failed to fetch jobs")
			}
			jobs = annotation.FilterJobs(all, params.JobIDs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(in.terms) < len(params.TermIDs) {
		s.logger.Warn("only %d of %d requested terms belong to project %d", len(in.terms), len(params.TermIDs), params.ProjectID)
	}
	if len(in.images) < len(params.ImageIDs) {
		s.logger.Warn("only %d of %d requested images belong to project %d", len(in.images), len(params.ImageIDs), params.ProjectID)
	}

	users := append([]annotation.ID(nil), params.UserIDs...)
	for _, j := range jobs {
		users = append(users, j.UserJobID)
	}

	if err := step(job.ProgressCollect, job.CommentCollect); err != nil {
		return nil, err
	}

	q := annotation.Query{
		ProjectID:    params.ProjectID,
		TermIDs:      params.TermIDs,
		ImageIDs:     params.ImageIDs,
		ReviewedOnly: params.ReviewedOnly,
	}
	if len(users) > 0 {
		q.UserIDs = users
	}
	records, err := s.source.ListAnnotations(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch annotations")
	}
	s.logger.Debug("fetched %d annotations", len(records))
	in.records = records
	return in, nil
}
