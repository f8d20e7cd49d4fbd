package postgres

import (
	"context"

	"termarea/domain/annotation"
	"termarea/internal/errors"
	"termarea/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// annotationSource reads the annotation store tables
type annotationSource struct {
	db *sqlx.DB
}

// NewAnnotationSource creates a PostgreSQL-backed annotation source
func NewAnnotationSource(db *sqlx.DB) ports.AnnotationSource {
	return &annotationSource{db: db}
}

// ListTerms returns the terms of a project ordered by id
func (s *annotationSource) ListTerms(ctx context.Context, projectID annotation.ID) ([]annotation.Term, error) {
	terms := make([]annotation.Term, 0)
	err := s.db.SelectContext(ctx, &terms, `
		SELECT id, project_id, name
		FROM terms
		WHERE project_id = $1
		ORDER BY id
	`, projectID)
	if err != nil {
		return nil, errors.DatabaseError("failed to list terms", err)
	}
	return terms, nil
}

// ListImages returns the image instances of a project ordered by id
func (s *annotationSource) ListImages(ctx context.Context, projectID annotation.ID) ([]annotation.Image, error) {
	images := make([]annotation.Image, 0)
	err := s.db.SelectContext(ctx, &images, `
		SELECT id, project_id, instance_filename
		FROM images
		WHERE project_id = $1
		ORDER BY id
	`, projectID)
	if err != nil {
		return nil, errors.DatabaseError("failed to list images", err)
	}
	return images, nil
}

// ListJobs returns the analysis jobs of a project ordered by id
func (s *annotationSource) ListJobs(ctx context.Context, projectID annotation.ID) ([]annotation.Job, error) {
	jobs := make([]annotation.Job, 0)
	err := s.db.SelectContext(ctx, &jobs, `
		SELECT id, project_id, user_job_id
		FROM user_jobs
		WHERE project_id = $1
		ORDER BY id
	`, projectID)
	if err != nil {
		return nil, errors.DatabaseError("failed to list jobs", err)
	}
	return jobs, nil
}

type annotationRow struct {
	ID        int64         `db:"id"`
	ProjectID int64         `db:"project_id"`
	ImageID   int64         `db:"image_id"`
	UserID    int64         `db:"user_id"`
	Area      float64       `db:"area"`
	Created   int64         `db:"created"`
	Reviewed  bool          `db:"reviewed"`
	TermIDs   pq.Int64Array `db:"term_ids"`
}

// ListAnnotations returns the annotations in scope ordered by id. Every term of a
// matching annotation is returned, not only the queried ones.
func (s *annotationSource) ListAnnotations(ctx context.Context, q annotation.Query) ([]annotation.Record, error) {
	var rows []annotationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.project_id, a.image_id, a.user_id, a.area, a.created, a.reviewed,
		       COALESCE(array_agg(at.term_id ORDER BY at.term_id) FILTER (WHERE at.term_id IS NOT NULL), '{}') AS term_ids
		FROM annotations a
		LEFT JOIN annotation_terms at ON at.annotation_id = a.id
		WHERE a.project_id = $1
		  AND ($2::bigint[] IS NULL OR a.image_id = ANY($2))
		  AND ($3::bigint[] IS NULL OR a.user_id = ANY($3))
		  AND (NOT $4 OR a.reviewed)
		  AND ($5::bigint[] IS NULL OR EXISTS (
		        SELECT 1 FROM annotation_terms f
		        WHERE f.annotation_id = a.id AND f.term_id = ANY($5)))
		GROUP BY a.id
		ORDER BY a.id
	`, q.ProjectID, idArray(q.ImageIDs), idArray(q.UserIDs), q.ReviewedOnly, idArray(q.TermIDs))
	if err != nil {
		return nil, errors.DatabaseError("failed to list annotations", err)
	}

	records := make([]annotation.Record, 0, len(rows))
	for _, r := range rows {
		termIDs := make([]annotation.ID, len(r.TermIDs))
		for i, t := range r.TermIDs {
			termIDs[i] = annotation.ID(t)
		}
		records = append(records, annotation.Record{
			ID:        annotation.ID(r.ID),
			ProjectID: annotation.ID(r.ProjectID),
			ImageID:   annotation.ID(r.ImageID),
			UserID:    annotation.ID(r.UserID),
			TermIDs:   termIDs,
			Area:      r.Area,
			CreatedAt: r.Created,
			Reviewed:  r.Reviewed,
		})
	}
	return records, nil
}

// idArray binds an id filter; an empty filter binds NULL and matches everything
func idArray(ids []annotation.ID) pq.Int64Array {
	if len(ids) == 0 {
		return nil
	}
	out := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
