package ports

import (
	"context"

	"termarea/domain/annotation"
)

// AnnotationSource provides read-only access to an annotation store
type AnnotationSource interface {
	ListTerms(ctx context.Context, projectID annotation.ID) ([]annotation.Term, error)
	ListImages(ctx context.Context, projectID annotation.ID) ([]annotation.Image, error)
	ListJobs(ctx context.Context, projectID annotation.ID) ([]annotation.Job, error)
	// ListAnnotations returns the annotations inside the query scope, in store order
	ListAnnotations(ctx context.Context, q annotation.Query) ([]annotation.Record, error)
}
