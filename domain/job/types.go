package job

import (
	"termarea/domain/annotation"
	"termarea/domain/core"
)

// Progress milestones reported while a report is generated
const (
	ProgressInit     = 1
	ProgressCollect  = 20
	ProgressCompute  = 55
	ProgressWrite    = 90
	ProgressFinished = 100
)

// Status comments matching the milestones above
const (
	CommentInit     = "Initialisation"
	CommentCollect  = "Collect data"
	CommentCompute  = "Compute statistics"
	CommentWrite    = "Write CSV report"
	CommentFinished = "Finished."
)

// Parameters selects what a report covers
type Parameters struct {
	JobID        core.ID         `json:"job_id"`
	ProjectID    annotation.ID   `json:"project_id"`
	TermIDs      []annotation.ID `json:"term_ids"`
	ImageIDs     []annotation.ID `json:"image_ids"`
	UserIDs      []annotation.ID `json:"user_ids,omitempty"`
	JobIDs       []annotation.ID `json:"job_ids,omitempty"`
	ReviewedOnly bool            `json:"reviewed_only"`
}

// Validate checks that the selection names a project, terms and images, and that
// a caller-supplied job id is usable as a directory name
func (p Parameters) Validate() error {
	if p.ProjectID <= 0 {
		return core.NewValidationError("project", "must be a positive identifier")
	}
	if len(p.TermIDs) == 0 {
		return core.NewValidationError("terms", "must list at least one term")
	}
	if len(p.ImageIDs) == 0 {
		return core.NewValidationError("images", "must list at least one image")
	}
	if !p.JobID.IsEmpty() {
		if err := p.JobID.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Status is the last progress a job reported
type Status struct {
	JobID     core.ID        `json:"job_id" db:"id"`
	Progress  int            `json:"progress" db:"progress"`
	Comment   string         `json:"status_comment" db:"status_comment"`
	UpdatedAt core.Timestamp `json:"updated_at"`
}

// Artifact is a file attached to a job under a key
type Artifact struct {
	ID        core.ID        `json:"id"`
	JobID     core.ID        `json:"job_id"`
	Key       string         `json:"key"`
	Filename  string         `json:"filename"`
	Content   []byte         `json:"-"`
	CreatedAt core.Timestamp `json:"created_at"`
}
