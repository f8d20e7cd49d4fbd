package annotation

import (
	"strconv"
	"strings"

	"termarea/internal/errors"
)

// ID identifies a resource of the annotation store (project, image, term, user, job)
type ID int64

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Record is one annotation instance as delivered by the annotation store
type Record struct {
	ID        ID      `json:"id" db:"id"`
	ProjectID ID      `json:"project_id" db:"project_id"`
	ImageID   ID      `json:"image_id" db:"image_id"`
	UserID    ID      `json:"user_id" db:"user_id"`
	TermIDs   []ID    `json:"term_ids"`
	Area      float64 `json:"area" db:"area"`
	CreatedAt int64   `json:"created" db:"created"` // milliseconds since epoch
	Reviewed  bool    `json:"reviewed" db:"reviewed"`
}

// HasTerm reports whether the annotation carries the given term
func (r Record) HasTerm(id ID) bool {
	for _, t := range r.TermIDs {
		if t == id {
			return true
		}
	}
	return false
}

// Term is a classification label. Names are the report's column keys.
type Term struct {
	ID        ID     `json:"id" db:"id"`
	ProjectID ID     `json:"project_id" db:"project_id"`
	Name      string `json:"name" db:"name"`
}

// Image is an image instance of a project. Filenames are the report's row keys.
type Image struct {
	ID        ID     `json:"id" db:"id"`
	ProjectID ID     `json:"project_id" db:"project_id"`
	Filename  string `json:"filename" db:"instance_filename"`
}

// Job is an analysis job whose user-job account may have produced annotations
type Job struct {
	ID        ID `json:"id" db:"id"`
	ProjectID ID `json:"project_id" db:"project_id"`
	UserJobID ID `json:"user_job_id" db:"user_job_id"`
}

// Query scopes the annotations fetched from the store
type Query struct {
	ProjectID    ID
	TermIDs      []ID
	ImageIDs     []ID
	UserIDs      []ID // nil means annotations of any user
	ReviewedOnly bool
}

// Matches reports whether a record falls inside the query scope.
// Annotations match when they carry at least one of the query terms.
func (q Query) Matches(r Record) bool {
	if q.ProjectID != 0 && r.ProjectID != q.ProjectID {
		return false
	}
	if q.ReviewedOnly && !r.Reviewed {
		return false
	}
	if len(q.ImageIDs) > 0 && !containsID(q.ImageIDs, r.ImageID) {
		return false
	}
	if len(q.UserIDs) > 0 && !containsID(q.UserIDs, r.UserID) {
		return false
	}
	if len(q.TermIDs) > 0 {
		for _, t := range r.TermIDs {
			if containsID(q.TermIDs, t) {
				return true
			}
		}
		return false
	}
	return true
}

// ParseIDList parses a comma-separated list of identifiers such as "12, 13,14"
func ParseIDList(s string) ([]ID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]ID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, errors.InvalidInput("invalid identifier " + strconv.Quote(p))
		}
		ids = append(ids, ID(v))
	}
	return ids, nil
}

// FilterTerms keeps the selected terms in the order they were fetched
func FilterTerms(terms []Term, ids []ID) []Term {
	out := make([]Term, 0, len(ids))
	for _, t := range terms {
		if containsID(ids, t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// FilterImages keeps the selected images in the order they were fetched
func FilterImages(images []Image, ids []ID) []Image {
	out := make([]Image, 0, len(ids))
	for _, img := range images {
		if containsID(ids, img.ID) {
			out = append(out, img)
		}
	}
	return out
}

// FilterJobs keeps the selected jobs in the order they were fetched
func FilterJobs(jobs []Job, ids []ID) []Job {
	out := make([]Job, 0, len(ids))
	for _, j := range jobs {
		if containsID(ids, j.ID) {
			out = append(out, j)
		}
	}
	return out
}

func containsID(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
