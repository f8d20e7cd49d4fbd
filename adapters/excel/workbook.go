package excel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"termarea/domain/annotation"
	"termarea/internal"
	"termarea/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Sheet names of an annotation workbook
const (
	SheetTerms       = "Terms"
	SheetImages      = "Images"
	SheetJobs        = "Jobs"
	SheetAnnotations = "Annotations"
)

var (
	termColumns       = []string{"id", "project_id", "name"}
	imageColumns      = []string{"id", "project_id", "filename"}
	jobColumns        = []string{"id", "project_id", "user_job_id"}
	annotationColumns = []string{"id", "project_id", "image_id", "user_id", "term_ids", "area", "created", "reviewed"}
)

// Dataset is the full content of an annotation workbook
type Dataset struct {
	Terms   []annotation.Term
	Images  []annotation.Image
	Jobs    []annotation.Job
	Records []annotation.Record
}

// WorkbookSource serves an exported annotation workbook as an annotation store.
// The file is read once, on first use.
type WorkbookSource struct {
	path   string
	logger *internal.Logger

	once sync.Once
	data *Dataset
	err  error
}

// NewWorkbookSource creates a source reading the workbook at path
func NewWorkbookSource(path string, logger *internal.Logger) *WorkbookSource {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &WorkbookSource{path: path, logger: logger}
}

func (s *WorkbookSource) load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.once.Do(func() {
		s.data, s.err = ReadWorkbook(s.path)
		if s.err == nil {
			s.logger.Info("[WorkbookSource] loaded %s: %d terms, %d images, %d jobs, %d annotations",
				s.path, len(s.data.Terms), len(s.data.Images), len(s.data.Jobs), len(s.data.Records))
		}
	})
	return s.data, s.err
}

// ListTerms returns the terms of a project in sheet order
func (s *WorkbookSource) ListTerms(ctx context.Context, projectID annotation.ID) ([]annotation.Term, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []annotation.Term
	for _, t := range data.Terms {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListImages returns the images of a project in sheet order
func (s *WorkbookSource) ListImages(ctx context.Context, projectID annotation.ID) ([]annotation.Image, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []annotation.Image
	for _, img := range data.Images {
		if img.ProjectID == projectID {
			out = append(out, img)
		}
	}
	return out, nil
}

// ListJobs returns the jobs of a project in sheet order
func (s *WorkbookSource) ListJobs(ctx context.Context, projectID annotation.ID) ([]annotation.Job, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []annotation.Job
	for _, j := range data.Jobs {
		if j.ProjectID == projectID {
			out = append(out, j)
		}
	}
	return out, nil
}

// ListAnnotations returns the annotations in scope in sheet order
func (s *WorkbookSource) ListAnnotations(ctx context.Context, q annotation.Query) ([]annotation.Record, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []annotation.Record
	for _, r := range data.Records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ReadWorkbook reads all sheets of an annotation workbook. The Jobs sheet is optional.
func ReadWorkbook(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.ExternalServiceError("workbook", fmt.Errorf("failed to open %s: %w", path, err))
	}
	defer f.Close()

	ds := &Dataset{}

	rows, err := sheetRows(f, SheetTerms, termColumns, true)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		t := annotation.Term{Name: row.get("name")}
		if t.ID, err = row.id("id"); err != nil {
			return nil, err
		}
		if t.ProjectID, err = row.id("project_id"); err != nil {
			return nil, err
		}
		ds.Terms = append(ds.Terms, t)
	}

	if rows, err = sheetRows(f, SheetImages, imageColumns, true); err != nil {
		return nil, err
	}
	for _, row := range rows {
		img := annotation.Image{Filename: row.get("filename")}
		if img.ID, err = row.id("id"); err != nil {
			return nil, err
		}
		if img.ProjectID, err = row.id("project_id"); err != nil {
			return nil, err
		}
		ds.Images = append(ds.Images, img)
	}

	if rows, err = sheetRows(f, SheetJobs, jobColumns, false); err != nil {
		return nil, err
	}
	for _, row := range rows {
		var j annotation.Job
		if j.ID, err = row.id("id"); err != nil {
			return nil, err
		}
		if j.ProjectID, err = row.id("project_id"); err != nil {
			return nil, err
		}
		if j.UserJobID, err = row.id("user_job_id"); err != nil {
			return nil, err
		}
		ds.Jobs = append(ds.Jobs, j)
	}

	if rows, err = sheetRows(f, SheetAnnotations, annotationColumns, true); err != nil {
		return nil, err
	}
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		ds.Records = append(ds.Records, r)
	}

	return ds, nil
}

// sheetRow is one data row addressed by lower-case header name
type sheetRow struct {
	sheet  string
	line   int
	values map[string]string
}

func (r sheetRow) get(column string) string {
	return strings.TrimSpace(r.values[column])
}

func (r sheetRow) invalid(column, reason string) error {
	return errors.InvalidInput(fmt.Sprintf("%s row %d, column %s: %s", r.sheet, r.line, column, reason))
}

func (r sheetRow) id(column string) (annotation.ID, error) {
	v := r.get(column)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// numeric cells may come back as "12.0"
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, r.invalid(column, "invalid identifier "+strconv.Quote(v))
		}
		n = int64(f)
	}
	return annotation.ID(n), nil
}

func (r sheetRow) record() (annotation.Record, error) {
	var rec annotation.Record
	var err error
	if rec.ID, err = r.id("id"); err != nil {
		return rec, err
	}
	if rec.ProjectID, err = r.id("project_id"); err != nil {
		return rec, err
	}
	if rec.ImageID, err = r.id("image_id"); err != nil {
		return rec, err
	}
	if rec.UserID, err = r.id("user_id"); err != nil {
		return rec, err
	}

	for _, part := range strings.Split(r.get("term_ids"), ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return rec, r.invalid("term_ids", "invalid term identifier "+strconv.Quote(part))
		}
		rec.TermIDs = append(rec.TermIDs, annotation.ID(t))
	}

	if rec.Area, err = strconv.ParseFloat(r.get("area"), 64); err != nil || rec.Area < 0 {
		return rec, r.invalid("area", "area must be a non-negative number")
	}

	created, err := r.id("created")
	if err != nil {
		return rec, err
	}
	rec.CreatedAt = int64(created)

	if v := r.get("reviewed"); v != "" {
		if rec.Reviewed, err = strconv.ParseBool(v); err != nil {
			return rec, r.invalid("reviewed", "expected a boolean")
		}
	}
	return rec, nil
}

// sheetRows reads a sheet and checks its header carries the required columns.
// A missing optional sheet yields no rows.
func sheetRows(f *excelize.File, sheet string, columns []string, required bool) ([]sheetRow, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		if required {
			return nil, errors.InvalidInput(fmt.Sprintf("workbook has no %s sheet", sheet))
		}
		return nil, nil
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ExternalServiceError("workbook", fmt.Errorf("failed to read %s: %w", sheet, err))
	}
	if len(rows) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s sheet has no header row", sheet))
	}

	header := make([]string, len(rows[0]))
	present := make(map[string]bool, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
		present[header[i]] = true
	}
	for _, c := range columns {
		if !present[c] {
			return nil, errors.InvalidInput(fmt.Sprintf("%s sheet is missing column %s", sheet, c))
		}
	}

	out := make([]sheetRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		values := make(map[string]string, len(header))
		for c, name := range header {
			if c < len(cells) {
				values[name] = cells[c]
			}
		}
		out = append(out, sheetRow{sheet: sheet, line: i + 2, values: values})
	}
	return out, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteWorkbook exports a dataset in the layout ReadWorkbook expects
func WriteWorkbook(path string, ds *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTerms); err != nil {
		return err
	}
	for _, sheet := range []string{SheetImages, SheetJobs, SheetAnnotations} {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}

	termRows := make([][]interface{}, 0, len(ds.Terms))
	for _, t := range ds.Terms {
		termRows = append(termRows, []interface{}{int64(t.ID), int64(t.ProjectID), t.Name})
	}
	if err := writeSheet(f, SheetTerms, termColumns, termRows); err != nil {
		return err
	}

	imageRows := make([][]interface{}, 0, len(ds.Images))
	for _, img := range ds.Images {
		imageRows = append(imageRows, []interface{}{int64(img.ID), int64(img.ProjectID), img.Filename})
	}
	if err := writeSheet(f, SheetImages, imageColumns, imageRows); err != nil {
		return err
	}

	jobRows := make([][]interface{}, 0, len(ds.Jobs))
	for _, j := range ds.Jobs {
		jobRows = append(jobRows, []interface{}{int64(j.ID), int64(j.ProjectID), int64(j.UserJobID)})
	}
	if err := writeSheet(f, SheetJobs, jobColumns, jobRows); err != nil {
		return err
	}

	recordRows := make([][]interface{}, 0, len(ds.Records))
	for _, r := range ds.Records {
		terms := make([]string, len(r.TermIDs))
		for i, t := range r.TermIDs {
			terms[i] = t.String()
		}
		recordRows = append(recordRows, []interface{}{
			int64(r.ID), int64(r.ProjectID), int64(r.ImageID), int64(r.UserID),
			strings.Join(terms, ";"), r.Area, r.CreatedAt, r.Reviewed,
		})
	}
	if err := writeSheet(f, SheetAnnotations, annotationColumns, recordRows); err != nil {
		return err
	}

	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, sheet string, columns []string, rows [][]interface{}) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
