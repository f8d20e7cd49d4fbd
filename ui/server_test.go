package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"termarea/adapters/excel"
	"termarea/adapters/filestore"
	"termarea/app"
	"termarea/domain/annotation"
	"termarea/domain/core"
	"termarea/internal"
	"termarea/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	logger := internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError)

	workbook := filepath.Join(dir, "annotations.xlsx")
	require.NoError(t, excel.WriteWorkbook(workbook, &excel.Dataset{
		Terms: []annotation.Term{
			{ID: 1, ProjectID: 7, Name: "T1"},
			{ID: 2, ProjectID: 7, Name: "T2"},
		},
		Images: []annotation.Image{
			{ID: 100, ProjectID: 7, Filename: "A.png"},
			{ID: 200, ProjectID: 7, Filename: "B.png"},
		},
		Records: []annotation.Record{
			{ID: 1, ProjectID: 7, ImageID: 100, UserID: 9, TermIDs: []annotation.ID{1}, Area: 10, CreatedAt: 1000},
			{ID: 2, ProjectID: 7, ImageID: 100, UserID: 9, TermIDs: []annotation.ID{2}, Area: 30, CreatedAt: 2000},
			{ID: 3, ProjectID: 7, ImageID: 200, UserID: 9, TermIDs: []annotation.ID{1}, Area: 5, CreatedAt: 3000},
		},
	}))

	source := excel.NewWorkbookSource(workbook, logger)
	tracker := filestore.NewTracker(filepath.Join(dir, "artifacts"), logger)
	opts := app.DefaultReportOptions()
	opts.WorkDir = dir
	reports := app.NewReportService(source, tracker, opts, logger)

	return NewServer(reports, tracker, logger)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateAndDownloadReport(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/reports", `{"job_id":"job-42","project_id":7,"terms":"1, 2","images":[100,200]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		JobID  string   `json:"job_id"`
		Images []string `json:"images"`
		Status struct {
			Progress int    `json:"progress"`
			Comment  string `json:"status_comment"`
		} `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "job-42", created.JobID)
	assert.Equal(t, []string{"A.png", "B.png"}, created.Images)
	assert.Equal(t, 100, created.Status.Progress)
	assert.Equal(t, "Finished.", created.Status.Comment)

	w = doRequest(s, http.MethodGet, "/api/reports/job-42", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s, http.MethodGet, "/api/reports/job-42/download", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="stat-area.csv"`)

	lines := strings.Split(w.Body.String(), "\n")
	assert.Equal(t, "Total annotation area per image and per term", strings.TrimRight(lines[0], ","))
	assert.Equal(t, "Image,T1,T2,Total", strings.TrimRight(lines[1], ","))
	assert.Equal(t, "A.png,10,30,40", strings.TrimRight(lines[2], ","))
	assert.Equal(t, "B.png,5,0,5", strings.TrimRight(lines[3], ","))
	assert.Equal(t, "Total,15,30,45", strings.TrimRight(lines[4], ","))
}

func TestCreateReportRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"project_id":`},
		{"bad id token", `{"project_id":7,"terms":"1,x","images":"100"}`},
		{"no terms", `{"project_id":7,"terms":"","images":"100"}`},
		{"no project", `{"terms":"1","images":"100"}`},
		{"parent dir job id", `{"job_id":"..","project_id":7,"terms":"1","images":"100"}`},
		{"nested job id", `{"job_id":"a/b","project_id":7,"terms":"1","images":"100"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodPost, "/api/reports", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestUnknownReportIsNotFound(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/reports/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(s, http.MethodGet, "/api/reports/missing/download", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestIDListAcceptsStringsAndArrays(t *testing.T) {
	var req createReportRequest
	require.NoError(t, json.Unmarshal([]byte(`{"terms":"3, 4","images":[5,6],"users":""}`), &req))
	assert.Equal(t, idList{3, 4}, req.Terms)
	assert.Equal(t, idList{5, 6}, req.Images)
	assert.Nil(t, req.Users)

	assert.Error(t, json.Unmarshal([]byte(`{"terms":{"a":1}}`), &req))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", errors.InvalidInput("bad"), http.StatusBadRequest},
		{"validation", errors.WithCode(errors.CodeValidationError, core.NewValidationError("terms", "empty")), http.StatusBadRequest},
		{"bare validation", core.NewValidationError("id", "reserved"), http.StatusBadRequest},
		{"not found", errors.WithCode(errors.CodeNotFound, core.ErrJobNotFound), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", core.ErrArtifactNotFound), http.StatusNotFound},
		{"external", errors.ExternalServiceError("workbook", fmt.Errorf("eof")), http.StatusBadGateway},
		{"database", errors.DatabaseError("query failed", fmt.Errorf("timeout")), http.StatusBadGateway},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
