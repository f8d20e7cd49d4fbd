package ui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"termarea/domain/annotation"
	"termarea/domain/core"
	"termarea/domain/job"
	"termarea/internal/errors"

	"github.com/gin-gonic/gin"
)

// idList accepts either a JSON array of ids or a comma-separated string
type idList []annotation.ID

func (l *idList) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		ids, err := annotation.ParseIDList(text)
		if err != nil {
			return err
		}
		*l = ids
		return nil
	}

	var ids []annotation.ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("expected an id array or a comma-separated string: %w", err)
	}
	*l = ids
	return nil
}

type createReportRequest struct {
	JobID        string        `json:"job_id"`
	ProjectID    annotation.ID `json:"project_id"`
	Terms        idList        `json:"terms"`
	Images       idList        `json:"images"`
	Users        idList        `json:"users"`
	Jobs         idList        `json:"jobs"`
	ReviewedOnly bool          `json:"reviewed_only"`
}

func (r createReportRequest) parameters() job.Parameters {
	return job.Parameters{
		JobID:        core.ID(r.JobID),
		ProjectID:    r.ProjectID,
		TermIDs:      r.Terms,
		ImageIDs:     r.Images,
		UserIDs:      r.Users,
		JobIDs:       r.Jobs,
		ReviewedOnly: r.ReviewedOnly,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCreateReport runs a report job synchronously and returns its final status
func (s *Server) handleCreateReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	result, err := s.reports.Generate(c.Request.Context(), req.parameters())
	if err != nil {
		s.respondError(c, "handleCreateReport", err)
		return
	}

	status, err := s.tracker.GetStatus(c.Request.Context(), result.JobID)
	if err != nil {
		s.respondError(c, "handleCreateReport", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job_id":     result.JobID,
		"status":     status,
		"images":     result.Summary.Filenames(),
		"runtime_ms": result.RuntimeMs,
	})
}

func (s *Server) handleGetReport(c *gin.Context) {
	jobID, err := core.ParseID(c.Param("id"))
	if err != nil {
		s.respondError(c, "handleGetReport", errors.InvalidInput(err.Error()))
		return
	}

	status, err := s.tracker.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		s.respondError(c, "handleGetReport", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleDownloadReport(c *gin.Context) {
	jobID, err := core.ParseID(c.Param("id"))
	if err != nil {
		s.respondError(c, "handleDownloadReport", errors.InvalidInput(err.Error()))
		return
	}

	artifact, err := s.tracker.GetArtifact(c.Request.Context(), jobID, s.reports.ReportKey())
	if err != nil {
		s.respondError(c, "handleDownloadReport", err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(artifact.Filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", artifact.Content)
}

func (s *Server) respondError(c *gin.Context, handler string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[%s] %v", handler, err)
	} else {
		s.logger.Debug("[%s] %v", handler, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

// statusFor maps application error codes to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.HasCode(err, errors.CodeInvalidInput), errors.HasCode(err, errors.CodeValidationError), core.IsValidationError(err):
		return http.StatusBadRequest
	case errors.HasCode(err, errors.CodeNotFound), core.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.HasCode(err, errors.CodeExternalService), errors.HasCode(err, errors.CodeDatabaseError):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
