package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/httpkit"
	"fixmate_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// JobSource returns every job created in [from, to).
type JobSource interface {
	Export(ctx context.Context, from, to *time.Time) ([]domain.Job, error)
}

// PeriodRequest bounds an export by creation date (YYYY-MM-DD, UTC).
type PeriodRequest struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// Handler handles admin export downloads.
type Handler struct {
	jobs JobSource
	val  *validator.Validator
}

// NewHandler creates a new export handler.
func NewHandler(jobs JobSource, val *validator.Validator) *Handler {
	return &Handler{jobs: jobs, val: val}
}

// ExportJobsXLSX streams the jobs workbook.
// GET /api/v1/admin/exports/jobs.xlsx?from=2026-01-01&to=2026-02-01
func (h *Handler) ExportJobsXLSX(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}

	data, err := Workbook(report)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to build workbook", nil)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="jobs_%s.xlsx"`, report.PeriodLabel()))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportJobsCSV streams the job rows as CSV.
// GET /api/v1/admin/exports/jobs.csv
func (h *Handler) ExportJobsCSV(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="jobs_%s.csv"`, report.PeriodLabel()))
	c.Status(http.StatusOK)
	if err := WriteCSV(c.Writer, report); err != nil {
		_ = c.Error(err)
	}
}

func (h *Handler) report(c *gin.Context) (Report, bool) {
	var req PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return Report{}, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return Report{}, false
	}

	from, to, err := ParsePeriod(req.From, req.To)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return Report{}, false
	}

	jobs, err := h.jobs.Export(c.Request.Context(), from, to)
	if httpkit.HandleError(c, err) {
		return Report{}, false
	}
	return Report{From: from, To: to, Jobs: jobs}, true
}

// ParsePeriod parses optional YYYY-MM-DD bounds. The upper bound is
// inclusive of its day.
func ParsePeriod(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromRaw != "" {
		t, err := time.Parse(dateLayout, fromRaw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid from date: %w", err)
		}
		from = &t
	}
	if toRaw != "" {
		t, err := time.Parse(dateLayout, toRaw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid to date: %w", err)
		}
		end := t.AddDate(0, 0, 1)
		to = &end
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fmt.Errorf("from must be on or before to")
	}
	return from, to, nil
}

// WriteCSV writes the header and one row per job.
func WriteCSV(w io.Writer, r Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(jobColumns); err != nil {
		return err
	}
	for _, job := range r.Jobs {
		if err := writer.Write(row(job)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
