package handler

import (
	"context"
	"net/http"
	"strconv"

	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/jobs/service"
	"fixmate_backend/internal/jobs/transport"
	"fixmate_backend/platform/httpkit"
	"fixmate_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// LinkVerifier checks signed fixer action links.
type LinkVerifier interface {
	InspectFixerLink(ctx context.Context, raw string) (domain.FixerLink, error)
	ConsumeFixerLink(ctx context.Context, raw string, purpose domain.LinkPurpose) (domain.FixerLink, error)
}

// Handler handles HTTP requests for jobs.
type Handler struct {
	svc   *service.Service
	links LinkVerifier
	val   *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid job ID"
	msgFixersOnly       = "only fixers can act on jobs"

	msgAccepted  = "Job accepted. The client has been sent your details."
	msgDeclined  = "Job declined. We will offer it to another fixer."
	msgCompleted = "Job marked complete. Thank you!"
)

// New creates a new jobs handler.
func New(svc *service.Service, links LinkVerifier, val *validator.Validator) *Handler {
	return &Handler{svc: svc, links: links, val: val}
}

// List retrieves jobs for administrators.
// GET /api/v1/admin/jobs
func (h *Handler) List(c *gin.Context) {
	var req transport.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves one job.
// GET /api/v1/admin/jobs/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	job, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, service.ToResponse(job))
}

// Assign hands an unassigned job to a fixer.
// POST /api/v1/admin/jobs/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.AssignJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.AssignManually(c.Request.Context(), id, req.FixerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, service.ToResponse(job))
}

// Cancel cancels a job.
// POST /api/v1/admin/jobs/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.CancelJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.Cancel(c.Request.Context(), id, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, service.ToResponse(job))
}

// ListMine lists the caller's jobs as a client or as a fixer.
// GET /api/v1/me/jobs
func (h *Handler) ListMine(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req transport.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	var (
		result transport.JobListResponse
		err    error
	)
	if id.SubjectKind() == httpkit.SubjectFixer {
		result, err = h.svc.ListForFixer(c.Request.Context(), id.SubjectID(), req)
	} else {
		result, err = h.svc.ListForClient(c.Request.Context(), id.SubjectID(), req)
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ActOnMyJob lets a logged-in fixer accept, decline or complete a job.
// POST /api/v1/me/jobs/:id/:action
func (h *Handler) ActOnMyJob(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	if id.SubjectKind() != httpkit.SubjectFixer {
		httpkit.Error(c, http.StatusForbidden, msgFixersOnly, nil)
		return
	}
	jobID, ok := parseID(c)
	if !ok {
		return
	}
	h.act(c, c.Param("action"), jobID, id.SubjectID())
}

// ViewFixerLink shows the job behind a fixer action link.
// GET /api/v1/fixer-actions?token=...
func (h *Handler) ViewFixerLink(c *gin.Context) {
	var req transport.FixerActionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	link, err := h.links.InspectFixerLink(c.Request.Context(), req.Token)
	if httpkit.HandleError(c, err) {
		return
	}
	job, err := h.svc.ForFixer(c.Request.Context(), link.JobID, link.FixerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FixerActionResponse{
		Job:     service.ToResponse(job),
		Actions: service.AvailableActions(job),
	})
}

// UseFixerLink performs the action a fixer action link was issued for.
// POST /api/v1/fixer-actions/:action
func (h *Handler) UseFixerLink(c *gin.Context) {
	action := c.Param("action")
	purpose, ok := linkPurpose(action)
	if !ok {
		httpkit.Error(c, http.StatusNotFound, "unknown action", nil)
		return
	}

	var req transport.FixerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	link, err := h.links.ConsumeFixerLink(c.Request.Context(), req.Token, purpose)
	if httpkit.HandleError(c, err) {
		return
	}
	h.act(c, action, link.JobID, link.FixerID)
}

func (h *Handler) act(c *gin.Context, action string, jobID, fixerID int64) {
	ctx := c.Request.Context()
	resp := transport.ActionResultResponse{JobID: jobID}

	switch action {
	case "accept":
		job, err := h.svc.Accept(ctx, jobID, fixerID)
		if httpkit.HandleError(c, err) {
			return
		}
		resp.Status, resp.TrackingReference, resp.Message = string(job.Status), job.TrackingReference, msgAccepted
	case "decline":
		if _, err := h.svc.Decline(ctx, jobID, fixerID); httpkit.HandleError(c, err) {
			return
		}
		resp.Status, resp.Message = "declined", msgDeclined
	case "complete":
		job, err := h.svc.Complete(ctx, jobID, fixerID)
		if httpkit.HandleError(c, err) {
			return
		}
		resp.Status, resp.TrackingReference, resp.Message = string(job.Status), job.TrackingReference, msgCompleted
	default:
		httpkit.Error(c, http.StatusNotFound, "unknown action", nil)
		return
	}
	httpkit.OK(c, resp)
}

func linkPurpose(action string) (domain.LinkPurpose, bool) {
	switch action {
	case "accept", "decline":
		return domain.LinkFixerOffer, true
	case "complete":
		return domain.LinkFixerComplete, true
	}
	return "", false
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return 0, false
	}
	return id, true
}
