package handler

import (
	"net/http"
	"strconv"

	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/fixers/service"
	"fixmate_backend/internal/fixers/transport"
	"fixmate_backend/platform/httpkit"
	"fixmate_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for fixers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid fixer ID"
	msgFixersOnly       = "only fixers can update a location"
)

// New creates a new fixers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves fixers.
// GET /api/v1/admin/fixers
func (h *Handler) List(c *gin.Context) {
	var req transport.ListFixersRequest
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

// Create registers a fixer.
// POST /api/v1/admin/fixers
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateFixerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// SetActive activates or deactivates a fixer.
// PATCH /api/v1/admin/fixers/:id/active
func (h *Handler) SetActive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if httpkit.HandleError(c, h.svc.SetActive(c.Request.Context(), id, *req.IsActive)) {
		return
	}
	httpkit.OK(c, gin.H{"id": id, "isActive": *req.IsActive})
}

// SetVetting records a vetting decision.
// PATCH /api/v1/admin/fixers/:id/vetting
func (h *Handler) SetVetting(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.SetVettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	status := domain.VettingStatus(req.VettingStatus)
	if httpkit.HandleError(c, h.svc.SetVettingStatus(c.Request.Context(), id, status)) {
		return
	}
	httpkit.OK(c, gin.H{"id": id, "vettingStatus": status})
}

// UpdateMyLocation stores the calling fixer's position.
// PUT /api/v1/me/location
func (h *Handler) UpdateMyLocation(c *gin.Context) {
	var req transport.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if identity.SubjectKind() != httpkit.SubjectFixer {
		httpkit.Error(c, http.StatusForbidden, msgFixersOnly, nil)
		return
	}

	err := h.svc.UpdateLocation(c.Request.Context(), identity.SubjectID(), *req.Latitude, *req.Longitude)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return 0, false
	}
	return id, true
}
