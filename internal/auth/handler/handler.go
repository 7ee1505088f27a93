package handler

import (
	"net/http"

	"fixmate_backend/internal/auth/service"
	"fixmate_backend/internal/auth/transport"
	"fixmate_backend/platform/httpkit"
	"fixmate_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for link based authentication.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgLinkSent         = "if the number is registered, a login link has been sent on WhatsApp"
)

// New creates a new auth handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the public auth routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login-link", h.RequestLoginLink)
	rg.POST("/exchange", h.Exchange)
}

// RequestLoginLink sends a login link over WhatsApp.
// POST /api/v1/auth/login-link
func (h *Handler) RequestLoginLink(c *gin.Context) {
	var req transport.LoginLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if httpkit.HandleError(c, h.svc.RequestLoginLink(c.Request.Context(), req.Phone)) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.MessageResponse{Message: msgLinkSent})
}

// Exchange trades a login link for an access token.
// POST /api/v1/auth/exchange
func (h *Handler) Exchange(c *gin.Context) {
	var req transport.ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Exchange(c.Request.Context(), req.Token)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Me describes the authenticated caller.
// GET /api/v1/me
func (h *Handler) Me(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	httpkit.OK(c, transport.MeResponse{
		SubjectID: id.SubjectID(),
		Kind:      id.SubjectKind(),
		Roles:     id.Roles(),
	})
}
