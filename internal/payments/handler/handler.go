package handler

import (
	"net/http"
	"strconv"

	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/payments/service"
	"fixmate_backend/internal/payments/transport"
	"fixmate_backend/platform/httpkit"
	"fixmate_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for payments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid job ID"

	msgPaid      = "Thank you, your payment was received. You will get WhatsApp updates about your fixer."
	msgPending   = "Thank you! We are confirming your payment and will update you on WhatsApp."
	msgCancelled = "Payment was cancelled. Reply on WhatsApp any time to request a fixer again."
)

// New creates a new payments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Notify receives the gateway's server-to-server notification.
// POST /api/v1/payments/notify
func (h *Handler) Notify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if _, err := h.svc.HandleNotify(c.Request.Context(), c.Request.PostForm); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusOK)
}

// Return is where the gateway sends the client after checkout.
// GET /api/v1/payments/return?job=...
func (h *Handler) Return(c *gin.Context) {
	h.landing(c, func(job domain.Job) string {
		if job.PaymentStatus == domain.PaymentPaid {
			return msgPaid
		}
		return msgPending
	})
}

// Cancel is where the gateway sends the client after abandoning checkout.
// GET /api/v1/payments/cancel?job=...
func (h *Handler) Cancel(c *gin.Context) {
	h.landing(c, func(domain.Job) string { return msgCancelled })
}

func (h *Handler) landing(c *gin.Context, message func(domain.Job) string) {
	var req transport.JobRef
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.Status(c.Request.Context(), req.JobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.LandingResponse{
		JobID:         job.ID,
		Status:        string(job.Status),
		PaymentStatus: string(job.PaymentStatus),
		Message:       message(job),
	})
}

// Checkout returns the signed checkout link for the caller's job.
// GET /api/v1/me/jobs/:id/payment
func (h *Handler) Checkout(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	jobID, ok := parseID(c)
	if !ok {
		return
	}

	link, err := h.svc.CheckoutFor(c.Request.Context(), jobID, id.SubjectID(), id.HasRole(httpkit.RoleAdmin))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CheckoutResponse{JobID: jobID, PaymentURL: link})
}

// CheckoutQR renders the caller's checkout link as a QR code.
// GET /api/v1/me/jobs/:id/payment/qr
func (h *Handler) CheckoutQR(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	jobID, ok := parseID(c)
	if !ok {
		return
	}

	png, err := h.svc.CheckoutQR(c.Request.Context(), jobID, id.SubjectID(), id.HasRole(httpkit.RoleAdmin))
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return 0, false
	}
	return id, true
}
