package webhook

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const errInvalidRequest = "invalid request body"

// Handler handles webhook HTTP requests.
type Handler struct {
	service     *Service
	verifyToken string
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, verifyToken string) *Handler {
	return &Handler{service: service, verifyToken: verifyToken}
}

// HandleVerify answers the subscription handshake.
// GET /api/v1/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=...&hub.challenge=...
func (h *Handler) HandleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode != "subscribe" || h.verifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		c.Status(http.StatusForbidden)
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// HandleInbound acknowledges a webhook delivery and hands its messages on.
// The gateway only needs a fast 200; processing happens asynchronously.
// POST /api/v1/webhook/whatsapp
func (h *Handler) HandleInbound(c *gin.Context) {
	var payload Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	accepted := h.service.Ingest(c.Request.Context(), payload)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}
