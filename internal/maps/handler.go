package maps

import (
	"net/http"

	"fixmate_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the address search endpoint.
type Handler struct {
	geocoder *Geocoder
}

func NewHandler(geocoder *Geocoder) *Handler {
	return &Handler{geocoder: geocoder}
}

// LookupAddress handles GET /api/v1/admin/maps/address-lookup?q=...
func (h *Handler) LookupAddress(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "query 'q' is required (min 3 chars)", nil)
		return
	}

	places, err := h.geocoder.Search(c.Request.Context(), req.Query)
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, "address lookup service unavailable", nil)
		return
	}

	httpkit.OK(c, places)
}
