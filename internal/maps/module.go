package maps

import (
	apphttp "fixmate_backend/internal/http"
)

// Module wires the admin address lookup route.
type Module struct {
	handler *Handler
}

// NewModule returns nil when geocoding is disabled.
func NewModule(geocoder *Geocoder) *Module {
	if geocoder == nil {
		return nil
	}
	return &Module{handler: NewHandler(geocoder)}
}

func (m *Module) Name() string {
	return "maps"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/maps")
	group.GET("/address-lookup", m.handler.LookupAddress)
}

var _ apphttp.Module = (*Module)(nil)
