// Package fixers provides the fixers bounded context module: registration,
// vetting, activation and the fixer's own location updates.
package fixers

import (
	"fixmate_backend/internal/fixers/handler"
	"fixmate_backend/internal/fixers/repository"
	"fixmate_backend/internal/fixers/service"
	apphttp "fixmate_backend/internal/http"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the fixers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the fixers module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "fixers"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts fixer routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.PUT("/me/location", m.handler.UpdateMyLocation)

	adminGroup := ctx.Admin.Group("/fixers")
	adminGroup.GET("", m.handler.List)
	adminGroup.POST("", m.handler.Create)
	adminGroup.PATCH("/:id/active", m.handler.SetActive)
	adminGroup.PATCH("/:id/vetting", m.handler.SetVetting)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
