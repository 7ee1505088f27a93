// Package clients provides the clients bounded context module: the client
// records the conversation engine reads and writes, plus admin routes.
package clients

import (
	"fixmate_backend/internal/clients/handler"
	"fixmate_backend/internal/clients/repository"
	"fixmate_backend/internal/clients/service"
	apphttp "fixmate_backend/internal/http"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the clients module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "clients"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the conversation engine.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts admin client routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	adminGroup := ctx.Admin.Group("/clients")
	adminGroup.GET("", m.handler.List)
	adminGroup.PATCH("/:id/admin", m.handler.SetAdmin)
	adminGroup.DELETE("/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
