// Package jobs provides the jobs bounded context module: the job lifecycle
// service, fixer action routes and admin job routes.
package jobs

import (
	"fixmate_backend/internal/events"
	apphttp "fixmate_backend/internal/http"
	"fixmate_backend/internal/jobs/handler"
	"fixmate_backend/internal/jobs/repository"
	"fixmate_backend/internal/jobs/service"
	"fixmate_backend/platform/db"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the jobs bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the jobs module. Optional collaborators
// (rating prompter, link issuer, offer scheduler, payment linker) are set on
// the service afterwards.
func NewModule(pool *pgxpool.Pool, tx db.Transactor, matcher service.Matcher, fixers service.FixerDirectory, clients service.ClientDirectory, links handler.LinkVerifier, eventBus events.Bus, cfg service.Config, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tx, matcher, fixers, clients, eventBus, cfg, log)

	return &Module{
		handler: handler.New(svc, links, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "jobs"
}

// Service returns the lifecycle service for the conversation engine,
// payments and the scheduler.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts job routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	actions := ctx.V1.Group("/fixer-actions")
	actions.Use(ctx.AuthRateLimiter.RateLimit())
	actions.GET("", m.handler.ViewFixerLink)
	actions.POST("/:action", m.handler.UseFixerLink)

	ctx.Protected.GET("/me/jobs", m.handler.ListMine)
	ctx.Protected.POST("/me/jobs/:id/:action", m.handler.ActOnMyJob)

	adminGroup := ctx.Admin.Group("/jobs")
	adminGroup.GET("", m.handler.List)
	adminGroup.GET("/:id", m.handler.Get)
	adminGroup.POST("/:id/assign", m.handler.Assign)
	adminGroup.POST("/:id/cancel", m.handler.Cancel)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
