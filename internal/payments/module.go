// Package payments provides the call-out fee checkout: signed gateway
// redirects, the notification callback and the client landing pages.
package payments

import (
	apphttp "fixmate_backend/internal/http"
	"fixmate_backend/internal/payments/handler"
	"fixmate_backend/internal/payments/service"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/validator"
)

// Module is the payments module implementing http.Module.
type Module struct {
	handler *handler.Handler
	builder *service.Builder
}

// NewModule creates and initializes the payments module.
func NewModule(cfg config.PaymentConfig, jobs service.JobLifecycle, val *validator.Validator, log *logger.Logger) *Module {
	builder := service.NewBuilder(cfg)
	return &Module{
		handler: handler.New(service.New(builder, jobs, log), val),
		builder: builder,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "payments"
}

// Linker returns the redirect builder the jobs service uses to quote
// checkout links.
func (m *Module) Linker() *service.Builder {
	return m.builder
}

// RegisterRoutes mounts payment routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	payments := ctx.V1.Group("/payments")
	payments.Use(ctx.WebhookRateLimiter.RateLimit())
	payments.POST("/notify", m.handler.Notify)
	payments.GET("/return", m.handler.Return)
	payments.GET("/cancel", m.handler.Cancel)

	ctx.Protected.GET("/me/jobs/:id/payment", m.handler.Checkout)
	ctx.Protected.GET("/me/jobs/:id/payment/qr", m.handler.CheckoutQR)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
