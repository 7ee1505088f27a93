// Package webhook receives inbound WhatsApp messages from the gateway,
// drops redeliveries and hands each message to the conversation engine.
package webhook

import (
	apphttp "fixmate_backend/internal/http"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/logger"
)

// Module is the webhook module implementing http.Module.
type Module struct {
	handler   *Handler
	appSecret string
}

// NewModule creates and initializes the webhook module.
func NewModule(cfg config.WhatsAppConfig, dedup Deduplicator, dispatcher Dispatcher, log *logger.Logger) *Module {
	return &Module{
		handler:   NewHandler(NewService(dedup, dispatcher, log), cfg.GetWhatsAppVerifyToken()),
		appSecret: cfg.GetWhatsAppAppSecret(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook/whatsapp")
	group.Use(ctx.WebhookRateLimiter.RateLimit(), SignatureMiddleware(m.appSecret))
	group.GET("", m.handler.HandleVerify)
	group.POST("", m.handler.HandleInbound)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
