// Package http holds what the router needs from the composition root: the
// module contract and the application dependencies.
package http

import (
	"context"

	"fixmate_backend/platform/config"
	"fixmate_backend/platform/events"
	"fixmate_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is pinged by the readiness endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthFunc adapts a function to HealthChecker.
type HealthFunc func(ctx context.Context) error

func (f HealthFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// App is assembled by cmd/api and handed to the router.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health checks the database.
	Health HealthChecker
	// Queue checks Redis. Nil when the deployment runs without it.
	Queue    HealthChecker
	EventBus events.Bus
	Modules  []Module
}
