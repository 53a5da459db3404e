// Package http wires the pipeline and notification modules into one gin engine.
package http

import (
	"context"

	"crm_pipeline_backend/platform/config"
	"crm_pipeline_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is pinged by GET /api/health. The pgx pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is built by cmd/api and handed to the router.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health is optional; without it the health route always reports ok.
	Health  HealthChecker
	Modules []Module
}
