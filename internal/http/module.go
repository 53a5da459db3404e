package http

import (
	"crm_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the shared groups and middleware handed to every module.
type RouterContext struct {
	// Protected is /api/v1 behind JWT validation.
	Protected *gin.RouterGroup
	// WriteRateLimiter throttles mutating requests per client IP. Nil disables it.
	WriteRateLimiter *httpkit.IPRateLimiter
}
