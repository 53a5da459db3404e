// Package pipeline provides the sales pipeline bounded context module.
package pipeline

import (
	"context"

	"crm_pipeline_backend/internal/events"
	apphttp "crm_pipeline_backend/internal/http"
	"crm_pipeline_backend/internal/pipeline/handler"
	"crm_pipeline_backend/internal/pipeline/repository"
	"crm_pipeline_backend/internal/pipeline/reversal"
	"crm_pipeline_backend/internal/pipeline/service"
	"crm_pipeline_backend/internal/pipeline/store"
	"crm_pipeline_backend/platform/config"
	"crm_pipeline_backend/platform/httpkit"
	"crm_pipeline_backend/platform/logger"
	"crm_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WriteRole is the JWT role required for mutating pipeline routes.
const WriteRole = "pipeline:write"

// Module is the pipeline bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// Options are the collaborators of the module. A nil Pool keeps state in memory.
type Options struct {
	Pool     *pgxpool.Pool
	Tokens   reversal.TokenStore
	Notifier service.Notifier
	Bus      events.Bus
	Config   config.PipelineConfig
	Log      *logger.Logger
}

// NewModule loads the pipeline state and wires the module.
func NewModule(ctx context.Context, opts Options, val *validator.Validator) (*Module, error) {
	cols := store.NewMemoryCollections()
	if opts.Pool != nil {
		cols = repository.NewCollections(opts.Pool)
	}

	svc, err := service.New(ctx, service.Deps{
		Collections: cols,
		Tokens:      opts.Tokens,
		Notifier:    opts.Notifier,
		Bus:         opts.Bus,
		Rules:       opts.Config.GetPipelineRules(),
		PhoneRegion: opts.Config.GetPhoneRegion(),
		Log:         opts.Log,
	})
	if err != nil {
		return nil, err
	}

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// Service returns the service layer for the scheduler worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// Close flushes pending writes.
func (m *Module) Close(ctx context.Context) error {
	return m.service.Close(ctx)
}

// RegisterRoutes mounts pipeline routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/pipeline")

	group.GET("/deals", m.handler.ListDeals)
	group.GET("/deals/:id", m.handler.GetDeal)
	group.GET("/alerts", m.handler.Alerts)
	group.GET("/summary", m.handler.Summary)
	group.GET("/sync", m.handler.SyncStatus)
	group.GET("/users", m.handler.ListUsers)

	write := group.Group("", httpkit.RequireRole(WriteRole))
	if ctx.WriteRateLimiter != nil {
		write.Use(ctx.WriteRateLimiter.RateLimit())
	}
	write.POST("/deals", m.handler.CreateDeal)
	write.PATCH("/deals/:id", m.handler.UpdateDeal)
	write.DELETE("/deals/:id", m.handler.DeleteDeal)
	write.POST("/deals/:id/transition", m.handler.Transition)
	write.POST("/deals/:id/activities", m.handler.AddActivity)
	write.POST("/deals/:id/tasks", m.handler.AddTask)
	write.POST("/deals/:id/reminders", m.handler.AddReminder)
	write.POST("/tasks/:id/complete", m.handler.CompleteTask)
	write.POST("/reminders/:id/complete", m.handler.CompleteReminder)
	write.POST("/reversals/:token/confirm", m.handler.ConfirmReversal)
	write.POST("/reversals/:token/cancel", m.handler.CancelReversal)
	write.PUT("/users/:id", m.handler.UpsertUser)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
