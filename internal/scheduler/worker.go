package scheduler

import (
	"context"
	"fmt"

	"crm_pipeline_backend/internal/email"
	"crm_pipeline_backend/platform/config"
	"crm_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// PipelineJobs are the periodic pipeline operations. Each returns how many
// notices or detachments it produced.
type PipelineJobs interface {
	RunAlertScan(ctx context.Context) (int, error)
	RunDailySummary(ctx context.Context) (int, error)
	RunReversalSweep(ctx context.Context) (int, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	jobs   PipelineJobs
	mailer email.Sender
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs PipelineJobs, mailer email.Sender, log *logger.Logger) (*Worker, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetSchedulerConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	return &Worker{
		server: server,
		mux:    newMux(jobs, mailer, log),
		jobs:   jobs,
		mailer: mailer,
		log:    log,
	}, nil
}

func newMux(jobs PipelineJobs, mailer email.Sender, log *logger.Logger) *asynq.ServeMux {
	h := &taskHandlers{jobs: jobs, mailer: mailer, log: log}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAlertScan, h.handleAlertScan)
	mux.HandleFunc(TaskDailySummary, h.handleDailySummary)
	mux.HandleFunc(TaskReversalSweep, h.handleReversalSweep)
	mux.HandleFunc(TaskNotificationEmail, h.handleNotificationEmail)
	return mux
}

type taskHandlers struct {
	jobs   PipelineJobs
	mailer email.Sender
	log    *logger.Logger
}

func (h *taskHandlers) handleAlertScan(ctx context.Context, _ *asynq.Task) error {
	sent, err := h.jobs.RunAlertScan(ctx)
	if err != nil {
		return fmt.Errorf("alert scan: %w", err)
	}
	h.log.Info("alert scan finished", "notices", sent)
	return nil
}

func (h *taskHandlers) handleDailySummary(ctx context.Context, _ *asynq.Task) error {
	sent, err := h.jobs.RunDailySummary(ctx)
	if err != nil {
		return fmt.Errorf("daily summary: %w", err)
	}
	h.log.Info("daily summary finished", "notices", sent)
	return nil
}

func (h *taskHandlers) handleReversalSweep(ctx context.Context, _ *asynq.Task) error {
	detached, err := h.jobs.RunReversalSweep(ctx)
	if err != nil {
		return fmt.Errorf("reversal sweep: %w", err)
	}
	h.log.Info("reversal sweep finished", "detached", detached)
	return nil
}

func (h *taskHandlers) handleNotificationEmail(ctx context.Context, task *asynq.Task) error {
	msg, err := ParseNotificationEmailPayload(task)
	if err != nil {
		return fmt.Errorf("decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if msg.ToEmail == "" {
		return nil
	}
	return h.mailer.SendNotificationEmail(ctx, msg)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
