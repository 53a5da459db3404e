package scheduler

import (
	"context"
	"fmt"
	"time"

	"crm_pipeline_backend/platform/config"
	"crm_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Entry is one cron-driven pipeline job.
type Entry struct {
	Cron     string
	TaskType string
}

// Entries returns the configured periodic jobs. A blank cron spec disables a job.
func Entries(cfg config.SchedulerConfig) []Entry {
	all := []Entry{
		{Cron: cfg.GetAlertScanCron(), TaskType: TaskAlertScan},
		{Cron: cfg.GetDailySummaryCron(), TaskType: TaskDailySummary},
		{Cron: cfg.GetReversalSweepCron(), TaskType: TaskReversalSweep},
	}
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Cron != "" {
			out = append(out, e)
		}
	}
	return out
}

// Periodic enqueues the pipeline jobs on their cron schedules.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Error("periodic enqueue failed", "error", err)
				return
			}
			log.Debug("periodic task enqueued", "task", info.Type, "id", info.ID)
		},
	})

	queue := queueName(cfg)
	for _, e := range Entries(cfg) {
		// At most one pending run per job.
		id, err := s.Register(e.Cron, NewPipelineTask(e.TaskType), asynq.Queue(queue), asynq.MaxRetry(1), asynq.Unique(time.Minute))
		if err != nil {
			return nil, fmt.Errorf("register %s (%q): %w", e.TaskType, e.Cron, err)
		}
		log.Info("periodic task registered", "task", e.TaskType, "cron", e.Cron, "entryId", id)
	}

	return &Periodic{scheduler: s, log: log}, nil
}

// Run blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}
