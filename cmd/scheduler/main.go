package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"crm_pipeline_backend/internal/scheduler"
	"crm_pipeline_backend/platform/config"
	"crm_pipeline_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetSchedulerQueue())

	if !cfg.IsRedisEnabled() {
		log.Error("REDIS_URL is required for the scheduler")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	if err := periodic.Run(ctx); err != nil {
		log.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}
