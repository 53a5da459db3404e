package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_pipeline_backend/internal/email"
	"crm_pipeline_backend/internal/events"
	apphttp "crm_pipeline_backend/internal/http"
	"crm_pipeline_backend/internal/http/router"
	"crm_pipeline_backend/internal/notification"
	"crm_pipeline_backend/internal/pipeline"
	"crm_pipeline_backend/internal/pipeline/reversal"
	"crm_pipeline_backend/internal/scheduler"
	"crm_pipeline_backend/migrations"
	"crm_pipeline_backend/platform/config"
	"crm_pipeline_backend/platform/db"
	"crm_pipeline_backend/platform/logger"
	"crm_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS, log)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	tokens, closeTokens := initTokenStore(ctx, cfg, log)
	if closeTokens != nil {
		defer closeTokens()
	}

	smtpSender := email.NewSender(cfg)
	jobClient, closeClient := initJobClient(cfg, log)
	if closeClient != nil {
		defer closeClient()
	}

	// Emails go through the queue when one is configured.
	var mailer email.Sender = smtpSender
	if jobClient != nil {
		mailer = jobClient
	}

	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	notificationModule := notification.New(pool, mailer, log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.Close()

	pipelineModule, err := pipeline.NewModule(ctx, pipeline.Options{
		Pool:     pool,
		Tokens:   tokens,
		Notifier: notificationModule,
		Bus:      eventBus,
		Config:   cfg,
		Log:      log,
	}, val)
	if err != nil {
		log.Error("failed to initialize pipeline module", "error", err)
		panic("failed to initialize pipeline module: " + err.Error())
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := pipelineModule.Close(closeCtx); err != nil {
			log.Error("failed to flush pipeline state", "error", err)
		}
	}()

	pipelineSvc := pipelineModule.Service()
	notificationModule.SetDirectory(notification.DirectoryFunc(func(userID string) (notification.Recipient, bool) {
		u, ok := pipelineSvc.User(userID)
		return notification.Recipient{Name: u.Name, Email: u.Email}, ok
	}))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			pipelineModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.IsRedisEnabled() {
		// The worker lives here so the pipeline keeps a single writer.
		worker, err := scheduler.NewWorker(cfg, pipelineSvc, smtpSender, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	} else {
		log.Warn("REDIS_URL not configured; alert scans, summaries and reversal sweeps disabled")
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}
	log.Info("server stopped")
}

func initTokenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (reversal.TokenStore, func()) {
	if cfg.GetReversalStore() != "redis" {
		return reversal.NewMemoryTokenStore(nil), nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		panic("invalid REDIS_URL: " + err.Error())
	}
	rdb := redis.NewClient(opt)
	if err := withRetry(ctx, log, "redis connection", 5, time.Second, func() error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	log.Info("reversal tokens stored in redis")

	return reversal.NewRedisTokenStore(rdb, nil), func() { _ = rdb.Close() }
}

func initJobClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
