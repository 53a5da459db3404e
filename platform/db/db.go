// Package db provides database connection infrastructure.
// This is part of the platform layer and contains no business logic.
package db

import (
	"context"
	"fmt"
	"time"

	"crm_pipeline_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const minIdleConns = 2

// NewPool creates a connection pool. The pipeline flushes through a single
// writer, so the pool mostly serves the inbox and health checks.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	maxConns := int32(cfg.GetDatabaseMaxConns())
	if maxConns < minIdleConns {
		maxConns = minIdleConns
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minIdleConns
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
