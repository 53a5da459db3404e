// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq client, worker and scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetSchedulerQueue() string
	GetSchedulerConcurrency() int
	GetAlertScanCron() string
	GetDailySummaryCron() string
	GetReversalSweepCron() string
}

// PipelineConfig provides the rules for the pipeline module.
type PipelineConfig interface {
	GetPipelineRules() PipelineRules
	GetReversalStore() string
	GetPhoneRegion() string
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	DatabaseMaxConns     int
	JWTAccessSecret      string
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	RedisURL             string
	RedisTLSInsecure     bool
	SchedulerQueue       string
	SchedulerConcurrency int
	AlertScanCron        string
	DailySummaryCron     string
	ReversalSweepCron    string
	ReversalStore        string
	PhoneRegion          string
	PipelineRulesFile    string
	PipelineRules        PipelineRules
	EmailEnabled         bool
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	EmailFromName        string
	EmailFromAddress     string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string   { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int { return c.DatabaseMaxConns }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string          { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool    { return c.RedisTLSInsecure }
func (c *Config) GetSchedulerQueue() string    { return c.SchedulerQueue }
func (c *Config) GetSchedulerConcurrency() int { return c.SchedulerConcurrency }
func (c *Config) GetAlertScanCron() string     { return c.AlertScanCron }
func (c *Config) GetDailySummaryCron() string  { return c.DailySummaryCron }
func (c *Config) GetReversalSweepCron() string { return c.ReversalSweepCron }

// PipelineConfig implementation
func (c *Config) GetPipelineRules() PipelineRules { return c.PipelineRules }
func (c *Config) GetReversalStore() string        { return c.ReversalStore }
func (c *Config) GetPhoneRegion() string          { return c.PhoneRegion }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// IsRedisEnabled reports whether background jobs and the redis token store can run.
func (c *Config) IsRedisEnabled() bool { return c.RedisURL != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:     mustInt(getEnv("DATABASE_MAX_CONNS", "10")),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		SchedulerQueue:       getEnv("SCHEDULER_QUEUE", "pipeline"),
		SchedulerConcurrency: mustInt(getEnv("SCHEDULER_CONCURRENCY", "4")),
		AlertScanCron:        getEnv("ALERT_SCAN_CRON", "0 * * * *"),
		DailySummaryCron:     getEnv("DAILY_SUMMARY_CRON", "0 7 * * *"),
		ReversalSweepCron:    getEnv("REVERSAL_SWEEP_CRON", "*/15 * * * *"),
		ReversalStore:        strings.ToLower(getEnv("REVERSAL_STORE", "memory")),
		PhoneRegion:          strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "MX")),
		PipelineRulesFile:    getEnv("PIPELINE_RULES_FILE", ""),
		EmailEnabled:         emailEnabled && smtpHost != "",
		SMTPHost:             smtpHost,
		SMTPPort:             mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		EmailFromName:        getEnv("EMAIL_FROM_NAME", "CRM Pipeline"),
		EmailFromAddress:     getEnv("EMAIL_FROM_ADDRESS", ""),
	}

	rules, err := LoadPipelineRules(cfg.PipelineRulesFile)
	if err != nil {
		return nil, err
	}
	cfg.PipelineRules = rules

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	switch cfg.ReversalStore {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when REVERSAL_STORE is redis")
		}
	default:
		return nil, fmt.Errorf("REVERSAL_STORE must be memory or redis, got %q", cfg.ReversalStore)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}

// durationOr parses value, keeping fallback for empty or malformed input.
func durationOr(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
