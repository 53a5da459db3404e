package scoring

import (
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/platform/config"
)

const fallbackExpectedDays = 14

// Rules are the tunable inputs of scoring and suggestions.
type Rules struct {
	// ExpectedStageDays is how long a healthy deal stays in each active stage.
	ExpectedStageDays map[domain.Stage]int
	// StalenessDays is the age of the last activity that triggers a follow-up call.
	StalenessDays int
	// StallMultiplier scales the expected stage duration into the escalation threshold.
	StallMultiplier float64
	// RecencyHalfLifeDays is the half-life of the recency contribution.
	RecencyHalfLifeDays float64
}

// DefaultRules mirrors config.DefaultPipelineRules.
func DefaultRules() Rules {
	return RulesFromConfig(config.DefaultPipelineRules())
}

// RulesFromConfig converts loaded configuration into scoring rules.
func RulesFromConfig(cfg config.PipelineRules) Rules {
	expected := make(map[domain.Stage]int, len(cfg.ExpectedStageDays))
	for stage, days := range cfg.ExpectedStageDays {
		expected[domain.Stage(stage)] = days
	}
	return Rules{
		ExpectedStageDays:   expected,
		StalenessDays:       cfg.StalenessDays,
		StallMultiplier:     cfg.StallMultiplier,
		RecencyHalfLifeDays: cfg.RecencyHalfLifeDays,
	}
}

// ExpectedDuration is the healthy time in stage.
func (r Rules) ExpectedDuration(stage domain.Stage) time.Duration {
	days, ok := r.ExpectedStageDays[stage]
	if !ok || days <= 0 {
		days = fallbackExpectedDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// StallThreshold is the time in stage after which a deal should be escalated.
func (r Rules) StallThreshold(stage domain.Stage) time.Duration {
	multiplier := r.StallMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	return time.Duration(float64(r.ExpectedDuration(stage)) * multiplier)
}

// StalenessWindow is the maximum age of the last activity before a follow-up is due.
func (r Rules) StalenessWindow() time.Duration {
	days := r.StalenessDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

func (r Rules) halfLifeDays() float64 {
	if r.RecencyHalfLifeDays <= 0 {
		return 7
	}
	return r.RecencyHalfLifeDays
}
