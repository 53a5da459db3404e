package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PipelineRules holds the tunable thresholds of the pipeline module.
// Stage keys are the pipeline stage identifiers.
type PipelineRules struct {
	ExpectedStageDays   map[string]int
	StalenessDays       int
	StallMultiplier     float64
	StalledDealDays     int
	StuckInStageDays    int
	RecencyHalfLifeDays float64
	PersistDebounce     time.Duration
	ReversalTokenTTL    time.Duration
}

// rulesFile is the on-disk shape of PIPELINE_RULES_FILE. Zero values keep the default.
type rulesFile struct {
	ExpectedStageDays   map[string]int `yaml:"expected_stage_days"`
	StalenessDays       int            `yaml:"staleness_days"`
	StallMultiplier     float64        `yaml:"stall_multiplier"`
	StalledDealDays     int            `yaml:"stalled_deal_days"`
	StuckInStageDays    int            `yaml:"stuck_in_stage_days"`
	RecencyHalfLifeDays float64        `yaml:"recency_half_life_days"`
	PersistDebounce     string         `yaml:"persist_debounce"`
	ReversalTokenTTL    string         `yaml:"reversal_token_ttl"`
}

// DefaultPipelineRules returns the built-in thresholds.
func DefaultPipelineRules() PipelineRules {
	return PipelineRules{
		ExpectedStageDays: map[string]int{
			"prospecto":   7,
			"contacto":    7,
			"diagnostico": 14,
			"piloto":      21,
			"negociacion": 14,
		},
		StalenessDays:       7,
		StallMultiplier:     1.5,
		StalledDealDays:     7,
		StuckInStageDays:    14,
		RecencyHalfLifeDays: 7,
		PersistDebounce:     2 * time.Second,
		ReversalTokenTTL:    72 * time.Hour,
	}
}

// LoadPipelineRules returns the defaults overlaid with the YAML file at path.
// An empty path yields the defaults.
func LoadPipelineRules(path string) (PipelineRules, error) {
	rules := DefaultPipelineRules()
	if path == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read pipeline rules %s: %w", path, err)
	}
	return ParsePipelineRules(raw)
}

// ParsePipelineRules overlays a YAML document on the defaults.
func ParsePipelineRules(raw []byte) (PipelineRules, error) {
	rules := DefaultPipelineRules()

	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return rules, fmt.Errorf("parse pipeline rules: %w", err)
	}

	for stage, days := range file.ExpectedStageDays {
		if days <= 0 {
			return rules, fmt.Errorf("expected_stage_days.%s must be positive, got %d", stage, days)
		}
		rules.ExpectedStageDays[stage] = days
	}
	if file.StalenessDays > 0 {
		rules.StalenessDays = file.StalenessDays
	}
	if file.StallMultiplier > 0 {
		rules.StallMultiplier = file.StallMultiplier
	}
	if file.StalledDealDays > 0 {
		rules.StalledDealDays = file.StalledDealDays
	}
	if file.StuckInStageDays > 0 {
		rules.StuckInStageDays = file.StuckInStageDays
	}
	if file.RecencyHalfLifeDays > 0 {
		rules.RecencyHalfLifeDays = file.RecencyHalfLifeDays
	}
	rules.PersistDebounce = durationOr(file.PersistDebounce, rules.PersistDebounce)
	rules.ReversalTokenTTL = durationOr(file.ReversalTokenTTL, rules.ReversalTokenTTL)

	return rules, nil
}
