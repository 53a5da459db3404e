// Package scoring computes deal health scores and next-action suggestions.
package scoring

import (
	"math"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
)

// Level is the bucket a score falls in.
type Level string

const (
	LevelHot  Level = "hot"
	LevelWarm Level = "warm"
	LevelCold Level = "cold"
)

const (
	// HotThreshold is the lowest hot score.
	HotThreshold = 70
	// WarmThreshold is the lowest warm score.
	WarmThreshold = 40

	wonScore  = 100
	lostScore = 0

	// Active deals start at baseScore; factor maxima keep the total within 0..100.
	baseScore        = 20.0
	maxRecency       = 40.0
	maxFrequency     = 20.0
	maxVelocityBonus = 10.0
	maxVelocityDrag  = 20.0
	followUpBonus    = 10.0

	// activitiesPerWeekForFullFrequency earns the whole frequency contribution.
	activitiesPerWeekForFullFrequency = 2.0
)

// Result holds a score and the factor breakdown behind it.
type Result struct {
	Score   int                `json:"score"`
	Level   Level              `json:"level"`
	Factors map[string]float64 `json:"factors,omitempty"`
}

// LevelFor buckets a score. Higher scores never map to a lower level.
func LevelFor(score int) Level {
	switch {
	case score >= HotThreshold:
		return LevelHot
	case score >= WarmThreshold:
		return LevelWarm
	default:
		return LevelCold
	}
}

// ComputeScore scores a deal from its own activities and tasks. Records owned by
// anything other than the deal are ignored.
func ComputeScore(deal domain.Deal, activities []domain.Activity, tasks []domain.Task, now time.Time, rules Rules) Result {
	switch deal.Stage {
	case domain.StageCerrado:
		return Result{Score: wonScore, Level: LevelFor(wonScore)}
	case domain.StagePerdido:
		return Result{Score: lostScore, Level: LevelFor(lostScore)}
	}

	own := ownActivities(deal.ID, activities)
	factors := map[string]float64{}
	score := baseScore

	score += addFactor(factors, "recency", scoreRecency(own, now, rules))
	score += addFactor(factors, "frequency", scoreFrequency(deal, own, now))
	score += addFactor(factors, "velocity", scoreVelocity(deal, now, rules))
	score += addFactor(factors, "follow_up", scoreFollowUp(deal.ID, tasks, now))

	final := clampScore(score)
	return Result{Score: final, Level: LevelFor(final), Factors: factors}
}

// scoreRecency decays exponentially with the age of the last activity.
func scoreRecency(own []domain.Activity, now time.Time, rules Rules) float64 {
	last, ok := lastActivityAt(own)
	if !ok {
		return 0
	}
	days := math.Max(now.Sub(last).Hours()/24, 0)
	return maxRecency * math.Exp(-math.Ln2*days/rules.halfLifeDays())
}

// scoreFrequency rewards activities per week over the deal's lifetime.
// Lifetimes shorter than a week count as one week.
func scoreFrequency(deal domain.Deal, own []domain.Activity, now time.Time) float64 {
	if len(own) == 0 {
		return 0
	}
	weeks := math.Max(now.Sub(deal.CreatedAt).Hours()/(24*7), 1)
	perWeek := float64(len(own)) / weeks
	return maxFrequency * clampFloat(perWeek/activitiesPerWeekForFullFrequency, 0, 1)
}

// scoreVelocity compares time in the current stage with the expected duration.
func scoreVelocity(deal domain.Deal, now time.Time, rules Rules) float64 {
	expected := rules.ExpectedDuration(deal.Stage)
	inStage := now.Sub(deal.StageEnteredAt())
	if inStage < 0 {
		inStage = 0
	}
	ratio := float64(inStage) / float64(expected)
	if ratio <= 1 {
		return maxVelocityBonus * (1 - ratio)
	}
	return -clampFloat((ratio-1)*maxVelocityDrag, 0, maxVelocityDrag)
}

// scoreFollowUp grants a bonus when an open task is scheduled for the future.
func scoreFollowUp(dealID string, tasks []domain.Task, now time.Time) float64 {
	for _, task := range tasks {
		if task.Owner.IsDeal(dealID) && !task.Completed && !task.DueDate.Before(now) {
			return followUpBonus
		}
	}
	return 0
}

func ownActivities(dealID string, activities []domain.Activity) []domain.Activity {
	out := make([]domain.Activity, 0, len(activities))
	for _, a := range activities {
		if a.Owner.IsDeal(dealID) {
			out = append(out, a)
		}
	}
	return out
}

func lastActivityAt(activities []domain.Activity) (time.Time, bool) {
	var last time.Time
	for _, a := range activities {
		if a.Date.After(last) {
			last = a.Date
		}
	}
	return last, !last.IsZero()
}

func addFactor(factors map[string]float64, key string, value float64) float64 {
	if math.Abs(value) < 0.01 {
		return 0
	}
	// Round to 1 decimal place for cleaner factor display
	factors[key] = math.Round(value*10) / 10
	return value
}

func clampScore(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func clampFloat(value float64, min float64, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
