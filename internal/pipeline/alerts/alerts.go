// Package alerts scans pipeline records for stale deals and overdue work.
// Every function is pure: results depend only on the arguments.
package alerts

import (
	"sort"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
)

const (
	// DefaultStalledDays is the inactivity window of StalledDeals.
	DefaultStalledDays = 7
	// DefaultStuckDays is the time-in-stage window of StuckInStage.
	DefaultStuckDays = 14
)

// StalledDeal is an active deal without recent activity.
type StalledDeal struct {
	Deal         domain.Deal `json:"deal"`
	LastActivity time.Time   `json:"lastActivity"`
	DaysIdle     int         `json:"daysIdle"`
}

// StuckDeal is a deal whose last stage change is old.
type StuckDeal struct {
	Deal        domain.Deal `json:"deal"`
	EnteredAt   time.Time   `json:"enteredAt"`
	DaysInStage int         `json:"daysInStage"`
}

// StalledDeals returns active deals whose most recent own activity, or creation
// date when there is none, is older than thresholdDays. Sorted most idle first.
func StalledDeals(deals []domain.Deal, activities []domain.Activity, thresholdDays int, now time.Time) []StalledDeal {
	lastByDeal := make(map[string]time.Time)
	for _, a := range activities {
		if a.Owner.Kind != domain.OwnerPipeline {
			continue
		}
		if a.Date.After(lastByDeal[a.Owner.ID]) {
			lastByDeal[a.Owner.ID] = a.Date
		}
	}

	cutoff := now.Add(-days(thresholdDays))
	out := make([]StalledDeal, 0)
	for _, d := range deals {
		if d.Stage.IsTerminal() {
			continue
		}
		last, ok := lastByDeal[d.ID]
		if !ok {
			last = d.CreatedAt
		}
		if last.Before(cutoff) {
			out = append(out, StalledDeal{Deal: d, LastActivity: last, DaysIdle: wholeDays(now.Sub(last))})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastActivity.Before(out[j].LastActivity) })
	return out
}

// StuckInStage returns deals whose last history entry is older than thresholdDays.
// Terminal deals are included; callers that only care about open work filter them.
func StuckInStage(deals []domain.Deal, thresholdDays int, now time.Time) []StuckDeal {
	cutoff := now.Add(-days(thresholdDays))
	out := make([]StuckDeal, 0)
	for _, d := range deals {
		entered := d.StageEnteredAt()
		if entered.Before(cutoff) {
			out = append(out, StuckDeal{Deal: d, EnteredAt: entered, DaysInStage: wholeDays(now.Sub(entered))})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EnteredAt.Before(out[j].EnteredAt) })
	return out
}

// OverdueReminders returns incomplete reminders dated before the start of today.
func OverdueReminders(reminders []domain.Reminder, now time.Time) []domain.Reminder {
	today := domain.StartOfDay(now)
	out := make([]domain.Reminder, 0)
	for _, r := range reminders {
		if !r.Completed && r.Date.Before(today) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// OverdueTasks returns incomplete tasks due before the start of today.
func OverdueTasks(tasks []domain.Task, now time.Time) []domain.Task {
	today := domain.StartOfDay(now)
	out := make([]domain.Task, 0)
	for _, t := range tasks {
		if !t.Completed && t.DueDate.Before(today) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func wholeDays(d time.Duration) int {
	return int(d.Hours() / 24)
}
