package alerts

import (
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
)

// Summary is one user's daily digest.
type Summary struct {
	UserID           string    `json:"userId"`
	Date             time.Time `json:"date"`
	ActiveDeals      int       `json:"activeDeals"`
	TasksDueToday    int       `json:"tasksDueToday"`
	RemindersToday   int       `json:"remindersToday"`
	ActivitiesToday  int       `json:"activitiesToday"`
	OverdueTasks     int       `json:"overdueTasks"`
	OverdueReminders int       `json:"overdueReminders"`
}

// IsEmpty reports whether there is nothing to tell the user.
func (s Summary) IsEmpty() bool {
	return s.ActiveDeals == 0 && s.TasksDueToday == 0 && s.RemindersToday == 0 &&
		s.ActivitiesToday == 0 && s.OverdueTasks == 0 && s.OverdueReminders == 0
}

// DailySummary counts the user's work for the calendar day containing now.
// Deals count when the user is assigned; tasks when responsible; reminders when
// addressed to the user; activities when the user created them.
func DailySummary(userID string, deals []domain.Deal, tasks []domain.Task, reminders []domain.Reminder, activities []domain.Activity, now time.Time) Summary {
	today := domain.StartOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	isToday := func(t time.Time) bool { return !t.Before(today) && t.Before(tomorrow) }

	s := Summary{UserID: userID, Date: today}

	for _, d := range deals {
		if d.Stage.IsActive() && d.IsAssignedTo(userID) {
			s.ActiveDeals++
		}
	}
	for _, t := range tasks {
		if t.ResponsibleID != userID || t.Completed {
			continue
		}
		switch {
		case isToday(t.DueDate):
			s.TasksDueToday++
		case t.DueDate.Before(today):
			s.OverdueTasks++
		}
	}
	for _, r := range reminders {
		if r.UserID != userID || r.Completed {
			continue
		}
		switch {
		case isToday(r.Date):
			s.RemindersToday++
		case r.Date.Before(today):
			s.OverdueReminders++
		}
	}
	for _, a := range activities {
		if a.CreatedBy == userID && isToday(a.Date) {
			s.ActivitiesToday++
		}
	}
	return s
}
