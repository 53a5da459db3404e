package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"crm_pipeline_backend/internal/pipeline/alerts"
	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/transport"
)

// Alerts returns the current stalled deals, stuck deals and overdue work.
func (s *Service) Alerts(_ context.Context) transport.AlertsResponse {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alertsLocked(now)
}

func (s *Service) alertsLocked(now time.Time) transport.AlertsResponse {
	deals := s.snap.DealList()
	return transport.AlertsResponse{
		Stalled:          alerts.StalledDeals(deals, s.snap.DealActivities(), s.stalledDays(), now),
		Stuck:            openStuck(alerts.StuckInStage(deals, s.stuckDays(), now)),
		OverdueTasks:     alerts.OverdueTasks(s.snap.TaskList(), now),
		OverdueReminders: alerts.OverdueReminders(s.snap.ReminderList(), now),
	}
}

func openStuck(stuck []alerts.StuckDeal) []alerts.StuckDeal {
	out := stuck[:0]
	for _, d := range stuck {
		if !d.Deal.Stage.IsTerminal() {
			out = append(out, d)
		}
	}
	return out
}

// Summary returns the daily digest of one user.
func (s *Service) Summary(_ context.Context, userID string) alerts.Summary {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return alerts.DailySummary(userID, s.snap.DealList(), s.snap.TaskList(), s.snap.ReminderList(), s.snap.ActivityList(), now)
}

// RunAlertScan notifies assignees about stalled and stuck deals and responsible
// users about overdue tasks and reminders. It returns the number of notices sent.
func (s *Service) RunAlertScan(ctx context.Context) (int, error) {
	now := s.clock.Now()
	s.mu.RLock()
	found := s.alertsLocked(now)
	s.mu.RUnlock()

	var notices []domain.Notice
	for _, d := range found.Stalled {
		notices = append(notices, domain.Notice{
			UserID:   d.Deal.PrimaryAssignee(),
			Message:  fmt.Sprintf("%s lleva %d días sin actividad", dealLabel(d.Deal), d.DaysIdle),
			Category: domain.CategoryWarning,
		})
	}
	for _, d := range found.Stuck {
		notices = append(notices, domain.Notice{
			UserID:   d.Deal.PrimaryAssignee(),
			Message:  fmt.Sprintf("%s lleva %d días en %s", dealLabel(d.Deal), d.DaysInStage, d.Deal.Stage),
			Category: domain.CategoryWarning,
		})
	}
	for _, t := range found.OverdueTasks {
		notices = append(notices, domain.Notice{
			UserID:   t.ResponsibleID,
			Message:  "Tarea vencida: " + t.Title,
			Category: domain.CategoryWarning,
		})
	}
	for _, r := range found.OverdueReminders {
		notices = append(notices, domain.Notice{
			UserID:   r.UserID,
			Message:  "Recordatorio vencido: " + r.Title,
			Category: domain.CategoryWarning,
		})
	}

	sent := s.deliver(ctx, notices)
	s.log.WithContext(ctx).Info("pipeline alert scan finished",
		"stalled", len(found.Stalled),
		"stuck", len(found.Stuck),
		"overdueTasks", len(found.OverdueTasks),
		"overdueReminders", len(found.OverdueReminders),
		"sent", sent,
	)
	return sent, nil
}

// RunDailySummary sends every known user with pending work a digest.
// Known users are the users collection plus every deal assignee.
func (s *Service) RunDailySummary(ctx context.Context) (int, error) {
	now := s.clock.Now()
	s.mu.RLock()
	deals := s.snap.DealList()
	tasks := s.snap.TaskList()
	reminders := s.snap.ReminderList()
	activities := s.snap.ActivityList()
	users := knownUsers(s.snap.UserList(), deals)
	s.mu.RUnlock()

	var notices []domain.Notice
	for _, userID := range users {
		summary := alerts.DailySummary(userID, deals, tasks, reminders, activities, now)
		if summary.IsEmpty() {
			continue
		}
		notices = append(notices, domain.Notice{
			UserID:   userID,
			Message:  summaryMessage(summary),
			Category: domain.CategoryInfo,
		})
	}
	return s.deliver(ctx, notices), nil
}

func (s *Service) stalledDays() int {
	if s.rules.StalledDealDays > 0 {
		return s.rules.StalledDealDays
	}
	return alerts.DefaultStalledDays
}

func (s *Service) stuckDays() int {
	if s.rules.StuckInStageDays > 0 {
		return s.rules.StuckInStageDays
	}
	return alerts.DefaultStuckDays
}

func knownUsers(users []domain.User, deals []domain.Deal) []string {
	set := map[string]bool{}
	for _, u := range users {
		set[u.ID] = true
	}
	for _, d := range deals {
		for _, id := range d.AssignedTo {
			set[id] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		if id != "" {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func summaryMessage(s alerts.Summary) string {
	msg := fmt.Sprintf("Resumen del día: %d oportunidades activas, %d tareas y %d recordatorios para hoy, %d actividades registradas",
		s.ActiveDeals, s.TasksDueToday, s.RemindersToday, s.ActivitiesToday)
	if s.OverdueTasks > 0 || s.OverdueReminders > 0 {
		msg += fmt.Sprintf(". Vencidos: %d tareas, %d recordatorios", s.OverdueTasks, s.OverdueReminders)
	}
	return msg
}

func dealLabel(d domain.Deal) string {
	if d.Company != "" {
		return "La oportunidad " + d.Company
	}
	return "La oportunidad " + d.ID
}
