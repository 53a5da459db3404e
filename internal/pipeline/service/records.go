package service

import (
	"context"
	"strings"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/store"
	"crm_pipeline_backend/internal/pipeline/transport"
	"crm_pipeline_backend/platform/apperr"
	"crm_pipeline_backend/platform/sanitize"
)

// ownerForLocked scopes new records of a deal. Once a won deal has been converted
// its records live on the account. Callers hold s.mu.
func (s *Service) ownerForLocked(deal domain.Deal) domain.Owner {
	if deal.Stage == domain.StageCerrado {
		if acc, ok := s.snap.AccountForDeal(deal.ID); ok {
			return domain.AccountOwner(acc.ID)
		}
	}
	return domain.DealOwner(deal.ID)
}

// AddActivity logs an activity for a deal. Without a date it is dated now.
func (s *Service) AddActivity(ctx context.Context, dealID string, req transport.CreateActivityRequest, actorID string) (domain.Activity, error) {
	now := s.clock.Now()
	s.mu.Lock()
	deal, ok := s.snap.Deals[dealID]
	if !ok {
		s.mu.Unlock()
		return domain.Activity{}, apperr.NotFound(msgDealNotFound)
	}

	activity := domain.Activity{
		ID:          s.ids.NewID(),
		Owner:       s.ownerForLocked(deal),
		Type:        req.Type,
		Description: sanitize.Text(req.Description),
		Date:        now,
		CreatedBy:   actorID,
	}
	if req.Date != nil && !req.Date.IsZero() {
		activity.Date = *req.Date
	}

	var cs store.Changeset
	cs.Activities.Upsert(activity)
	s.commitLocked(cs)
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("activity logged", "dealId", dealID, "activityId", activity.ID, "tipo", activity.Type)
	return activity, nil
}

// AddTask schedules a manual task for a deal. The responsible user defaults to
// the deal's primary assignee, then the actor; priority defaults to media.
func (s *Service) AddTask(ctx context.Context, dealID string, req transport.CreateTaskRequest, actorID string) (domain.Task, error) {
	now := s.clock.Now()
	s.mu.Lock()
	deal, ok := s.snap.Deals[dealID]
	if !ok {
		s.mu.Unlock()
		return domain.Task{}, apperr.NotFound(msgDealNotFound)
	}

	task := domain.Task{
		ID:            s.ids.NewID(),
		Owner:         s.ownerForLocked(deal),
		Title:         sanitize.Text(req.Title),
		Description:   sanitize.Text(req.Description),
		DueDate:       req.DueDate,
		Priority:      domain.Priority(req.Priority),
		ResponsibleID: strings.TrimSpace(req.ResponsibleID),
		CreatedAt:     now,
	}
	if !task.Priority.Valid() {
		task.Priority = domain.PriorityMedia
	}
	if task.ResponsibleID == "" {
		task.ResponsibleID = deal.PrimaryAssignee()
	}
	if task.ResponsibleID == "" {
		task.ResponsibleID = actorID
	}

	var cs store.Changeset
	cs.Tasks.Upsert(task)
	s.commitLocked(cs)
	s.mu.Unlock()

	if task.ResponsibleID != actorID {
		s.deliver(ctx, []domain.Notice{{
			UserID:   task.ResponsibleID,
			Message:  "Nueva tarea asignada: " + task.Title,
			Category: domain.CategoryInfo,
		}})
	}
	return task, nil
}

// AddReminder creates a reminder for a deal, for the actor unless a user is given.
func (s *Service) AddReminder(ctx context.Context, dealID string, req transport.CreateReminderRequest, actorID string) (domain.Reminder, error) {
	s.mu.Lock()
	deal, ok := s.snap.Deals[dealID]
	if !ok {
		s.mu.Unlock()
		return domain.Reminder{}, apperr.NotFound(msgDealNotFound)
	}

	reminder := domain.Reminder{
		ID:     s.ids.NewID(),
		Owner:  s.ownerForLocked(deal),
		Title:  sanitize.Text(req.Title),
		Date:   req.Date,
		UserID: strings.TrimSpace(req.UserID),
	}
	if reminder.UserID == "" {
		reminder.UserID = actorID
	}

	var cs store.Changeset
	cs.Reminders.Upsert(reminder)
	s.commitLocked(cs)
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("reminder created", "dealId", dealID, "reminderId", reminder.ID)
	return reminder, nil
}

// CompleteTask marks a task done. Completing twice keeps the first completion time.
func (s *Service) CompleteTask(ctx context.Context, taskID string) (domain.Task, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.snap.Tasks[taskID]
	if !ok {
		return domain.Task{}, apperr.NotFound(msgTaskNotFound)
	}
	if task.Completed {
		return task, nil
	}
	task.Completed = true
	task.CompletedAt = &now

	var cs store.Changeset
	cs.Tasks.Upsert(task)
	s.commitLocked(cs)
	return task, nil
}

// CompleteReminder marks a reminder done.
func (s *Service) CompleteReminder(ctx context.Context, reminderID string) (domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminder, ok := s.snap.Reminders[reminderID]
	if !ok {
		return domain.Reminder{}, apperr.NotFound(msgReminderNotFound)
	}
	if reminder.Completed {
		return reminder, nil
	}
	reminder.Completed = true

	var cs store.Changeset
	cs.Reminders.Upsert(reminder)
	s.commitLocked(cs)
	return reminder, nil
}
