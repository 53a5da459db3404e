package scoring

import (
	"fmt"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
)

// Action is a suggested next step for a deal.
type Action string

const (
	ActionFirstContact Action = "first_contact"
	ActionFollowUpCall Action = "follow_up_call"
	ActionCompleteTask Action = "complete_task"
	ActionEscalate     Action = "escalate"
)

// Suggestion is the single most urgent next step.
type Suggestion struct {
	Action    Action `json:"action"`
	Rationale string `json:"rationale"`
	// TaskID is set for complete_task.
	TaskID string `json:"taskId,omitempty"`
}

// SuggestedAction picks the highest-priority suggestion, or nil when nothing is due.
// Won and lost deals never get a suggestion.
func SuggestedAction(deal domain.Deal, activities []domain.Activity, tasks []domain.Task, now time.Time, rules Rules) *Suggestion {
	if deal.Stage.IsTerminal() {
		return nil
	}

	last, ok := lastActivityAt(ownActivities(deal.ID, activities))
	if !ok {
		return &Suggestion{
			Action:    ActionFirstContact,
			Rationale: "No hay actividades registradas para esta oportunidad",
		}
	}

	if age := now.Sub(last); age > rules.StalenessWindow() {
		return &Suggestion{
			Action:    ActionFollowUpCall,
			Rationale: fmt.Sprintf("Última actividad hace %d días", int(age.Hours()/24)),
		}
	}

	if task := oldestOverdueHighPriority(deal.ID, tasks, now); task != nil {
		return &Suggestion{
			Action:    ActionCompleteTask,
			Rationale: fmt.Sprintf("Tarea de prioridad alta vencida: %s", task.Title),
			TaskID:    task.ID,
		}
	}

	if inStage := now.Sub(deal.StageEnteredAt()); inStage > rules.StallThreshold(deal.Stage) {
		return &Suggestion{
			Action:    ActionEscalate,
			Rationale: fmt.Sprintf("%d días en %s", int(inStage.Hours()/24), deal.Stage),
		}
	}

	return nil
}

func oldestOverdueHighPriority(dealID string, tasks []domain.Task, now time.Time) *domain.Task {
	today := domain.StartOfDay(now)
	var found *domain.Task
	for i := range tasks {
		task := &tasks[i]
		if !task.Owner.IsDeal(dealID) || task.Completed || task.Priority != domain.PriorityAlta {
			continue
		}
		if !task.DueDate.Before(today) {
			continue
		}
		if found == nil || task.DueDate.Before(found.DueDate) {
			found = task
		}
	}
	return found
}
