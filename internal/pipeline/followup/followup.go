// Package followup generates the follow-up task created when a deal enters a stage.
package followup

import (
	"fmt"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
)

// Rule is the follow-up schedule for one stage.
type Rule struct {
	OffsetDays int
	Priority   domain.Priority
	Title      string
}

var rules = map[domain.Stage]Rule{
	domain.StageContacto:    {OffsetDays: 2, Priority: domain.PriorityMedia, Title: "Dar seguimiento al primer contacto"},
	domain.StageDiagnostico: {OffsetDays: 5, Priority: domain.PriorityMedia, Title: "Completar diagnóstico"},
	domain.StagePiloto:      {OffsetDays: 7, Priority: domain.PriorityMedia, Title: "Revisar avance del piloto"},
	domain.StageNegociacion: {OffsetDays: 3, Priority: domain.PriorityAlta, Title: "Cerrar negociación"},
}

// RuleFor returns the schedule for stage and whether one exists.
func RuleFor(stage domain.Stage) (Rule, bool) {
	r, ok := rules[stage]
	return r, ok
}

// Generate builds the follow-up task for a deal that just entered newStage.
// It returns nil for stages without a schedule. The task has no ID yet.
func Generate(deal domain.Deal, newStage domain.Stage, actorID string, now time.Time) *domain.Task {
	rule, ok := rules[newStage]
	if !ok {
		return nil
	}

	responsible := deal.PrimaryAssignee()
	if responsible == "" {
		responsible = actorID
	}

	title := rule.Title
	if deal.Company != "" {
		title = fmt.Sprintf("%s: %s", rule.Title, deal.Company)
	}

	return &domain.Task{
		Owner:         domain.DealOwner(deal.ID),
		Title:         title,
		Description:   fmt.Sprintf("Tarea automática al pasar a %s", newStage),
		DueDate:       now.AddDate(0, 0, rule.OffsetDays),
		Priority:      rule.Priority,
		ResponsibleID: responsible,
		AutoGenerated: true,
		CreatedAt:     now,
	}
}

// NeedsNotification reports whether the responsible user differs from the actor.
func NeedsNotification(task *domain.Task, actorID string) bool {
	return task != nil && task.ResponsibleID != "" && task.ResponsibleID != actorID
}
