package followup

import (
	"testing"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
)

var now = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func TestGenerateFollowsSchedule(t *testing.T) {
	tests := []struct {
		stage    domain.Stage
		days     int
		priority domain.Priority
	}{
		{domain.StageContacto, 2, domain.PriorityMedia},
		{domain.StageDiagnostico, 5, domain.PriorityMedia},
		{domain.StagePiloto, 7, domain.PriorityMedia},
		{domain.StageNegociacion, 3, domain.PriorityAlta},
	}

	deal := domain.Deal{ID: "d1", Company: "Acme"}
	for _, tc := range tests {
		task := Generate(deal, tc.stage, "actor", now)
		if task == nil {
			t.Fatalf("%s: expected task, got nil", tc.stage)
		}
		if want := now.AddDate(0, 0, tc.days); !task.DueDate.Equal(want) {
			t.Fatalf("%s: expected due %s, got %s", tc.stage, want, task.DueDate)
		}
		if task.Priority != tc.priority {
			t.Fatalf("%s: expected priority %q, got %q", tc.stage, tc.priority, task.Priority)
		}
		if !task.AutoGenerated || !task.Owner.IsDeal("d1") {
			t.Fatalf("%s: expected auto-generated deal-owned task, got %+v", tc.stage, task)
		}
	}
}

func TestGenerateReturnsNilOutsideSchedule(t *testing.T) {
	for _, stage := range []domain.Stage{domain.StageProspecto, domain.StageCerrado, domain.StagePerdido, domain.Stage("x")} {
		if task := Generate(domain.Deal{ID: "d1"}, stage, "actor", now); task != nil {
			t.Fatalf("%s: expected nil, got %+v", stage, task)
		}
	}
}

func TestGenerateResponsibleUser(t *testing.T) {
	assigned := Generate(domain.Deal{ID: "d1", AssignedTo: []string{"owner"}}, domain.StageContacto, "actor", now)
	if assigned.ResponsibleID != "owner" {
		t.Fatalf("expected owner, got %q", assigned.ResponsibleID)
	}
	if !NeedsNotification(assigned, "actor") {
		t.Fatal("expected notification when responsible differs from actor")
	}

	unassigned := Generate(domain.Deal{ID: "d1"}, domain.StageContacto, "actor", now)
	if unassigned.ResponsibleID != "actor" {
		t.Fatalf("expected actor, got %q", unassigned.ResponsibleID)
	}
	if NeedsNotification(unassigned, "actor") {
		t.Fatal("expected no notification when actor is responsible")
	}
}
