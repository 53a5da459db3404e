package alerts

import (
	"testing"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
)

var now = time.Date(2026, 7, 10, 15, 0, 0, 0, time.UTC)

func deal(id string, stage domain.Stage, created, entered time.Time, assignees ...string) domain.Deal {
	return domain.Deal{
		ID:         id,
		Stage:      stage,
		CreatedAt:  created,
		AssignedTo: assignees,
		StageHistory: []domain.StageChange{
			{FromStage: domain.StageNone, ToStage: stage, Timestamp: entered},
		},
	}
}

func ids[T interface{ EntityID() string }](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.EntityID()
	}
	return out
}

func TestStalledDeals(t *testing.T) {
	old := now.AddDate(0, 0, -30)
	deals := []domain.Deal{
		deal("idle", domain.StageContacto, old, old),
		deal("busy", domain.StageContacto, old, old),
		deal("new", domain.StageProspecto, now.AddDate(0, 0, -2), now.AddDate(0, 0, -2)),
		deal("won", domain.StageCerrado, old, old),
		deal("lost", domain.StagePerdido, old, old),
		deal("quiet", domain.StagePiloto, old, old),
	}
	activities := []domain.Activity{
		{ID: "a1", Owner: domain.DealOwner("busy"), Date: now.AddDate(0, 0, -1)},
		{ID: "a2", Owner: domain.DealOwner("quiet"), Date: now.AddDate(0, 0, -10)},
		{ID: "a3", Owner: domain.AccountOwner("idle"), Date: now},
	}

	got := StalledDeals(deals, activities, DefaultStalledDays, now)
	if len(got) != 2 || got[0].Deal.ID != "idle" || got[1].Deal.ID != "quiet" {
		t.Fatalf("expected [idle quiet], got %+v", got)
	}
	if got[1].DaysIdle != 10 {
		t.Fatalf("expected 10 idle days, got %d", got[1].DaysIdle)
	}
}

func TestStuckInStage(t *testing.T) {
	deals := []domain.Deal{
		deal("old", domain.StageDiagnostico, now.AddDate(0, 0, -40), now.AddDate(0, 0, -20)),
		deal("fresh", domain.StageDiagnostico, now.AddDate(0, 0, -40), now.AddDate(0, 0, -13)),
		deal("won", domain.StageCerrado, now.AddDate(0, 0, -40), now.AddDate(0, 0, -30)),
	}

	got := StuckInStage(deals, DefaultStuckDays, now)
	if len(got) != 2 || got[0].Deal.ID != "won" || got[1].Deal.ID != "old" {
		t.Fatalf("expected [won old], got %+v", got)
	}
	if got[1].DaysInStage != 20 {
		t.Fatalf("expected 20 days in stage, got %d", got[1].DaysInStage)
	}
}

func TestOverdueUsesStartOfToday(t *testing.T) {
	today := domain.StartOfDay(now)
	tasks := []domain.Task{
		{ID: "yesterday", DueDate: today.Add(-time.Minute)},
		{ID: "this-morning", DueDate: today.Add(time.Hour)},
		{ID: "done", DueDate: today.AddDate(0, 0, -3), Completed: true},
		{ID: "last-week", DueDate: today.AddDate(0, 0, -7)},
	}
	reminders := []domain.Reminder{
		{ID: "r-old", Date: today.AddDate(0, 0, -1)},
		{ID: "r-today", Date: today},
		{ID: "r-done", Date: today.AddDate(0, 0, -1), Completed: true},
	}

	gotTasks := ids(OverdueTasks(tasks, now))
	if len(gotTasks) != 2 || gotTasks[0] != "last-week" || gotTasks[1] != "yesterday" {
		t.Fatalf("expected [last-week yesterday], got %v", gotTasks)
	}
	gotReminders := ids(OverdueReminders(reminders, now))
	if len(gotReminders) != 1 || gotReminders[0] != "r-old" {
		t.Fatalf("expected [r-old], got %v", gotReminders)
	}
}

func TestDailySummaryScopedToUser(t *testing.T) {
	today := domain.StartOfDay(now)
	deals := []domain.Deal{
		deal("d1", domain.StageContacto, now, now, "u1"),
		deal("d2", domain.StageNegociacion, now, now, "u2", "u1"),
		deal("d3", domain.StageCerrado, now, now, "u1"),
		deal("d4", domain.StagePiloto, now, now, "u2"),
	}
	tasks := []domain.Task{
		{ID: "t1", ResponsibleID: "u1", DueDate: today.Add(10 * time.Hour)},
		{ID: "t2", ResponsibleID: "u1", DueDate: today.AddDate(0, 0, -2)},
		{ID: "t3", ResponsibleID: "u1", DueDate: today.Add(time.Hour), Completed: true},
		{ID: "t4", ResponsibleID: "u2", DueDate: today.Add(time.Hour)},
		{ID: "t5", ResponsibleID: "u1", DueDate: today.AddDate(0, 0, 1)},
	}
	reminders := []domain.Reminder{
		{ID: "r1", UserID: "u1", Date: today.Add(8 * time.Hour)},
		{ID: "r2", UserID: "u1", Date: today.AddDate(0, 0, -1)},
		{ID: "r3", UserID: "u2", Date: today.AddDate(0, 0, -1)},
	}
	activities := []domain.Activity{
		{ID: "a1", CreatedBy: "u1", Date: today.Add(9 * time.Hour)},
		{ID: "a2", CreatedBy: "u1", Date: today.Add(-time.Hour)},
		{ID: "a3", CreatedBy: "u2", Date: today.Add(9 * time.Hour)},
	}

	got := DailySummary("u1", deals, tasks, reminders, activities, now)
	want := Summary{
		UserID:           "u1",
		Date:             today,
		ActiveDeals:      2,
		TasksDueToday:    1,
		RemindersToday:   1,
		ActivitiesToday:  1,
		OverdueTasks:     1,
		OverdueReminders: 1,
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if got.IsEmpty() {
		t.Fatal("expected non-empty summary")
	}
	if !DailySummary("nobody", deals, tasks, reminders, activities, now).IsEmpty() {
		t.Fatal("expected empty summary for unknown user")
	}
}
