package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm_pipeline_backend/internal/email"
	"crm_pipeline_backend/internal/events"
)

type testSender struct {
	sent []email.Message
	err  error
}

func (s *testSender) SendNotificationEmail(_ context.Context, msg email.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func directory(entries map[string]Recipient) Directory {
	return DirectoryFunc(func(userID string) (Recipient, bool) {
		r, ok := entries[userID]
		return r, ok
	})
}

func TestNotifyPersistsAndEmailsKnownUsers(t *testing.T) {
	sender := &testSender{}
	m := New(nil, sender, nil)
	m.SetDirectory(directory(map[string]Recipient{
		"owner": {Name: "Ana", Email: " ana@acme.test "},
		"rep":   {Name: "Luis"},
	}))
	ctx := context.Background()

	if err := m.Notify(ctx, "owner", "Cuenta creada: Acme", "success"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Notify(ctx, "rep", "Nueva tarea", "info"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Notify(ctx, "stranger", "Hola", "info"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %+v", sender.sent)
	}
	if got := sender.sent[0]; got.ToEmail != "ana@acme.test" || got.ToName != "Ana" || got.Category != "success" {
		t.Fatalf("unexpected email %+v", got)
	}

	for _, user := range []string{"owner", "rep", "stranger"} {
		count, err := m.InAppService().CountUnread(ctx, user)
		if err != nil || count != 1 {
			t.Fatalf("%s: expected 1 unread notification, got %d (%v)", user, count, err)
		}
	}
}

func TestNotifyIgnoresEmailFailure(t *testing.T) {
	sender := &testSender{err: errors.New("smtp down")}
	m := New(nil, sender, nil)
	m.SetDirectory(directory(map[string]Recipient{"owner": {Email: "ana@acme.test"}}))

	if err := m.Notify(context.Background(), "owner", "Tarea vencida", "warning"); err != nil {
		t.Fatalf("expected email failure to be swallowed, got %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one attempted email, got %d", len(sender.sent))
	}
}

func TestNotifyRejectsEmptyMessage(t *testing.T) {
	m := New(nil, nil, nil)
	if err := m.Notify(context.Background(), "owner", "", "info"); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestHandleAcceptsPipelineEvents(t *testing.T) {
	m := New(nil, nil, nil)
	at := time.Date(2026, 7, 6, 10, 0, 0, 0, time.UTC)
	evts := []events.Event{
		events.DealStageChanged{BaseEvent: events.NewBaseEvent(at), DealID: "d1", FromStage: "negociacion", ToStage: "cerrado", ActorID: "u1"},
		events.DealConverted{BaseEvent: events.NewBaseEvent(at), DealID: "d1", AccountID: "a1", ActorID: "u1"},
		events.ConversionConflicted{BaseEvent: events.NewBaseEvent(at), DealID: "d1", ExistingAccountID: "a0"},
		events.ReversalCompleted{BaseEvent: events.NewBaseEvent(at), DealID: "d1", AccountID: "a1"},
		events.ReversalDeclined{BaseEvent: events.NewBaseEvent(at), DealID: "d1", AccountID: "a1"},
		events.FollowUpCreated{BaseEvent: events.NewBaseEvent(at), DealID: "d1", TaskID: "t1", ResponsibleID: "u2"},
	}
	for _, e := range evts {
		if err := m.Handle(context.Background(), e); err != nil {
			t.Fatalf("%s: unexpected error: %v", e.EventName(), err)
		}
	}
}
