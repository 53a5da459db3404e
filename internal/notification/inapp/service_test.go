package inapp

import (
	"context"
	"testing"
	"time"

	"crm_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

func newTestService() *Service {
	svc := NewService(NewMemoryStore(), nil)
	base := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	n := 0
	svc.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return svc
}

func TestSendDefaultsTitleAndCategory(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	got, err := svc.Send(ctx, SendParams{UserID: "u1", Content: "Nueva tarea asignada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != "info" || got.Title != titleInfo || got.IsRead {
		t.Fatalf("unexpected notification %+v", got)
	}

	if _, err := svc.Send(ctx, SendParams{UserID: "u1", Content: "  "}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty content, got %v", err)
	}
}

func TestListNewestFirstAndPaged(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, content := range []string{"uno", "dos", "tres"} {
		if _, err := svc.Send(ctx, SendParams{UserID: "u1", Content: content}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	_, _ = svc.Send(ctx, SendParams{UserID: "u2", Content: "otro"})

	items, total, err := svc.List(ctx, "u1", 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].Content != "tres" || items[1].Content != "dos" {
		t.Fatalf("unexpected page total=%d items=%+v", total, items)
	}

	items, _, _ = svc.List(ctx, "u1", 2, 2)
	if len(items) != 1 || items[0].Content != "uno" {
		t.Fatalf("unexpected second page %+v", items)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	n, _ := svc.Send(ctx, SendParams{UserID: "u1", Content: "hola"})
	_, _ = svc.Send(ctx, SendParams{UserID: "u1", Content: "adios"})

	if err := svc.MarkRead(ctx, "u2", n.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}
	if err := svc.MarkRead(ctx, "u1", n.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count, _ := svc.CountUnread(ctx, "u1"); count != 1 {
		t.Fatalf("expected 1 unread, got %d", count)
	}
	if err := svc.MarkAllRead(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count, _ := svc.CountUnread(ctx, "u1"); count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}
}

func TestDeleteUnknownNotification(t *testing.T) {
	svc := newTestService()
	if err := svc.Delete(context.Background(), "u1", uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
