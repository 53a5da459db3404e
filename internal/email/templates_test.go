package email

import (
	"context"
	"strings"
	"testing"
)

func TestRenderNotificationSplitsLines(t *testing.T) {
	html, err := RenderNotification(Message{
		ToEmail:  "ana@acme.test",
		ToName:   "Ana",
		Category: "info",
		Body:     "Resumen diario:\n\n- 2 tareas vencidas\n- 1 oportunidad estancada",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Hola Ana", "Resumen diario:", "- 2 tareas vencidas", "- 1 oportunidad estancada", subjectInfo} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected rendered email to contain %q", want)
		}
	}
}

func TestRenderNotificationEscapesBody(t *testing.T) {
	html, err := RenderNotification(Message{ToEmail: "x@y.test", Body: "<script>alert(1)</script>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("expected body to be escaped")
	}
}

func TestSubjectFor(t *testing.T) {
	tests := map[string]string{
		"success": subjectSuccess,
		"warning": subjectWarning,
		"info":    subjectInfo,
		"":        subjectInfo,
	}
	for category, want := range tests {
		if got := SubjectFor(category); got != want {
			t.Fatalf("SubjectFor(%q) = %q, want %q", category, got, want)
		}
	}
}

type disabledEmail struct{}

func (disabledEmail) GetEmailEnabled() bool       { return false }
func (disabledEmail) GetSMTPHost() string         { return "" }
func (disabledEmail) GetSMTPPort() int            { return 0 }
func (disabledEmail) GetSMTPUsername() string     { return "" }
func (disabledEmail) GetSMTPPassword() string     { return "" }
func (disabledEmail) GetEmailFromName() string    { return "" }
func (disabledEmail) GetEmailFromAddress() string { return "" }

func TestNewSenderDisabledIsNoop(t *testing.T) {
	sender := NewSender(disabledEmail{})
	if _, ok := sender.(NoopSender); !ok {
		t.Fatalf("expected NoopSender, got %T", sender)
	}
	if err := sender.SendNotificationEmail(context.Background(), Message{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
