package inapp

import (
	"context"
	"strings"
	"time"

	"crm_pipeline_backend/internal/notification/sse"
	"crm_pipeline_backend/platform/apperr"
	"crm_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	titleInfo    = "Actualización del pipeline"
	titleSuccess = "Operación completada"
	titleWarning = "Requiere atención"
)

type Service struct {
	store Store
	sse   *sse.Service
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// SetSSE injects the SSE service used to push notifications to online users.
func (s *Service) SetSSE(sseSvc *sse.Service) {
	s.sse = sseSvc
}

type SendParams struct {
	UserID   string
	Title    string
	Content  string
	Category string // "info", "success", "warning"
}

// TitleFor returns the default title for a category.
func TitleFor(category string) string {
	switch category {
	case "success":
		return titleSuccess
	case "warning":
		return titleWarning
	default:
		return titleInfo
	}
}

// Send persists the notification and pushes it via SSE if the user is online.
func (s *Service) Send(ctx context.Context, p SendParams) (Notification, error) {
	if s == nil || s.store == nil {
		return Notification{}, apperr.Internal("in-app notification service not configured")
	}
	if strings.TrimSpace(p.Content) == "" {
		return Notification{}, apperr.Validation("content is required")
	}

	if p.Category == "" {
		p.Category = "info"
	}
	if p.Title == "" {
		p.Title = TitleFor(p.Category)
	}

	notif := Notification{
		ID:        uuid.New(),
		UserID:    p.UserID,
		Title:     p.Title,
		Content:   p.Content,
		Category:  p.Category,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, notif); err != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "userId", p.UserID)
		return Notification{}, err
	}

	if s.sse != nil {
		s.sse.Publish(p.UserID, sse.Event{
			Type:    sse.EventNotification,
			Message: notif.Title,
			Data:    notif,
		})
	}

	return notif, nil
}

func (s *Service) List(ctx context.Context, userID string, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.store.List(ctx, userID, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	return s.store.MarkRead(ctx, userID, id, s.now().UTC())
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.MarkAllRead(ctx, userID, s.now().UTC())
}

func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.store.Delete(ctx, userID, id)
}
