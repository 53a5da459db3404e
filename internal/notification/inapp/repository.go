package inapp

import (
	"context"
	"fmt"
	"time"

	"crm_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"
	opDelete      = "notification.inapp.repository.delete"

	errRepoNotConfigured = "in-app notification repository not configured"
	errUserIDRequired    = "userId is required"
	errNotFound          = "notification not found"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"userId"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Category  string     `json:"category"`
	IsRead    bool       `json:"isRead"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// Store is the persistence port of the in-app notification service.
type Store interface {
	Create(ctx context.Context, n Notification) error
	List(ctx context.Context, userID string, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, id uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, n Notification) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if n.UserID == "" {
		return apperr.Validation(errUserIDRequired).WithOp(opCreate)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO in_app_notifications (id, user_id, title, content, category, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.UserID, n.Title, n.Content, n.Category, n.IsRead, n.CreatedAt)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("create in-app notification failed: %v", err)).WithOp(opCreate)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, userID string, limit, offset int) ([]Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if userID == "" {
		return nil, 0, apperr.Validation(errUserIDRequired).WithOp(opList)
	}

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM in_app_notifications WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, content, category, is_read, created_at, read_at
		FROM in_app_notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if scanErr := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Category, &n.IsRead, &n.CreatedAt, &n.ReadAt); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}
	if userID == "" {
		return 0, apperr.Validation(errUserIDRequired).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM in_app_notifications
		WHERE user_id = $1 AND is_read = FALSE
	`, userID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}

	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, userID string, id uuid.UUID, at time.Time) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}
	if userID == "" || id == uuid.Nil {
		return apperr.Validation("userId and notificationId are required").WithOp(opMarkRead)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2
	`, id, userID, at)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(errNotFound).WithOp(opMarkRead)
	}

	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}
	if userID == "" {
		return apperr.Validation(errUserIDRequired).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications
		SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND is_read = FALSE
	`, userID, at)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opDelete)
	}
	if userID == "" || id == uuid.Nil {
		return apperr.Validation("userId and notificationId are required").WithOp(opDelete)
	}

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM in_app_notifications
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("delete notification failed: %v", err)).WithOp(opDelete)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(errNotFound).WithOp(opDelete)
	}

	return nil
}
