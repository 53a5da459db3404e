package inapp

import (
	"context"
	"sort"
	"sync"
	"time"

	"crm_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

// MemoryStore keeps notifications in process. Used when no database is configured.
type MemoryStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[uuid.UUID]Notification{}}
}

func (m *MemoryStore) Create(_ context.Context, n Notification) error {
	if n.UserID == "" {
		return apperr.Validation(errUserIDRequired).WithOp(opCreate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[n.ID] = n
	return nil
}

func (m *MemoryStore) List(_ context.Context, userID string, limit, offset int) ([]Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]Notification, 0)
	for _, n := range m.items {
		if n.UserID == userID {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() > all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []Notification{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MemoryStore) CountUnread(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) MarkRead(_ context.Context, userID string, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.items[id]
	if !ok || n.UserID != userID {
		return apperr.NotFound(errNotFound).WithOp(opMarkRead)
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
		m.items[id] = n
	}
	return nil
}

func (m *MemoryStore) MarkAllRead(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			m.items[id] = n
		}
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.items[id]
	if !ok || n.UserID != userID {
		return apperr.NotFound(errNotFound).WithOp(opDelete)
	}
	delete(m.items, id)
	return nil
}
