package service

import (
	"context"
	"strings"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/store"
	"crm_pipeline_backend/internal/pipeline/transport"
	"crm_pipeline_backend/platform/apperr"
	"crm_pipeline_backend/platform/sanitize"
)

// User returns a user by id.
func (s *Service) User(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.snap.Users[id]
	return u, ok
}

// ListUsers returns every known user sorted by id.
func (s *Service) ListUsers(_ context.Context) transport.UserListResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transport.UserListResponse{Items: s.snap.UserList()}
}

// UpsertUser creates or replaces the user with the given id.
func (s *Service) UpsertUser(ctx context.Context, id string, req transport.UpsertUserRequest) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, apperr.Validation("user id is required")
	}

	user := domain.User{
		ID:    id,
		Name:  sanitize.Text(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
	}

	s.mu.Lock()
	var cs store.Changeset
	cs.Users.Upsert(user)
	s.commitLocked(cs)
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("pipeline user saved", "userId", id)
	return user, nil
}
