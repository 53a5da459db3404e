// Package reversal holds pending reversal tokens issued when a won deal leaves
// cerrado while its account still exists. A token is confirmed or cancelled once.
package reversal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTokenNotFound is returned for unknown, expired or already used tokens.
var ErrTokenNotFound = errors.New("reversal token not found")

// Pending is a reversal awaiting confirmation.
type Pending struct {
	Token     string    `json:"token"`
	DealID    string    `json:"dealId"`
	AccountID string    `json:"accountId"`
	ActorID   string    `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenStore keeps pending reversals. A deal has at most one pending reversal;
// Put replaces any earlier one.
type TokenStore interface {
	Put(ctx context.Context, p Pending) error
	// Take returns and removes the pending reversal for token.
	Take(ctx context.Context, token string) (Pending, error)
	HasPending(ctx context.Context, dealID string) (bool, error)
	DiscardForDeal(ctx context.Context, dealID string) error
}

// NewPending builds a pending reversal with a fresh random token.
func NewPending(dealID, accountID, actorID string, now time.Time, ttl time.Duration) Pending {
	return Pending{
		Token:     uuid.NewString(),
		DealID:    dealID,
		AccountID: accountID,
		ActorID:   actorID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// MemoryTokenStore is a process-local TokenStore.
type MemoryTokenStore struct {
	mu      sync.Mutex
	byToken map[string]Pending
	byDeal  map[string]string
	now     func() time.Time
}

// NewMemoryTokenStore creates an empty store. now defaults to time.Now.
func NewMemoryTokenStore(now func() time.Time) *MemoryTokenStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenStore{
		byToken: map[string]Pending{},
		byDeal:  map[string]string{},
		now:     now,
	}
}

func (s *MemoryTokenStore) Put(_ context.Context, p Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byDeal[p.DealID]; ok {
		delete(s.byToken, old)
	}
	s.byToken[p.Token] = p
	s.byDeal[p.DealID] = p.Token
	return nil
}

func (s *MemoryTokenStore) Take(_ context.Context, token string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byToken[token]
	if !ok {
		return Pending{}, ErrTokenNotFound
	}
	s.removeLocked(p)
	if s.expired(p) {
		return Pending{}, ErrTokenNotFound
	}
	return p, nil
}

func (s *MemoryTokenStore) HasPending(_ context.Context, dealID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.byDeal[dealID]
	if !ok {
		return false, nil
	}
	p := s.byToken[token]
	if s.expired(p) {
		s.removeLocked(p)
		return false, nil
	}
	return true, nil
}

func (s *MemoryTokenStore) DiscardForDeal(_ context.Context, dealID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.byDeal[dealID]; ok {
		s.removeLocked(s.byToken[token])
	}
	return nil
}

func (s *MemoryTokenStore) removeLocked(p Pending) {
	delete(s.byToken, p.Token)
	if s.byDeal[p.DealID] == p.Token {
		delete(s.byDeal, p.DealID)
	}
}

func (s *MemoryTokenStore) expired(p Pending) bool {
	return !p.ExpiresAt.IsZero() && !s.now().Before(p.ExpiresAt)
}

var _ TokenStore = (*MemoryTokenStore)(nil)
