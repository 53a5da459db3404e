// Package service hosts the pipeline engine: it owns the in-memory snapshot,
// serializes writers, persists changes in the background and delivers the
// notifications and events operations produce.
package service

import (
	"context"
	"sync"
	"time"

	"crm_pipeline_backend/internal/events"
	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/engine"
	"crm_pipeline_backend/internal/pipeline/reversal"
	"crm_pipeline_backend/internal/pipeline/scoring"
	"crm_pipeline_backend/internal/pipeline/store"
	"crm_pipeline_backend/platform/config"
	"crm_pipeline_backend/platform/ids"
	"crm_pipeline_backend/platform/logger"
)

// Notifier delivers a message to a user. Delivery is one-way; failures are logged.
type Notifier interface {
	Notify(ctx context.Context, userID, message, category string) error
}

// Clock is the current time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Deps are the collaborators of the service.
type Deps struct {
	Collections store.Collections
	Tokens      reversal.TokenStore
	Notifier    Notifier
	Bus         events.Bus
	IDs         ids.Generator
	Clock       Clock
	Rules       config.PipelineRules
	PhoneRegion string
	Log         *logger.Logger
}

// Service is the single writer of pipeline state.
type Service struct {
	mu   sync.RWMutex
	snap *store.Snapshot

	engine    *engine.Engine
	persister *store.Persister
	tokens    reversal.TokenStore
	notifier  Notifier
	bus       events.Bus
	ids       ids.Generator
	clock     Clock
	rules     config.PipelineRules
	scoring   scoring.Rules
	log       *logger.Logger
}

// New loads every collection and returns a ready service.
func New(ctx context.Context, deps Deps) (*Service, error) {
	snap, err := store.Load(ctx, deps.Collections)
	if err != nil {
		return nil, err
	}

	if deps.IDs == nil {
		deps.IDs = ids.UUID{}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	if deps.Tokens == nil {
		deps.Tokens = reversal.NewMemoryTokenStore(deps.Clock.Now)
	}

	return &Service{
		snap:      snap,
		engine:    engine.New(deps.IDs, deps.PhoneRegion),
		persister: store.NewPersister(deps.Collections, deps.Rules.PersistDebounce, deps.Log),
		tokens:    deps.Tokens,
		notifier:  deps.Notifier,
		bus:       deps.Bus,
		ids:       deps.IDs,
		clock:     deps.Clock,
		rules:     deps.Rules,
		scoring:   scoring.RulesFromConfig(deps.Rules),
		log:       deps.Log,
	}, nil
}

// SyncStatus reports the persistence state.
func (s *Service) SyncStatus() store.SyncStatus {
	return s.persister.Status()
}

// Flush persists pending changes immediately.
func (s *Service) Flush(ctx context.Context) error {
	return s.persister.Flush(ctx)
}

// Close flushes pending changes and stops background persistence.
func (s *Service) Close(ctx context.Context) error {
	return s.persister.Close(ctx)
}

// commitLocked applies cs to the snapshot and schedules its persistence.
// Callers hold s.mu.
func (s *Service) commitLocked(cs store.Changeset) {
	if cs.IsEmpty() {
		return
	}
	cs.Apply(s.snap)
	s.persister.Enqueue(cs)
}

// deliver sends notices. It runs after the lock is released.
func (s *Service) deliver(ctx context.Context, notices []domain.Notice) int {
	if s.notifier == nil {
		return 0
	}
	sent := 0
	for _, n := range notices {
		if n.UserID == "" {
			continue
		}
		if err := s.notifier.Notify(ctx, n.UserID, n.Message, n.Category); err != nil {
			s.log.WithContext(ctx).Error("failed to deliver pipeline notification", "userId", n.UserID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	if s.bus == nil {
		return
	}
	for _, e := range evts {
		s.bus.Publish(ctx, e)
	}
}
