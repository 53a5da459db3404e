package service

import (
	"context"

	"crm_pipeline_backend/internal/events"
	"crm_pipeline_backend/internal/pipeline/conversion"
	"crm_pipeline_backend/internal/pipeline/engine"
	"crm_pipeline_backend/internal/pipeline/transport"
	"crm_pipeline_backend/platform/apperr"
)

// ConfirmReversal consumes token and undoes the conversion: the account's records
// move back to the deal and the account and its contacts are deleted.
// The token is consumed even when the reversal is refused.
func (s *Service) ConfirmReversal(ctx context.Context, token, actorID string) (transport.ReversalResponse, error) {
	const op = "pipeline.ConfirmReversal"
	pending, err := s.tokens.Take(ctx, token)
	if err != nil {
		return transport.ReversalResponse{}, translate(op, err)
	}

	s.mu.Lock()
	if _, ok := s.snap.Accounts[pending.AccountID]; !ok {
		s.mu.Unlock()
		return transport.ReversalResponse{}, apperr.Gone("account no longer exists").WithOp(op)
	}
	res, err := engine.ConfirmReversal(s.snap, pending.DealID, pending.AccountID)
	if err != nil {
		s.mu.Unlock()
		return transport.ReversalResponse{}, translate(op, err)
	}
	s.commitLocked(res.Changes)
	s.mu.Unlock()

	now := s.clock.Now()
	s.log.WithContext(ctx).Info("conversion reversed", "dealId", pending.DealID, "accountId", pending.AccountID, "moved", res.Moved)
	s.publish(ctx, events.ReversalCompleted{
		BaseEvent: events.NewBaseEvent(now),
		DealID:    pending.DealID,
		AccountID: pending.AccountID,
		Moved:     res.Moved,
		ActorID:   actorID,
	})
	return transport.ReversalResponse{DealID: pending.DealID, AccountID: pending.AccountID, Moved: res.Moved}, nil
}

// CancelReversal consumes token and keeps the account, detaching it from the deal.
func (s *Service) CancelReversal(ctx context.Context, token, actorID string) (transport.ReversalDeclinedResponse, error) {
	const op = "pipeline.CancelReversal"
	pending, err := s.tokens.Take(ctx, token)
	if err != nil {
		return transport.ReversalDeclinedResponse{}, translate(op, err)
	}

	now := s.clock.Now()
	s.mu.Lock()
	if acc, ok := s.snap.Accounts[pending.AccountID]; ok && acc.PipelineID == pending.DealID {
		s.commitLocked(conversion.Detach(acc).Changes)
	}
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("reversal declined, account detached", "dealId", pending.DealID, "accountId", pending.AccountID)
	s.publish(ctx, events.ReversalDeclined{
		BaseEvent: events.NewBaseEvent(now),
		DealID:    pending.DealID,
		AccountID: pending.AccountID,
		ActorID:   actorID,
	})
	return transport.ReversalDeclinedResponse{DealID: pending.DealID, AccountID: pending.AccountID, DetachedAt: now}, nil
}

// RunReversalSweep detaches accounts still linked to a deal that is gone or no
// longer won, unless a reversal for that deal is awaiting confirmation.
// It returns the number of detached accounts.
func (s *Service) RunReversalSweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	log := s.log.WithContext(ctx)

	s.mu.Lock()
	res, detached := conversion.Sweep(s.snap, func(dealID string) bool {
		pending, err := s.tokens.HasPending(ctx, dealID)
		if err != nil {
			log.Warn("reversal sweep could not check pending token, skipping deal", "dealId", dealID, "error", err)
			return true
		}
		return pending
	})
	s.commitLocked(res.Changes)
	s.mu.Unlock()

	evts := make([]events.Event, 0, len(detached))
	for _, acc := range detached {
		evts = append(evts, events.ReversalDeclined{
			BaseEvent: events.NewBaseEvent(now),
			DealID:    acc.DetachedFromPipelineID,
			AccountID: acc.ID,
		})
	}
	s.publish(ctx, evts...)
	if len(detached) > 0 {
		log.Info("reversal sweep detached accounts", "count", len(detached))
	}
	return len(detached), nil
}
