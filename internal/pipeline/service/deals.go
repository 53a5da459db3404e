package service

import (
	"context"
	"strings"
	"time"

	"crm_pipeline_backend/internal/events"
	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/engine"
	"crm_pipeline_backend/internal/pipeline/reversal"
	"crm_pipeline_backend/internal/pipeline/store"
	"crm_pipeline_backend/internal/pipeline/transport"
	"crm_pipeline_backend/platform/apperr"
)

// CreateDeal adds a deal in prospecto. Without assignees the actor owns it.
func (s *Service) CreateDeal(ctx context.Context, req transport.CreateDealRequest, actorID string) (transport.DealView, error) {
	now := s.clock.Now()
	assigned := cleanAssignees(req.AssignedTo)
	if len(assigned) == 0 && actorID != "" {
		assigned = []string{actorID}
	}

	deal := domain.NewDeal(domain.Deal{
		ID:              s.ids.NewID(),
		EstimatedValue:  req.EstimatedValue,
		Service:         strings.TrimSpace(req.Service),
		Source:          strings.TrimSpace(req.Source),
		Company:         strings.TrimSpace(req.Company),
		Industry:        strings.TrimSpace(req.Industry),
		Website:         strings.TrimSpace(req.Website),
		CompanyPhone:    strings.TrimSpace(req.CompanyPhone),
		Address:         strings.TrimSpace(req.Address),
		City:            strings.TrimSpace(req.City),
		ContactName:     strings.TrimSpace(req.ContactName),
		ContactEmail:    strings.TrimSpace(req.ContactEmail),
		ContactPhone:    strings.TrimSpace(req.ContactPhone),
		ContactPosition: strings.TrimSpace(req.ContactPosition),
		AssignedTo:      assigned,
	}, actorID, now)

	s.mu.Lock()
	var cs store.Changeset
	cs.Deals.Upsert(deal)
	s.commitLocked(cs)
	view := s.viewLocked(deal, now, s.historyLocked())
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("deal created", "dealId", deal.ID, "empresa", deal.Company)
	return view, nil
}

// GetDeal returns one deal with its health.
func (s *Service) GetDeal(_ context.Context, id string) (transport.DealView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deal, ok := s.snap.Deals[id]
	if !ok {
		return transport.DealView{}, apperr.NotFound(msgDealNotFound)
	}
	return s.viewLocked(deal, s.clock.Now(), s.historyLocked()), nil
}

// ListDeals returns deals matching the filters, healthiest first.
func (s *Service) ListDeals(_ context.Context, req transport.ListDealsRequest) (transport.DealListResponse, error) {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]transport.DealView, 0, len(s.snap.Deals))
	history := s.historyLocked()
	for _, deal := range s.snap.DealList() {
		if req.Stage != "" && string(deal.Stage) != req.Stage {
			continue
		}
		if req.Assignee != "" && !deal.IsAssignedTo(req.Assignee) {
			continue
		}
		view := s.viewLocked(deal, now, history)
		if req.Level != "" && view.Score.Level != req.Level {
			continue
		}
		items = append(items, view)
	}
	sortViews(items)
	return transport.DealListResponse{Items: items, Total: len(items)}, nil
}

// UpdateDeal patches descriptive fields. The stage is never changed here.
func (s *Service) UpdateDeal(ctx context.Context, id string, req transport.UpdateDealRequest) (transport.DealView, error) {
	s.mu.Lock()
	deal, ok := s.snap.Deals[id]
	if !ok {
		s.mu.Unlock()
		return transport.DealView{}, apperr.NotFound(msgDealNotFound)
	}

	updated := deal.Clone()
	applyString(&updated.Company, req.Company)
	applyString(&updated.Industry, req.Industry)
	applyString(&updated.Website, req.Website)
	applyString(&updated.CompanyPhone, req.CompanyPhone)
	applyString(&updated.Address, req.Address)
	applyString(&updated.City, req.City)
	applyString(&updated.ContactName, req.ContactName)
	applyString(&updated.ContactEmail, req.ContactEmail)
	applyString(&updated.ContactPhone, req.ContactPhone)
	applyString(&updated.ContactPosition, req.ContactPosition)
	applyString(&updated.Service, req.Service)
	applyString(&updated.Source, req.Source)
	if req.EstimatedValue.Set {
		updated.EstimatedValue = req.EstimatedValue.Value
	}
	if req.AssignedTo != nil {
		updated.AssignedTo = cleanAssignees(req.AssignedTo)
	}

	var cs store.Changeset
	cs.Deals.Upsert(updated)
	s.commitLocked(cs)
	view := s.viewLocked(updated, s.clock.Now(), s.historyLocked())
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("deal updated", "dealId", id)
	return view, nil
}

// DeleteDeal removes the deal only. Its records and any converted account stay;
// the reversal sweep later detaches such an account.
func (s *Service) DeleteDeal(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.snap.Deals[id]; !ok {
		s.mu.Unlock()
		return apperr.NotFound(msgDealNotFound)
	}
	var cs store.Changeset
	cs.Deals.Delete(id)
	s.commitLocked(cs)
	s.mu.Unlock()

	if err := s.tokens.DiscardForDeal(ctx, id); err != nil {
		s.log.WithContext(ctx).Warn("failed to discard reversal tokens of deleted deal", "dealId", id, "error", err)
	}
	s.log.WithContext(ctx).Info("deal deleted", "dealId", id)
	return nil
}

// Transition moves a deal to target and runs its side effects. A deal leaving
// cerrado with a converted account gets a pending reversal token; the account
// stays until the token is confirmed.
func (s *Service) Transition(ctx context.Context, dealID string, target domain.Stage, actorID string) (transport.TransitionResponse, error) {
	const op = "pipeline.Transition"
	now := s.clock.Now()

	s.mu.Lock()
	out, err := s.engine.AttemptTransition(s.snap, dealID, target, actorID, now)
	if err != nil {
		s.mu.Unlock()
		return transport.TransitionResponse{}, translate(op, err)
	}

	if target == domain.StageCerrado {
		if err := s.tokens.DiscardForDeal(ctx, dealID); err != nil {
			s.mu.Unlock()
			return transport.TransitionResponse{}, translate(op, err)
		}
	}

	var pending *reversal.Pending
	if out.PendingReversal != nil {
		p := reversal.NewPending(dealID, out.PendingReversal.AccountID, actorID, now, s.rules.ReversalTokenTTL)
		if err := s.tokens.Put(ctx, p); err != nil {
			s.mu.Unlock()
			return transport.TransitionResponse{}, translate(op, err)
		}
		pending = &p
	}

	s.commitLocked(out.Changes)
	resp := transport.TransitionResponse{
		Deal:     s.viewLocked(out.Deal, now, s.historyLocked()),
		FollowUp: out.FollowUp,
	}
	s.mu.Unlock()

	if pending != nil {
		resp.PendingReversal = &transport.PendingReversalView{
			Token:     pending.Token,
			AccountID: pending.AccountID,
			ExpiresAt: pending.ExpiresAt,
		}
	}
	if out.Conversion != nil {
		resp.Conversion = toConversionView(out)
	}

	s.log.WithContext(ctx).StageChanged(dealID, string(out.From), string(target), actorID)
	s.publish(ctx, transitionEvents(out, actorID, now)...)
	s.deliver(ctx, out.Notices)
	return resp, nil
}

func toConversionView(out engine.Outcome) *transport.ConversionView {
	conv := out.Conversion
	view := &transport.ConversionView{AlreadyConverted: conv.AlreadyConverted, Moved: conv.Moved}
	if conv.Account != nil {
		view.AccountID = conv.Account.ID
		view.AccountName = conv.Account.Name
	}
	if conv.Contact != nil {
		view.ContactID = conv.Contact.ID
	}
	if conv.Conflict != nil {
		view.Conflict = &transport.ConflictView{Company: conv.Conflict.Company, ExistingAccountID: conv.Conflict.ExistingAccountID}
	}
	return view
}

func transitionEvents(out engine.Outcome, actorID string, now time.Time) []events.Event {
	base := events.NewBaseEvent(now)
	evts := []events.Event{events.DealStageChanged{
		BaseEvent: base,
		DealID:    out.Deal.ID,
		Company:   out.Deal.Company,
		FromStage: string(out.From),
		ToStage:   string(out.Deal.Stage),
		ActorID:   actorID,
		Assignees: append([]string(nil), out.Deal.AssignedTo...),
	}}

	if conv := out.Conversion; conv != nil {
		switch {
		case conv.Conflict != nil:
			evts = append(evts, events.ConversionConflicted{
				BaseEvent:         base,
				DealID:            out.Deal.ID,
				Company:           conv.Conflict.Company,
				ExistingAccountID: conv.Conflict.ExistingAccountID,
			})
		case !conv.AlreadyConverted && conv.Account != nil:
			evts = append(evts, events.DealConverted{
				BaseEvent:   base,
				DealID:      out.Deal.ID,
				AccountID:   conv.Account.ID,
				AccountName: conv.Account.Name,
				Moved:       conv.Moved,
				ActorID:     actorID,
				Assignees:   append([]string(nil), out.Deal.AssignedTo...),
			})
		}
	}

	if task := out.FollowUp; task != nil {
		evts = append(evts, events.FollowUpCreated{
			BaseEvent:     base,
			TaskID:        task.ID,
			DealID:        out.Deal.ID,
			Title:         task.Title,
			ResponsibleID: task.ResponsibleID,
			DueDate:       task.DueDate,
			Priority:      string(task.Priority),
		})
	}
	return evts
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func cleanAssignees(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
