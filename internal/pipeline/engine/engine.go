// Package engine applies a stage transition to a snapshot: it validates the move,
// updates the deal, runs the conversion side effect and generates the follow-up
// task. The result is a changeset; the snapshot itself is never modified.
package engine

import (
	"errors"
	"fmt"
	"time"

	"crm_pipeline_backend/internal/pipeline/conversion"
	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/followup"
	"crm_pipeline_backend/internal/pipeline/store"
	"crm_pipeline_backend/platform/ids"
)

// ErrDealNotFound is returned when the snapshot has no deal with the given id.
var ErrDealNotFound = errors.New("deal not found")

// ReversalIntent asks the caller to issue a reversal token: the deal left
// cerrado while an account converted from it still exists.
type ReversalIntent struct {
	DealID    string
	AccountID string
}

// Outcome is everything a successful transition produces.
type Outcome struct {
	Deal            domain.Deal
	From            domain.Stage
	Changes         store.Changeset
	FollowUp        *domain.Task
	Conversion      *conversion.Result
	PendingReversal *ReversalIntent
	Notices         []domain.Notice
}

// Engine holds the collaborators a transition needs.
type Engine struct {
	ids         ids.Generator
	phoneRegion string
}

// New creates an engine. phoneRegion is the default region for numbers
// written without a country code.
func New(gen ids.Generator, phoneRegion string) *Engine {
	if gen == nil {
		gen = ids.UUID{}
	}
	return &Engine{ids: gen, phoneRegion: phoneRegion}
}

// AttemptTransition moves dealID to target on behalf of actorID.
// Validation failures return *domain.InvalidTransitionError or
// *domain.MissingPrerequisiteError and an empty outcome.
func (e *Engine) AttemptTransition(snap *store.Snapshot, dealID string, target domain.Stage, actorID string, now time.Time) (Outcome, error) {
	deal, ok := snap.Deals[dealID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrDealNotFound, dealID)
	}
	if err := domain.ValidateTransition(deal, target, hasActivity(snap, dealID)); err != nil {
		return Outcome{}, err
	}

	moved := domain.WithStage(deal, target, actorID, now)
	out := Outcome{Deal: moved, From: deal.Stage}
	out.Changes.Deals.Upsert(moved)

	switch {
	case target == domain.StageCerrado:
		conv := conversion.Convert(snap, moved, actorID, now, conversion.Options{IDs: e.ids, PhoneRegion: e.phoneRegion})
		out.Conversion = &conv
		out.Changes.Merge(conv.Changes)
		out.Notices = append(out.Notices, conv.Notices...)
	case deal.Stage == domain.StageCerrado:
		if acc, ok := snap.AccountForDeal(dealID); ok {
			out.PendingReversal = &ReversalIntent{DealID: dealID, AccountID: acc.ID}
		}
	}

	if task := followup.Generate(moved, target, actorID, now); task != nil {
		task.ID = e.ids.NewID()
		out.FollowUp = task
		out.Changes.Tasks.Upsert(*task)
		if followup.NeedsNotification(task, actorID) {
			out.Notices = append(out.Notices, domain.Notice{
				UserID:   task.ResponsibleID,
				Message:  fmt.Sprintf("Nueva tarea de seguimiento: %s", task.Title),
				Category: domain.CategoryInfo,
			})
		}
	}
	return out, nil
}

// hasActivity counts the deal's own activities and, while a converted account is
// still linked, the account's activities, since conversion moved them there.
func hasActivity(snap *store.Snapshot, dealID string) bool {
	if snap.HasDealActivity(dealID) {
		return true
	}
	if acc, ok := snap.AccountForDeal(dealID); ok {
		return snap.HasOwnerActivity(domain.AccountOwner(acc.ID))
	}
	return false
}

// ConfirmReversal moves the account's records back to the deal and deletes
// the account. The deal must no longer be in cerrado.
func ConfirmReversal(snap *store.Snapshot, dealID, accountID string) (conversion.Result, error) {
	deal, ok := snap.Deals[dealID]
	if !ok {
		return conversion.Result{}, fmt.Errorf("%w: %s", ErrDealNotFound, dealID)
	}
	if deal.Stage == domain.StageCerrado {
		return conversion.Result{}, ErrDealWonAgain
	}
	return conversion.Reverse(snap, dealID, accountID), nil
}

// ErrDealWonAgain is returned when a reversal is confirmed after the deal
// returned to cerrado.
var ErrDealWonAgain = errors.New("deal is back in cerrado")
