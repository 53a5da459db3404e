// Package events defines the pipeline's domain events. The bus itself lives
// in platform/events and is re-exported here so modules import one package.
package events

import (
	"time"

	"crm_pipeline_backend/platform/events"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// DealStageChanged is published after a validated transition is applied.
type DealStageChanged struct {
	BaseEvent
	DealID    string   `json:"dealId"`
	Company   string   `json:"empresa"`
	FromStage string   `json:"fromStage"`
	ToStage   string   `json:"toStage"`
	ActorID   string   `json:"actorId"`
	Assignees []string `json:"asignados,omitempty"`
}

func (e DealStageChanged) EventName() string { return "pipeline.deal.stage_changed" }

// DealConverted is published when a won deal produced a new account.
type DealConverted struct {
	BaseEvent
	DealID      string   `json:"dealId"`
	AccountID   string   `json:"accountId"`
	AccountName string   `json:"accountName"`
	Moved       int      `json:"moved"`
	ActorID     string   `json:"actorId"`
	Assignees   []string `json:"asignados,omitempty"`
}

func (e DealConverted) EventName() string { return "pipeline.deal.converted" }

// ConversionConflicted is published when conversion was skipped because an
// account with the same company name exists.
type ConversionConflicted struct {
	BaseEvent
	DealID            string `json:"dealId"`
	Company           string `json:"empresa"`
	ExistingAccountID string `json:"existingAccountId"`
}

func (e ConversionConflicted) EventName() string { return "pipeline.deal.conversion_conflict" }

// ReversalCompleted is published after a confirmed reversal deleted the account.
type ReversalCompleted struct {
	BaseEvent
	DealID    string `json:"dealId"`
	AccountID string `json:"accountId"`
	Moved     int    `json:"moved"`
	ActorID   string `json:"actorId"`
}

func (e ReversalCompleted) EventName() string { return "pipeline.reversal.completed" }

// ReversalDeclined is published when an account was detached instead of deleted,
// either by cancellation or by the consistency sweep.
type ReversalDeclined struct {
	BaseEvent
	DealID    string `json:"dealId"`
	AccountID string `json:"accountId"`
	ActorID   string `json:"actorId,omitempty"`
}

func (e ReversalDeclined) EventName() string { return "pipeline.reversal.declined" }

// FollowUpCreated is published when a transition generated a follow-up task.
type FollowUpCreated struct {
	BaseEvent
	TaskID        string    `json:"taskId"`
	DealID        string    `json:"dealId"`
	Title         string    `json:"titulo"`
	ResponsibleID string    `json:"responsable"`
	DueDate       time.Time `json:"fechaCompromiso"`
	Priority      string    `json:"prioridad"`
}

func (e FollowUpCreated) EventName() string { return "pipeline.followup.created" }
