package transport

import (
	"time"

	"crm_pipeline_backend/internal/pipeline/alerts"
	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/store"
)

// Request DTOs
type CreateDealRequest struct {
	Company         string   `json:"empresa" validate:"max=200"`
	Industry        string   `json:"industria" validate:"max=100"`
	Website         string   `json:"sitioWeb" validate:"omitempty,max=200"`
	CompanyPhone    string   `json:"telefonoEmpresa" validate:"omitempty,min=5,max=30"`
	Address         string   `json:"direccion" validate:"max=200"`
	City            string   `json:"ciudad" validate:"max=100"`
	ContactName     string   `json:"contactoNombre" validate:"max=150"`
	ContactEmail    string   `json:"contactoEmail" validate:"omitempty,email"`
	ContactPhone    string   `json:"contactoTelefono" validate:"omitempty,min=5,max=30"`
	ContactPosition string   `json:"contactoCargo" validate:"max=100"`
	Service         string   `json:"servicio" validate:"max=100"`
	Source          string   `json:"fuente" validate:"max=100"`
	EstimatedValue  *float64 `json:"valorEstimado,omitempty" validate:"omitempty,gte=0"`
	AssignedTo      []string `json:"asignados" validate:"omitempty,dive,notblank"`
}

// UpdateDealRequest patches deal fields. The stage only changes through a transition.
type UpdateDealRequest struct {
	Company         *string       `json:"empresa,omitempty" validate:"omitempty,max=200"`
	Industry        *string       `json:"industria,omitempty" validate:"omitempty,max=100"`
	Website         *string       `json:"sitioWeb,omitempty" validate:"omitempty,max=200"`
	CompanyPhone    *string       `json:"telefonoEmpresa,omitempty" validate:"omitempty,max=30"`
	Address         *string       `json:"direccion,omitempty" validate:"omitempty,max=200"`
	City            *string       `json:"ciudad,omitempty" validate:"omitempty,max=100"`
	ContactName     *string       `json:"contactoNombre,omitempty" validate:"omitempty,max=150"`
	ContactEmail    *string       `json:"contactoEmail,omitempty" validate:"omitempty,max=200"`
	ContactPhone    *string       `json:"contactoTelefono,omitempty" validate:"omitempty,max=30"`
	ContactPosition *string       `json:"contactoCargo,omitempty" validate:"omitempty,max=100"`
	Service         *string       `json:"servicio,omitempty" validate:"omitempty,max=100"`
	Source          *string       `json:"fuente,omitempty" validate:"omitempty,max=100"`
	EstimatedValue  OptionalFloat `json:"valorEstimado,omitempty" validate:"-"`
	AssignedTo      []string      `json:"asignados,omitempty" validate:"omitempty,dive,notblank"`
}

type TransitionRequest struct {
	Stage string `json:"stage" validate:"required,oneof=prospecto contacto diagnostico piloto negociacion cerrado perdido"`
}

type CreateActivityRequest struct {
	Type        string     `json:"tipo" validate:"required,oneof=llamada email reunion nota whatsapp visita"`
	Description string     `json:"descripcion" validate:"max=2000"`
	Date        *time.Time `json:"fecha,omitempty"`
}

type CreateTaskRequest struct {
	Title         string    `json:"titulo" validate:"required,notblank,max=200"`
	Description   string    `json:"descripcion" validate:"max=2000"`
	DueDate       time.Time `json:"fechaCompromiso" validate:"required"`
	Priority      string    `json:"prioridad" validate:"omitempty,oneof=baja media alta"`
	ResponsibleID string    `json:"responsable" validate:"max=100"`
}

type CreateReminderRequest struct {
	Title  string    `json:"titulo" validate:"required,notblank,max=200"`
	Date   time.Time `json:"fecha" validate:"required"`
	UserID string    `json:"usuario" validate:"max=100"`
}

type ListDealsRequest struct {
	Stage    string `form:"stage" validate:"omitempty,oneof=prospecto contacto diagnostico piloto negociacion cerrado perdido"`
	Assignee string `form:"assignee" validate:"max=100"`
	Level    string `form:"level" validate:"omitempty,oneof=hot warm cold"`
}

// Response DTOs
type ScoreView struct {
	Score    int                `json:"score"`
	Level    string             `json:"level"`
	ColorTag string             `json:"colorTag"`
	Factors  map[string]float64 `json:"factors,omitempty"`
}

type SuggestionView struct {
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
	TaskID    string `json:"taskId,omitempty"`
	IconTag   string `json:"iconTag"`
}

// DealView is a deal with its computed health.
type DealView struct {
	domain.Deal
	Score         ScoreView       `json:"health"`
	Suggestion    *SuggestionView `json:"suggestion,omitempty"`
	AllowedStages []domain.Stage  `json:"allowedStages"`
	AccountID     string          `json:"cuentaId,omitempty"`
}

type DealListResponse struct {
	Items []DealView `json:"items"`
	Total int        `json:"total"`
}

type ConversionView struct {
	AccountID        string        `json:"accountId,omitempty"`
	AccountName      string        `json:"accountName,omitempty"`
	ContactID        string        `json:"contactId,omitempty"`
	AlreadyConverted bool          `json:"alreadyConverted"`
	Moved            int           `json:"moved"`
	Conflict         *ConflictView `json:"conflict,omitempty"`
}

type ConflictView struct {
	Company           string `json:"empresa"`
	ExistingAccountID string `json:"existingAccountId"`
}

type PendingReversalView struct {
	Token     string    `json:"token"`
	AccountID string    `json:"accountId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type TransitionResponse struct {
	Deal            DealView             `json:"deal"`
	FollowUp        *domain.Task         `json:"followUp,omitempty"`
	Conversion      *ConversionView      `json:"conversion,omitempty"`
	PendingReversal *PendingReversalView `json:"pendingReversal,omitempty"`
}

type ReversalResponse struct {
	DealID    string `json:"dealId"`
	AccountID string `json:"accountId"`
	Moved     int    `json:"moved"`
}

// ReversalDeclinedResponse reports a cancelled reversal: the account was kept and detached.
type ReversalDeclinedResponse struct {
	DealID     string    `json:"dealId"`
	AccountID  string    `json:"accountId"`
	DetachedAt time.Time `json:"detachedAt"`
}

type AlertsResponse struct {
	Stalled          []alerts.StalledDeal `json:"stalled"`
	Stuck            []alerts.StuckDeal   `json:"stuck"`
	OverdueTasks     []domain.Task        `json:"overdueTasks"`
	OverdueReminders []domain.Reminder    `json:"overdueReminders"`
}

type SyncResponse = store.SyncStatus

// UpsertUserRequest registers or updates a pipeline user.
type UpsertUserRequest struct {
	Name  string `json:"nombre" validate:"required,max=150"`
	Email string `json:"email" validate:"omitempty,email,max=200"`
}

// UserListResponse lists the known pipeline users.
type UserListResponse struct {
	Items []domain.User `json:"items"`
}
