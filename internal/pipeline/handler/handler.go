package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/service"
	"crm_pipeline_backend/internal/pipeline/transport"
	"crm_pipeline_backend/platform/httpkit"
	"crm_pipeline_backend/platform/validator"
)

// Handler handles HTTP requests for the sales pipeline.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgMissingID        = "missing id"
)

// New creates a new pipeline handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// bindJSON decodes and validates the body. It writes the 400 response itself.
func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		httpkit.Error(c, http.StatusBadRequest, msgMissingID, nil)
		return "", false
	}
	return id, true
}

// ListDeals lists deals with their health, healthiest first.
// GET /api/v1/pipeline/deals
func (h *Handler) ListDeals(c *gin.Context) {
	var req transport.ListDealsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.ListDeals(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateDeal creates a deal in prospecto.
// POST /api/v1/pipeline/deals
func (h *Handler) CreateDeal(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.CreateDealRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.CreateDeal(c.Request.Context(), req, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// GetDeal returns one deal.
// GET /api/v1/pipeline/deals/:id
func (h *Handler) GetDeal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetDeal(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateDeal patches a deal's descriptive fields.
// PATCH /api/v1/pipeline/deals/:id
func (h *Handler) UpdateDeal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.UpdateDealRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.ContactEmail != nil && *req.ContactEmail != "" {
		if err := h.val.Var(*req.ContactEmail, "email"); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"ContactEmail": "email"})
			return
		}
	}

	result, err := h.svc.UpdateDeal(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteDeal deletes a deal without touching its records.
// DELETE /api/v1/pipeline/deals/:id
func (h *Handler) DeleteDeal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteDeal(c.Request.Context(), id)) {
		return
	}
	httpkit.NoContent(c)
}

// Transition moves a deal to another stage.
// POST /api/v1/pipeline/deals/:id/transition
func (h *Handler) Transition(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Transition(c.Request.Context(), id, domain.Stage(req.Stage), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AddActivity logs an activity on a deal.
// POST /api/v1/pipeline/deals/:id/activities
func (h *Handler) AddActivity(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.CreateActivityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.AddActivity(c.Request.Context(), id, req, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// AddTask schedules a task on a deal.
// POST /api/v1/pipeline/deals/:id/tasks
func (h *Handler) AddTask(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.CreateTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.AddTask(c.Request.Context(), id, req, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// AddReminder creates a reminder on a deal.
// POST /api/v1/pipeline/deals/:id/reminders
func (h *Handler) AddReminder(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.CreateReminderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.AddReminder(c.Request.Context(), id, req, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// CompleteTask marks a task done.
// POST /api/v1/pipeline/tasks/:id/complete
func (h *Handler) CompleteTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.CompleteTask(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CompleteReminder marks a reminder done.
// POST /api/v1/pipeline/reminders/:id/complete
func (h *Handler) CompleteReminder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.CompleteReminder(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ConfirmReversal deletes the account of a deal that left cerrado.
// POST /api/v1/pipeline/reversals/:token/confirm
func (h *Handler) ConfirmReversal(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	token, ok := pathID(c, "token")
	if !ok {
		return
	}
	result, err := h.svc.ConfirmReversal(c.Request.Context(), token, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CancelReversal keeps the account and detaches it from the deal.
// POST /api/v1/pipeline/reversals/:token/cancel
func (h *Handler) CancelReversal(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	token, ok := pathID(c, "token")
	if !ok {
		return
	}
	result, err := h.svc.CancelReversal(c.Request.Context(), token, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Alerts lists stalled and stuck deals and overdue work.
// GET /api/v1/pipeline/alerts
func (h *Handler) Alerts(c *gin.Context) {
	httpkit.OK(c, h.svc.Alerts(c.Request.Context()))
}

// Summary returns the caller's daily digest.
// GET /api/v1/pipeline/summary
func (h *Handler) Summary(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	httpkit.OK(c, h.svc.Summary(c.Request.Context(), identity.UserID()))
}

// SyncStatus reports the background persistence state.
// GET /api/v1/pipeline/sync
func (h *Handler) SyncStatus(c *gin.Context) {
	httpkit.OK(c, transport.SyncResponse(h.svc.SyncStatus()))
}

// ListUsers lists pipeline users.
// GET /api/v1/pipeline/users
func (h *Handler) ListUsers(c *gin.Context) {
	httpkit.OK(c, h.svc.ListUsers(c.Request.Context()))
}

// UpsertUser registers or updates a pipeline user.
// PUT /api/v1/pipeline/users/:id
func (h *Handler) UpsertUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.UpsertUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.UpsertUser(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
