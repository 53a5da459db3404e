// Package handler exposes the in-app notification inbox over HTTP.
package handler

import (
	"net/http"

	"crm_pipeline_backend/internal/notification/inapp"
	"crm_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

type HTTPHandler struct {
	svc *inapp.Service
}

func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.DELETE("/:id", h.Delete)
}

type listQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (q *listQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.Limit < 1:
		q.Limit = defaultPageSize
	case q.Limit > maxPageSize:
		q.Limit = maxPageSize
	}
}

// ListResponse is one page of the caller's inbox plus the unread badge count.
type ListResponse struct {
	Items  []inapp.Notification `json:"items"`
	Total  int                  `json:"total"`
	Unread int                  `json:"unread"`
	Page   int                  `json:"page"`
	Limit  int                  `json:"limit"`
}

func (h *HTTPHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid paging parameters", err.Error())
		return
	}
	q.normalize()

	ctx := c.Request.Context()
	items, total, err := h.svc.List(ctx, userID, q.Page, q.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	unread, err := h.svc.CountUnread(ctx, userID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, ListResponse{Items: items, Total: total, Unread: unread, Page: q.Page, Limit: q.Limit})
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), userID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := notificationID(c)
	if !ok {
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), userID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.svc.MarkAllRead(c.Request.Context(), userID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := notificationID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

// callerID writes 401 and reports false when the request carries no identity.
func callerID(c *gin.Context) (string, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return "", false
	}
	return identity.UserID(), true
}

func notificationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification id", nil)
		return uuid.Nil, false
	}
	return id, true
}
