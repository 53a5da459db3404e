// Package notification delivers pipeline notices to users: it persists them as
// in-app notifications, pushes them to connected browsers over SSE and emails
// users with a known address. It also subscribes to pipeline events.
package notification

import (
	"context"
	"strings"

	"crm_pipeline_backend/internal/email"
	"crm_pipeline_backend/internal/events"
	apphttp "crm_pipeline_backend/internal/http"
	notifhandler "crm_pipeline_backend/internal/notification/handler"
	"crm_pipeline_backend/internal/notification/inapp"
	"crm_pipeline_backend/internal/notification/sse"
	"crm_pipeline_backend/platform/httpkit"
	"crm_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recipient is the addressable identity of a user.
type Recipient struct {
	Name  string
	Email string
}

// Directory resolves user ids to recipients.
type Directory interface {
	LookupRecipient(userID string) (Recipient, bool)
}

// DirectoryFunc adapts a function to Directory.
type DirectoryFunc func(userID string) (Recipient, bool)

func (f DirectoryFunc) LookupRecipient(userID string) (Recipient, bool) { return f(userID) }

// Module handles notification delivery and pipeline event subscriptions.
type Module struct {
	mailer       email.Sender
	directory    Directory
	log          *logger.Logger
	sse          *sse.Service
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
}

// New creates a new notification module. A nil pool keeps notifications in memory.
func New(pool *pgxpool.Pool, mailer email.Sender, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}

	var store inapp.Store = inapp.NewMemoryStore()
	if pool != nil {
		store = inapp.NewRepository(pool)
	}
	inAppSvc := inapp.NewService(store, log)
	sseSvc := sse.New(log)
	inAppSvc.SetSSE(sseSvc)

	if mailer == nil {
		mailer = email.NoopSender{}
	}

	return &Module{
		mailer:       mailer,
		log:          log,
		sse:          sseSvc,
		inAppService: inAppSvc,
		inAppHandler: notifhandler.NewHTTPHandler(inAppSvc),
	}
}

func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers notification API routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	notifications := ctx.Protected.Group("/notifications")
	notifications.GET("/stream", m.sse.Handler(streamUserID))
	m.inAppHandler.RegisterRoutes(notifications)
}

func streamUserID(c *gin.Context) (string, bool) {
	id := httpkit.GetIdentity(c)
	return id.UserID(), id.IsAuthenticated()
}

// SetDirectory injects the user directory used for email fan-out.
func (m *Module) SetDirectory(d Directory) { m.directory = d }

// InAppService exposes the in-app notification service for integration points.
func (m *Module) InAppService() *inapp.Service { return m.inAppService }

// Close disconnects SSE clients.
func (m *Module) Close() { m.sse.Close() }

// Notify persists an in-app notification and emails the user when an address
// is known. Email failures are logged and do not fail the notice.
func (m *Module) Notify(ctx context.Context, userID, message, category string) error {
	if _, err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:   userID,
		Content:  message,
		Category: category,
	}); err != nil {
		return err
	}

	recipient, ok := m.lookup(userID)
	if !ok || recipient.Email == "" {
		return nil
	}
	if err := m.mailer.SendNotificationEmail(ctx, email.Message{
		ToEmail:  recipient.Email,
		ToName:   recipient.Name,
		Category: category,
		Body:     message,
	}); err != nil {
		m.log.Warn("notification email failed", "error", err, "userId", userID)
	}
	return nil
}

func (m *Module) lookup(userID string) (Recipient, bool) {
	if m.directory == nil {
		return Recipient{}, false
	}
	r, ok := m.directory.LookupRecipient(userID)
	r.Email = strings.TrimSpace(r.Email)
	return r, ok
}

// RegisterHandlers subscribes the module to pipeline events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DealStageChanged{}.EventName(), m)
	bus.Subscribe(events.DealConverted{}.EventName(), m)
	bus.Subscribe(events.ConversionConflicted{}.EventName(), m)
	bus.Subscribe(events.ReversalCompleted{}.EventName(), m)
	bus.Subscribe(events.ReversalDeclined{}.EventName(), m)
	bus.Subscribe(events.FollowUpCreated{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle logs pipeline events and pushes them to the involved users.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	log := m.log.WithContext(ctx)

	switch e := event.(type) {
	case events.DealStageChanged:
		log.StageChanged(e.DealID, e.FromStage, e.ToStage, e.ActorID)
		m.sse.PublishMany(append([]string{e.ActorID}, e.Assignees...), sse.Event{Type: sse.EventStageChanged, DealID: e.DealID, Data: e})
	case events.DealConverted:
		log.Info("deal converted", "dealId", e.DealID, "accountId", e.AccountID, "moved", e.Moved)
		m.sse.PublishMany(append([]string{e.ActorID}, e.Assignees...), sse.Event{Type: sse.EventDealConverted, DealID: e.DealID, Data: e})
	case events.ConversionConflicted:
		log.Warn("deal conversion skipped", "dealId", e.DealID, "empresa", e.Company, "existingAccountId", e.ExistingAccountID)
	case events.ReversalCompleted:
		log.Info("conversion reversed", "dealId", e.DealID, "accountId", e.AccountID, "moved", e.Moved)
		m.sse.Publish(e.ActorID, sse.Event{Type: sse.EventReversal, DealID: e.DealID, Data: e})
	case events.ReversalDeclined:
		log.Info("account detached from deal", "dealId", e.DealID, "accountId", e.AccountID)
		m.sse.Publish(e.ActorID, sse.Event{Type: sse.EventReversal, DealID: e.DealID, Data: e})
	case events.FollowUpCreated:
		log.Info("follow-up task created", "dealId", e.DealID, "taskId", e.TaskID, "responsable", e.ResponsibleID)
		m.sse.Publish(e.ResponsibleID, sse.Event{Type: sse.EventFollowUp, DealID: e.DealID, Message: e.Title, Data: e})
	default:
		log.Debug("notification module ignored event", "event", event.EventName())
	}
	return nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
