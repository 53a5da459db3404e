// Package sse streams notifications and pipeline updates to connected browsers.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"crm_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	clientBuffer      = 32
	defaultHeartbeat  = 25 * time.Second
	heartbeatEventTag = "ping"
)

// EventType is the SSE event name the browser listens on.
type EventType string

const (
	EventNotification  EventType = "in_app_notification"
	EventStageChanged  EventType = "deal_stage_changed"
	EventDealConverted EventType = "deal_converted"
	EventFollowUp      EventType = "follow_up_created"
	EventReversal      EventType = "reversal_updated"
)

type Event struct {
	Type    EventType   `json:"type"`
	DealID  string      `json:"dealId,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type client struct {
	userID string
	events chan Event
}

// Service keeps the open streams per user.
type Service struct {
	mu        sync.RWMutex
	clients   map[string][]*client
	heartbeat time.Duration
	log       *logger.Logger
}

func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		clients:   make(map[string][]*client),
		heartbeat: defaultHeartbeat,
		log:       log,
	}
}

// SetHeartbeat changes how often idle streams get a ping comment so proxies
// keep them open. Zero disables pings.
func (s *Service) SetHeartbeat(d time.Duration) { s.heartbeat = d }

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.userID] = append(s.clients[c.userID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			close(c.events)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}
}

// Connected reports how many streams the user has open.
func (s *Service) Connected(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

// Publish sends an event to a specific user. Slow clients drop events.
func (s *Service) Publish(userID string, event Event) {
	if userID == "" {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := s.clients[userID]
	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full", "userId", userID, "type", event.Type)
		}
	}

	if len(clients) > 0 {
		s.log.Debug("sse event published", "type", event.Type, "userId", userID, "clients", len(clients))
	}
}

// PublishMany sends event once to each distinct non-empty user id.
func (s *Service) PublishMany(userIDs []string, event Event) {
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		s.Publish(id, event)
	}
}

// Handler streams events to the caller until the request context ends.
func (s *Service) Handler(getUserID func(*gin.Context) (string, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID: userID,
			events: make(chan Event, clientBuffer),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		var ping <-chan time.Time
		if s.heartbeat > 0 {
			ticker := time.NewTicker(s.heartbeat)
			defer ticker.Stop()
			ping = ticker.C
		}

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case <-ping:
				c.SSEvent(heartbeatEventTag, "")
				c.Writer.Flush()
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[string][]*client)
}
