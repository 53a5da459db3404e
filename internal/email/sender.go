// Package email renders and delivers pipeline notification emails.
package email

import "context"

// Message is one notification addressed to a user with a known address.
type Message struct {
	ToEmail  string `json:"toEmail"`
	ToName   string `json:"toName"`
	Category string `json:"category"`
	Body     string `json:"body"`
}

// Sender delivers a notification email.
type Sender interface {
	SendNotificationEmail(ctx context.Context, msg Message) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendNotificationEmail(context.Context, Message) error { return nil }
