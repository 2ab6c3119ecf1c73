// Package archive persists a record of every message that reached a
// terminal state, together with the reply that was sent for it.
package archive

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finofficer/autoreply/internal/mail"
)

// Record is what gets archived per terminal message.
type Record struct {
	MessageID  uuid.UUID   `json:"message_id"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Subject    string      `json:"subject"`
	ReceivedAt time.Time   `json:"received_at"`
	Status     mail.Status `json:"status"`
	Sentiment  string      `json:"sentiment,omitempty"`
	Urgency    string      `json:"urgency,omitempty"`

	// TemplateKey and ReplyBody are set only when a reply was rendered.
	TemplateKey string    `json:"template_key,omitempty"`
	ReplyBody   string    `json:"reply_body,omitempty"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// Writer persists archival records.
type Writer interface {
	Write(ctx context.Context, record Record) error
}

// Nop discards records. Used when no archive backend is configured.
type Nop struct{}

func (Nop) Write(context.Context, Record) error { return nil }
