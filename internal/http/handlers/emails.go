// Package handlers holds the HTTP handlers of the public API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/finofficer/autoreply/internal/mail"
	"github.com/finofficer/autoreply/internal/pipeline"
	"github.com/finofficer/autoreply/pkg/logging"
)

// enqueuer publishes a message for asynchronous processing.
type enqueuer interface {
	Enqueue(ctx context.Context, msg mail.Message) error
}

// processor runs a message through the pipeline synchronously.
type processor interface {
	Process(ctx context.Context, msg mail.Message) (pipeline.Result, error)
}

// EmailHandler accepts inbound emails over HTTP.
type EmailHandler struct {
	publisher enqueuer
	engine    processor
	logger    *logging.Logger
}

// NewEmailHandler creates the handler. publisher may be nil when only the
// synchronous endpoint is served, and vice versa.
func NewEmailHandler(publisher enqueuer, engine processor, logger *logging.Logger) *EmailHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailHandler{publisher: publisher, engine: engine, logger: logger}
}

type emailRequest struct {
	From              string            `json:"from"`
	To                string            `json:"to"`
	Subject           string            `json:"subject"`
	Content           string            `json:"content"`
	ReceivedAt        *time.Time        `json:"received_at,omitempty"`
	Attachments       []mail.Attachment `json:"attachments,omitempty"`
	ProviderMessageID string            `json:"provider_message_id,omitempty"`
}

func (r emailRequest) toMessage() mail.Message {
	msg := mail.Message{
		ID:                uuid.New(),
		From:              r.From,
		To:                r.To,
		Subject:           r.Subject,
		Content:           r.Content,
		Attachments:       r.Attachments,
		ProviderMessageID: r.ProviderMessageID,
		ReceivedAt:        time.Now().UTC(),
	}
	if r.ReceivedAt != nil {
		msg.ReceivedAt = *r.ReceivedAt
	}
	return msg
}

type processResponse struct {
	MessageID   string `json:"message_id"`
	Status      string `json:"status"`
	ShouldReply bool   `json:"should_reply"`
	Template    string `json:"template,omitempty"`
	Sentiment   string `json:"sentiment,omitempty"`
	Urgency     string `json:"urgency,omitempty"`
	ReplyBody   string `json:"reply_body,omitempty"`
	Duplicate   bool   `json:"duplicate,omitempty"`
}

// Enqueue handles POST /api/emails: accept the message and queue it for
// asynchronous processing.
func (h *EmailHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "asynchronous intake not configured")
		return
	}
	req, ok := decodeEmail(w, r)
	if !ok {
		return
	}

	msg := req.toMessage()
	if err := h.publisher.Enqueue(r.Context(), msg); err != nil {
		h.logger.Error("enqueue failed", "error", err, "from", msg.From)
		writeError(w, http.StatusInternalServerError, "failed to accept message")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message_id": msg.ID.String(),
		"status":     string(mail.StatusReceived),
	})
}

// Process handles POST /api/emails/process: run the pipeline synchronously
// and return the decision.
func (h *EmailHandler) Process(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "synchronous processing not configured")
		return
	}
	req, ok := decodeEmail(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Process(r.Context(), req.toMessage())
	if err != nil {
		h.logger.Error("synchronous processing failed", "error", err, "from", req.From)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	resp := processResponse{
		MessageID:   result.MessageID.String(),
		Status:      string(result.Status),
		ShouldReply: result.Decision.ShouldReply,
		Template:    string(result.Decision.Template),
		Sentiment:   string(result.Decision.Analysis.Sentiment),
		Urgency:     string(result.Decision.Analysis.Urgency),
		Duplicate:   result.Duplicate,
	}
	if result.Reply != nil {
		resp.ReplyBody = result.Reply.Body
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /health.
func (h *EmailHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeEmail(w http.ResponseWriter, r *http.Request) (emailRequest, bool) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return emailRequest{}, false
	}
	if req.From == "" {
		writeError(w, http.StatusBadRequest, "from is required")
		return emailRequest{}, false
	}
	if req.Content == "" && req.Subject == "" {
		writeError(w, http.StatusBadRequest, "subject or content is required")
		return emailRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
