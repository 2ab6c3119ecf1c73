package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finofficer/autoreply/internal/mail"
	"github.com/finofficer/autoreply/pkg/logging"
)

// queueClient abstracts the inbound message queue so the worker can run
// against SQS in production and an in-memory channel in development.
type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string

	// ReceiveCount is how many times the queue has delivered this message;
	// values above 1 mean a redelivery after a failed attempt.
	ReceiveCount int
}

// Publisher enqueues inbound messages for asynchronous processing.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a Publisher over the given queue.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("pipeline: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// Enqueue serializes the message onto the queue.
func (p *Publisher) Enqueue(ctx context.Context, msg mail.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("pipeline: encode message: %w", err)
	}
	if err := p.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("pipeline: enqueue message: %w", err)
	}
	p.logger.Debug("message enqueued", "message_id", msg.ID, "from", msg.From)
	return nil
}
