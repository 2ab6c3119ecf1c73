// Package store persists processed emails in Postgres and tracks inbound
// deduplication state in Redis.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/finofficer/autoreply/internal/history"
	"github.com/finofficer/autoreply/internal/mail"
)

// PgxPool is the subset of pgxpool.Pool the store uses. Satisfied by
// pgxmock in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Messages is the relational store of processed emails keyed by sender.
type Messages struct {
	pool PgxPool
}

// NewMessages creates a message store over the given pool.
func NewMessages(pool PgxPool) *Messages {
	if pool == nil {
		return nil
	}
	return &Messages{pool: pool}
}

// Append inserts a newly received message and returns its ID. The stored
// sentiment starts empty and is filled in by UpdateStatus once analysis
// completes.
func (s *Messages) Append(ctx context.Context, msg mail.Message) (uuid.UUID, error) {
	id := msg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	query := `
		INSERT INTO emails (id, from_email, to_email, subject, content, received_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if err := s.pool.QueryRow(ctx, query,
		id, msg.From, msg.To, msg.Subject, msg.Content, msg.ReceivedAt, string(mail.StatusReceived),
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("store: append message: %w", err)
	}
	return id, nil
}

// UpdateStatus records the terminal status of a message together with the
// tone analysis that informed it. analysis may be nil for rejected messages.
func (s *Messages) UpdateStatus(ctx context.Context, id uuid.UUID, status mail.Status, analysis *mail.ToneAnalysis) error {
	var (
		sentiment *string
		toneJSON  []byte
	)
	if analysis != nil {
		v := string(analysis.Sentiment)
		sentiment = &v
		data, err := json.Marshal(analysis)
		if err != nil {
			return fmt.Errorf("store: marshal tone analysis: %w", err)
		}
		toneJSON = data
	}

	query := `
		UPDATE emails
		SET status = $2, sentiment = $3, tone_analysis = $4, processed_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, id, string(status), sentiment, toneJSON)
	if err != nil {
		return fmt.Errorf("store: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: update status: message %s not found", id)
	}
	return nil
}

// History returns the sender's prior messages ordered newest first, with the
// minimal fields the history summarizer needs. Messages without a stored
// sentiment (not yet analyzed, or rejected) count toward history with a
// neutral sentiment.
func (s *Messages) History(ctx context.Context, sender string) ([]history.StoredMessage, error) {
	query := `
		SELECT received_at, COALESCE(sentiment, 'NEUTRAL')
		FROM emails
		WHERE from_email = $1
		ORDER BY received_at DESC
	`
	rows, err := s.pool.Query(ctx, query, sender)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	var out []history.StoredMessage
	for rows.Next() {
		var (
			receivedAt time.Time
			sentiment  string
		)
		if err := rows.Scan(&receivedAt, &sentiment); err != nil {
			return nil, fmt.Errorf("store: scan history row: %w", err)
		}
		out = append(out, history.StoredMessage{
			ReceivedAt: receivedAt,
			Sentiment:  mail.ParseSentiment(sentiment, mail.SentimentNeutral),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate history: %w", err)
	}
	return out, nil
}
