package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultDedupeTTL = 24 * time.Hour

// Dedupe tracks which provider message IDs have already entered the
// pipeline, so a redelivered inbound message is processed once.
type Dedupe struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewDedupe creates a Dedupe store. ttl <= 0 uses the default of 24h.
func NewDedupe(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *Dedupe {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("autoreply.internal.store.dedupe")
	}
	return &Dedupe{redis: client, ttl: ttl, tracer: tracer}
}

// AlreadyProcessed reports whether the provider message ID has been seen.
func (d *Dedupe) AlreadyProcessed(ctx context.Context, providerMessageID string) (bool, error) {
	ctx, span := d.tracer.Start(ctx, "store.dedupe_check")
	defer span.End()

	n, err := d.redis.Exists(ctx, dedupeKey(providerMessageID)).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("store: dedupe check: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records the provider message ID. Returns false when another
// worker marked it first.
func (d *Dedupe) MarkProcessed(ctx context.Context, providerMessageID string) (bool, error) {
	ctx, span := d.tracer.Start(ctx, "store.dedupe_mark")
	defer span.End()

	ok, err := d.redis.SetNX(ctx, dedupeKey(providerMessageID), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("store: dedupe mark: %w", err)
	}
	return ok, nil
}

func dedupeKey(id string) string {
	return fmt.Sprintf("inbound:%s", id)
}
