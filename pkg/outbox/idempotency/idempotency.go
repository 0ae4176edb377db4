package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dispo-backend/pkg/redis"
)

// Claim is the outcome of marking one delivered event as taken by a consumer.
// Duplicate is true when another delivery already holds the marker.
type Claim struct {
	Key       string
	Duplicate bool
}

// Manager marks consumed outbox events in Redis with SETNX and a TTL so redelivered
// transaction events do not reconcile candidates twice. Keys follow
// `dispo:idempotency:evt:processed:<consumer>:<event_id>`.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Claim sets the processed marker for the event unless it already exists.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (Claim, error) {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return Claim{}, err
	}
	set, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return Claim{}, fmt.Errorf("claim %s: %w", key, err)
	}
	return Claim{Key: key, Duplicate: !set}, nil
}

// Release drops a claim this delivery owns so a redelivery is handled again.
// Releasing a duplicate claim is a no-op; the marker belongs to another delivery.
func (m *Manager) Release(ctx context.Context, claim Claim) error {
	if claim.Duplicate || claim.Key == "" {
		return nil
	}
	return m.store.Del(ctx, claim.Key)
}

func (m *Manager) processedKey(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
