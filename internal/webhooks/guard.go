package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerdesk/portal-backend/pkg/redis"
)

const defaultDeliveryTTL = 72 * time.Hour

// Delivery is the guard's view of one event id.
type Delivery struct {
	Duplicate bool
	// FirstSeen is when the id was first marked; zero when unknown.
	FirstSeen time.Time
}

// IdempotencyGuard marks delivered event ids in Redis so a redelivery is
// acknowledged without being dispatched again. The mark holds the first
// delivery time.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
	now   func() time.Time
}

// NewIdempotencyGuard scopes marks by provider. A zero ttl uses 72h.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	case scope == "":
		return nil, errors.New("scope is required")
	}
	if ttl == 0 {
		ttl = defaultDeliveryTTL
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope, now: time.Now}, nil
}

// CheckAndMark marks eventID unless it is already marked.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (Delivery, error) {
	if eventID == "" {
		return Delivery{}, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	now := g.now().UTC()
	set, err := g.store.SetNX(ctx, key, now.Format(time.RFC3339Nano), g.ttl)
	if err != nil {
		return Delivery{}, fmt.Errorf("set idempotency key: %w", err)
	}
	if set {
		return Delivery{FirstSeen: now}, nil
	}

	d := Delivery{Duplicate: true}
	if raw, err := g.store.Get(ctx, key); err == nil {
		d.FirstSeen, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return d, nil
}

// Delete clears the mark so the provider's retry is processed.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}
