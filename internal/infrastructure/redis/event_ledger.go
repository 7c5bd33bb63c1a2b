package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stripe-erp-sync/internal/application/ports"
)

var _ ports.EventLedger = (*EventLedger)(nil)

const keyPrefix = "stripe-erp-sync:event:"

// ledgerCmds subconjunto de goredis.Cmdable usado por el ledger.
type ledgerCmds interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// EventLedger registro de eventos procesados con expiración (SET NX + TTL).
type EventLedger struct {
	client ledgerCmds
	ttl    time.Duration
}

// NewEventLedger construye el ledger. ttl 0 = sin expiración.
func NewEventLedger(client ledgerCmds, ttl time.Duration) *EventLedger {
	return &EventLedger{client: client, ttl: ttl}
}

// Claim devuelve true si la clave del evento no existía.
func (l *EventLedger) Claim(ctx context.Context, eventID, eventType string) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+eventID, eventType, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", eventID, err)
	}
	return ok, nil
}

// Release borra la clave del evento.
func (l *EventLedger) Release(ctx context.Context, eventID string) error {
	if err := l.client.Del(ctx, keyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", eventID, err)
	}
	return nil
}
