package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stripe-erp-sync/internal/application/ports"
)

var _ ports.EventLedger = (*EventLedgerRepo)(nil)

const createEventLedgerTable = `
	CREATE TABLE IF NOT EXISTS stripe_webhook_events (
		event_id    TEXT PRIMARY KEY,
		event_type  TEXT NOT NULL,
		received_at TIMESTAMPTZ NOT NULL
	)`

// EventLedgerRepo registro de eventos procesados en PostgreSQL (deduplicación por ID de evento).
type EventLedgerRepo struct {
	q   Querier
	now func() time.Time
}

// NewEventLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEventLedgerRepository(q Querier) *EventLedgerRepo {
	return &EventLedgerRepo{q: q, now: time.Now}
}

// EnsureSchema crea la tabla si no existe.
func (r *EventLedgerRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, createEventLedgerTable); err != nil {
		return fmt.Errorf("crear tabla stripe_webhook_events: %w", err)
	}
	return nil
}

// Claim inserta el evento; si ya existía no afecta filas y devuelve false.
func (r *EventLedgerRepo) Claim(ctx context.Context, eventID, eventType string) (bool, error) {
	query := `
		INSERT INTO stripe_webhook_events (event_id, event_type, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`
	tag, err := r.q.Exec(ctx, query, eventID, eventType, r.now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert stripe_webhook_event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release elimina el registro del evento.
func (r *EventLedgerRepo) Release(ctx context.Context, eventID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stripe_webhook_events WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("delete stripe_webhook_event %s: %w", eventID, err)
	}
	return nil
}

// Purge elimina eventos más antiguos que retention. Devuelve las filas borradas.
func (r *EventLedgerRepo) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM stripe_webhook_events WHERE received_at < $1`, r.now().Add(-retention).UTC())
	if err != nil {
		return 0, fmt.Errorf("purge stripe_webhook_events: %w", err)
	}
	return tag.RowsAffected(), nil
}
