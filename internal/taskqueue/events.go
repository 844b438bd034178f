package taskqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ironlake-data/catalog/internal/platform/applog"
	"github.com/ironlake-data/catalog/internal/platform/rabbitmq"
)

// EventKind names the domain events the Tabular Lifecycle (C5) emits after
// a successful commit transaction.
type EventKind string

const (
	EventTableCreated EventKind = "table.created"
	EventTableCommit EventKind = "table.committed"
	EventTableDropped EventKind = "table.dropped"
	EventTableRenamed EventKind = "table.renamed"
	EventViewCreated EventKind = "view.created"
	EventViewCommit EventKind = "view.committed"
	EventViewDropped EventKind = "view.dropped"
	EventViewRenamed EventKind = "view.renamed"

	EventNamespaceCreated EventKind = "namespace.created"
	EventNamespaceDropped EventKind = "namespace.dropped"

	EventWarehouseCreated EventKind = "warehouse.created"
	EventWarehouseUpdated EventKind = "warehouse.updated"
	EventWarehouseDeleted EventKind = "warehouse.deleted"

	EventProjectCreated EventKind = "project.created"
	EventProjectDeleted EventKind = "project.deleted"
)

// Event is the envelope published to the domain-event exchange. It is
// intentionally schema-light: consumers interested in a specific kind parse
// Payload themselves.
type Event struct {
	Kind EventKind `json:"kind"`
	WarehouseID string `json:"warehouse_id"`
	EntityID string `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventPublisher fire-and-forgets domain events onto the rabbitmq exchange.
// A publish failure never fails the originating commit: the event stream is
// an optimization, not a correctness requirement (rabbitmq.Connection.Publish
// doc comment).
type EventPublisher struct {
	conn *rabbitmq.Connection
	log applog.Logger
}

func NewEventPublisher(conn *rabbitmq.Connection, log applog.Logger) *EventPublisher {
	return &EventPublisher{conn: conn, log: log}
}

// Publish best-effort emits ev under a routing key derived from its kind
// (e.g. "table.committed"). Callers invoke this after the catalog
// transaction that produced ev has committed, never before.
func (p *EventPublisher) Publish(ctx context.Context, ev Event) {
	if p.conn == nil {
		return
	}

	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Errorf("marshal domain event %s: %v", ev.Kind, err)
		return
	}

	if err := p.conn.Publish(ctx, string(ev.Kind), body); err != nil {
		p.log.Warnf("publish domain event %s for %s failed (non-fatal): %v", ev.Kind, ev.EntityID, err)
	}
}
