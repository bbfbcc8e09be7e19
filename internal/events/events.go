// Package events carries floor changes to live screens and downstream
// consumers once the transaction that produced them has committed.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	OrderOpened       = "order.opened"
	OrderItemsAdded   = "order.items_added"
	OrderItemAdjusted = "order.item_adjusted"
	OrderItemStatus   = "order.item_status"
	OrderItemDeleted  = "order.item_deleted"
	TableUpdated      = "table.updated"
	BillClosed        = "bill.closed"
	BillVoided        = "bill.voided"
	BillReissued      = "bill.reissued"
)

type Event struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// New stamps payload with the current time. Payloads that cannot be
// marshalled are reported to the caller rather than published half-formed.
func New(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: data, OccurredAt: time.Now().UTC()}, nil
}

// Publisher delivers an event. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Fanout publishes to every member and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
