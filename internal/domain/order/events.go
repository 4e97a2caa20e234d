package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventType names an order event.
type EventType string

const (
	EventPlaced          EventType = "order.placed"
	EventStatusChanged   EventType = "order.status_changed"
	EventPaymentRecorded EventType = "order.payment_recorded"
)

// Event describes a persisted order change.
type Event struct {
	Type          EventType
	OrderID       string
	UserID        string
	Status        Status
	PaymentStatus PaymentStatus
	Total         decimal.Decimal
	At            time.Time
}

// Publisher delivers order events. Failures are reported to the caller, which
// only logs them.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

func newEvent(t EventType, o *Order, at time.Time) Event {
	return Event{
		Type:          t,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total,
		At:            at,
	}
}
