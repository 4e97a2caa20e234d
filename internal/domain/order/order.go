package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// ParseStatus converts s to a known Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusPreparing,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// PaymentStatus is the settlement state of an order's payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// ParsePaymentStatus converts s to a known PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch ps := PaymentStatus(s); ps {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return ps, nil
	}
	return "", ErrInvalidPaymentStatus
}

// Sentinel errors for order operations.
var (
	ErrNotFound             = errors.New("order not found")
	ErrEmptyItems           = errors.New("items required")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
)

// InvalidQuantityError indicates a line has a non-positive quantity.
type InvalidQuantityError struct {
	ItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s", e.ItemID)
}

// ItemUnavailableError indicates a requested menu item is missing or switched
// off. Name is the best label known for the item.
type ItemUnavailableError struct {
	ItemID string
	Name   string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("%s is not available", e.Name)
}

// InvalidTransitionError indicates a status change outside the transition graph.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

// ValidationError reports a missing or malformed order field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Line is a menu item snapshot taken when the order was placed.
type Line struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// StatusEntry is one record of the append-only status history.
type StatusEntry struct {
	Status Status
	At     time.Time
}

// Order is a placed customer order. Items and amounts never change after
// placement; only status and payment fields do.
type Order struct {
	ID                string
	UserID            string
	Items             []Line
	Subtotal          decimal.Decimal
	Discount          decimal.Decimal
	Total             decimal.Decimal
	CouponCode        string
	DeliveryAddress   string
	Phone             string
	Status            Status
	PaymentMethod     string
	PaymentStatus     PaymentStatus
	PaymentID         string
	EstimatedDelivery int
	CreatedAt         time.Time
	History           []StatusEntry
}

// setStatus moves the order to st and records it in the history.
func (o *Order) setStatus(st Status, at time.Time) {
	o.Status = st
	o.History = append(o.History, StatusEntry{Status: st, At: at})
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = append([]Line(nil), o.Items...)
	cp.History = append([]StatusEntry(nil), o.History...)
	return &cp
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	// ListByOwner and ListAll return orders newest first.
	ListByOwner(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	// Update loads the order, applies fn and stores the result while holding
	// the row. History entries appended by fn are inserted; existing ones are
	// never rewritten. When fn fails nothing is stored.
	Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, st Status) (int64, error)
	// SumCompletedRevenue totals orders whose payment is completed.
	SumCompletedRevenue(ctx context.Context) (decimal.Decimal, error)
}
