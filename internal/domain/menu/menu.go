package menu

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// ValidationError reports a malformed menu item field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Item is a dish on the menu. Orders copy Name and Price at placement time,
// so edits here never change existing orders.
type Item struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Image       string
	Available   bool
	CreatedAt   time.Time
}

// Repository defines persistence operations for the menu catalog.
type Repository interface {
	// List returns items sorted by category and name. Unavailable items are
	// included only when includeUnavailable is set.
	List(ctx context.Context, includeUnavailable bool) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	// GetByIDs returns the items matching ids. Unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
}
