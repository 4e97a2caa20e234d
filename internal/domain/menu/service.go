package menu

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/internal/domain/auth"
)

// Patch holds a partial menu item update. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	Image       *string
	Available   *bool
}

// Service exposes the catalog to customers and its maintenance to admins.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a menu Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ListAvailable returns the public menu.
func (s *Service) ListAvailable(ctx context.Context) ([]Item, error) {
	items, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	return items, nil
}

// ListAll returns every item including unavailable ones.
func (s *Service) ListAll(ctx context.Context, actor auth.Actor) ([]Item, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	return items, nil
}

// Create validates and stores a new item, assigning its ID.
func (s *Service) Create(ctx context.Context, actor auth.Actor, item Item) (*Item, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if err := validate(&item); err != nil {
		return nil, err
	}
	item.ID = uuid.NewString()
	item.CreatedAt = s.now()
	if err := s.repo.Create(ctx, &item); err != nil {
		return nil, errors.Wrap(err, "create menu item")
	}
	return &item, nil
}

// Update applies patch to the item with the given ID.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, patch Patch) (*Item, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.Category != nil {
		item.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Image != nil {
		item.Image = *patch.Image
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}
	if err := validate(item); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, errors.Wrap(err, "update menu item")
	}
	return item, nil
}

// Delete removes the item. Placed orders keep their snapshot.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func validate(item *Item) error {
	switch {
	case item.Name == "":
		return &ValidationError{Field: "name", Message: "required"}
	case item.Category == "":
		return &ValidationError{Field: "category", Message: "required"}
	case item.Price.IsNegative():
		return &ValidationError{Field: "price", Message: "must not be negative"}
	}
	return nil
}
