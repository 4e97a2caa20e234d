package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/food-orders/internal/domain/menu"
)

var _ menu.Repository = (*MenuRepository)(nil)

const menuColumns = `id, name, description, price, category, image, available, created_at`

const (
	listMenuSQL = `SELECT ` + menuColumns + ` FROM menu_items
WHERE available OR $1
ORDER BY category, name`

	getMenuItemSQL = `SELECT ` + menuColumns + ` FROM menu_items WHERE id = $1`

	getMenuItemsSQL = `SELECT ` + menuColumns + ` FROM menu_items WHERE id = ANY($1)`

	insertMenuItemSQL = `INSERT INTO menu_items (` + menuColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateMenuItemSQL = `UPDATE menu_items
SET name = $2, description = $3, price = $4, category = $5, image = $6, available = $7
WHERE id = $1`

	deleteMenuItemSQL = `DELETE FROM menu_items WHERE id = $1`

	upsertMenuItemSQL = `INSERT INTO menu_items (` + menuColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
    category = EXCLUDED.category, image = EXCLUDED.image, available = EXCLUDED.available`
)

// MenuRepository implements menu.Repository backed by PostgreSQL.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

func scanMenuItem(row pgx.CollectableRow) (menu.Item, error) {
	var it menu.Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price,
		&it.Category, &it.Image, &it.Available, &it.CreatedAt)
	return it, err
}

// List returns menu items ordered by category and name.
func (r *MenuRepository) List(ctx context.Context, includeUnavailable bool) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, listMenuSQL, includeUnavailable)
	if err != nil {
		return nil, fmt.Errorf("listing menu items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, fmt.Errorf("scanning menu items: %w", err)
	}
	return items, nil
}

// GetByID returns a single item or menu.ErrNotFound.
func (r *MenuRepository) GetByID(ctx context.Context, id string) (*menu.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}
	it, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, menu.ErrNotFound
		}
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}
	return &it, nil
}

// GetByIDs returns the items matching ids in a single query.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting menu items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, fmt.Errorf("scanning menu items: %w", err)
	}
	return items, nil
}

func (r *MenuRepository) Create(ctx context.Context, it *menu.Item) error {
	if _, err := r.pool.Exec(ctx, insertMenuItemSQL, it.ID, it.Name, it.Description,
		it.Price, it.Category, it.Image, it.Available, it.CreatedAt); err != nil {
		return fmt.Errorf("creating menu item %q: %w", it.ID, err)
	}
	return nil
}

func (r *MenuRepository) Update(ctx context.Context, it *menu.Item) error {
	tag, err := r.pool.Exec(ctx, updateMenuItemSQL, it.ID, it.Name, it.Description,
		it.Price, it.Category, it.Image, it.Available)
	if err != nil {
		return fmt.Errorf("updating menu item %q: %w", it.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return menu.ErrNotFound
	}
	return nil
}

func (r *MenuRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteMenuItemSQL, id)
	if err != nil {
		return fmt.Errorf("deleting menu item %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return menu.ErrNotFound
	}
	return nil
}

// Upsert inserts the item or overwrites the stored one with the same ID.
func (r *MenuRepository) Upsert(ctx context.Context, it *menu.Item) error {
	if _, err := r.pool.Exec(ctx, upsertMenuItemSQL, it.ID, it.Name, it.Description,
		it.Price, it.Category, it.Image, it.Available, it.CreatedAt); err != nil {
		return fmt.Errorf("upserting menu item %q: %w", it.ID, err)
	}
	return nil
}
