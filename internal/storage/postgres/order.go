package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

const orderColumns = `id, user_id, items, subtotal, discount, total, coupon_code,
delivery_address, phone, status, payment_method, payment_status, payment_id,
estimated_delivery, created_at`

const (
	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getOrderSQL          = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersByOwnerSQL = `SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id DESC`

	updateOrderSQL = `UPDATE orders
SET status = $2, payment_status = $3, payment_id = $4
WHERE id = $1`

	insertHistorySQL = `INSERT INTO order_status_history (order_id, seq, status, at)
VALUES ($1, $2, $3, $4)`

	listHistorySQL = `SELECT order_id, status, at FROM order_status_history
WHERE order_id = ANY($1) ORDER BY order_id, seq`

	countOrdersSQL         = `SELECT count(*) FROM orders`
	countOrdersByStatusSQL = `SELECT count(*) FROM orders WHERE status = $1`
	sumRevenueSQL          = `SELECT COALESCE(SUM(total), 0) FROM orders WHERE payment_status = 'completed'`
)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// lines are stored as JSONB; the status history lives in its own table and
// is only ever appended to.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		items         []byte
		status        string
		paymentStatus string
	)
	if err := row.Scan(&o.ID, &o.UserID, &items, &o.Subtotal, &o.Discount, &o.Total,
		&o.CouponCode, &o.DeliveryAddress, &o.Phone, &status, &o.PaymentMethod,
		&paymentStatus, &o.PaymentID, &o.EstimatedDelivery, &o.CreatedAt); err != nil {
		return o, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return o, nil
}

// Create persists a new order together with its initial history.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL, o.ID, o.UserID, itemsJSON, o.Subtotal,
			o.Discount, o.Total, o.CouponCode, o.DeliveryAddress, o.Phone, string(o.Status),
			o.PaymentMethod, string(o.PaymentStatus), o.PaymentID, o.EstimatedDelivery,
			o.CreatedAt); err != nil {
			return err
		}
		return appendHistory(ctx, tx, o, 0)
	})
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

func appendHistory(ctx context.Context, tx pgx.Tx, o *order.Order, from int) error {
	if from >= len(o.History) {
		return nil
	}
	batch := &pgx.Batch{}
	for i := from; i < len(o.History); i++ {
		e := o.History[i]
		batch.Queue(insertHistorySQL, o.ID, i, string(e.Status), e.At)
	}
	return tx.SendBatch(ctx, batch).Close()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadHistory(ctx context.Context, q querier, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	idx := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		idx[orders[i].ID] = i
	}

	rows, err := q.Query(ctx, listHistorySQL, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id     string
			status string
			e      order.StatusEntry
		)
		if err := rows.Scan(&id, &status, &e.At); err != nil {
			return err
		}
		e.Status = order.Status(status)
		o := &orders[idx[id]]
		o.History = append(o.History, e)
	}
	return rows.Err()
}

func (r *OrderRepository) findOne(ctx context.Context, q querier, query, id string) (*order.Order, error) {
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}
	orders := []order.Order{o}
	if err := loadHistory(ctx, q, orders); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return &orders[0], nil
}

// FindByID returns order.ErrNotFound when no order has the id.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := r.findOne(ctx, r.pool, getOrderSQL, id)
	if err != nil && !errors.Is(err, order.ErrNotFound) {
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}
	return o, err
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scanning orders: %w", err)
	}
	if err := loadHistory(ctx, r.pool, orders); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return orders, nil
}

func (r *OrderRepository) ListByOwner(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByOwnerSQL, userID)
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, listOrdersSQL)
}

// Update locks the order row for the duration of fn, then stores the mutable
// fields and inserts the history entries fn appended.
func (r *OrderRepository) Update(ctx context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	var updated *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := r.findOne(ctx, tx, getOrderForUpdateSQL, id)
		if err != nil {
			return err
		}
		seen := len(o.History)
		if err := fn(o); err != nil {
			return err
		}
		if len(o.History) < seen {
			return errors.Errorf("history of order %q shrank from %d to %d entries", id, seen, len(o.History))
		}
		if _, err := tx.Exec(ctx, updateOrderSQL, o.ID, string(o.Status),
			string(o.PaymentStatus), o.PaymentID); err != nil {
			return fmt.Errorf("updating order %q: %w", id, err)
		}
		if err := appendHistory(ctx, tx, o, seen); err != nil {
			return fmt.Errorf("appending history of order %q: %w", id, err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *OrderRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countOrdersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}

func (r *OrderRepository) CountByStatus(ctx context.Context, st order.Status) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countOrdersByStatusSQL, string(st)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s orders: %w", st, err)
	}
	return n, nil
}

func (r *OrderRepository) SumCompletedRevenue(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, sumRevenueSQL).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("summing revenue: %w", err)
	}
	return sum, nil
}
