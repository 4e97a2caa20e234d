package handler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/internal/domain/auth"
	"github.com/xenking/food-orders/internal/domain/coupon"
	"github.com/xenking/food-orders/internal/domain/menu"
	"github.com/xenking/food-orders/internal/domain/order"
	"github.com/xenking/food-orders/internal/domain/user"
)

type memoryMenu struct {
	mu    sync.Mutex
	items map[string]menu.Item
}

func (m *memoryMenu) List(_ context.Context, all bool) ([]menu.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []menu.Item
	for _, it := range m.items {
		if all || it.Available {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryMenu) GetByID(_ context.Context, id string) (*menu.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, menu.ErrNotFound
	}
	return &it, nil
}

func (m *memoryMenu) GetByIDs(ctx context.Context, ids []string) ([]menu.Item, error) {
	var out []menu.Item
	for _, id := range ids {
		if it, err := m.GetByID(ctx, id); err == nil {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *memoryMenu) Create(_ context.Context, it *menu.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = *it
	return nil
}

func (m *memoryMenu) Update(_ context.Context, it *menu.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[it.ID]; !ok {
		return menu.ErrNotFound
	}
	m.items[it.ID] = *it
	return nil
}

func (m *memoryMenu) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return menu.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type memoryCoupons struct {
	mu     sync.Mutex
	byCode map[string]coupon.Coupon
}

func (m *memoryCoupons) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byCode[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (m *memoryCoupons) List(context.Context) ([]coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []coupon.Coupon
	for _, c := range m.byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memoryCoupons) Create(_ context.Context, c *coupon.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byCode[c.Code]; ok {
		return coupon.ErrDuplicateCode
	}
	m.byCode[c.Code] = *c
	return nil
}

func (m *memoryCoupons) Update(_ context.Context, c *coupon.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byCode[c.Code]; !ok {
		return coupon.ErrNotFound
	}
	m.byCode[c.Code] = *c
	return nil
}

func (m *memoryCoupons) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byCode[code]; !ok {
		return coupon.ErrNotFound
	}
	delete(m.byCode, code)
	return nil
}

type memoryOrders struct {
	mu   sync.Mutex
	byID map[string]*order.Order
	seq  []string
}

func (m *memoryOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[o.ID] = o.Clone()
	m.seq = append(m.seq, o.ID)
	return nil
}

func (m *memoryOrders) FindByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

func (m *memoryOrders) list(keep func(*order.Order) bool) []order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for i := len(m.seq) - 1; i >= 0; i-- {
		if o := m.byID[m.seq[i]]; keep(o) {
			out = append(out, *o.Clone())
		}
	}
	return out
}

func (m *memoryOrders) ListByOwner(_ context.Context, userID string) ([]order.Order, error) {
	return m.list(func(o *order.Order) bool { return o.UserID == userID }), nil
}

func (m *memoryOrders) ListAll(context.Context) ([]order.Order, error) {
	return m.list(func(*order.Order) bool { return true }), nil
}

func (m *memoryOrders) Update(_ context.Context, id string, fn func(*order.Order) error) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := o.Clone()
	if err := fn(cp); err != nil {
		return nil, err
	}
	m.byID[id] = cp.Clone()
	return cp, nil
}

func (m *memoryOrders) CountAll(context.Context) (int64, error) {
	return int64(len(m.list(func(*order.Order) bool { return true }))), nil
}

func (m *memoryOrders) CountByStatus(_ context.Context, st order.Status) (int64, error) {
	return int64(len(m.list(func(o *order.Order) bool { return o.Status == st }))), nil
}

func (m *memoryOrders) SumCompletedRevenue(context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range m.list(func(o *order.Order) bool { return o.PaymentStatus == order.PaymentCompleted }) {
		sum = sum.Add(o.Total)
	}
	return sum, nil
}

type memoryUsers struct {
	byID map[string]user.User
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memoryUsers) CountByRole(_ context.Context, role auth.Role) (int64, error) {
	var n int64
	for _, u := range m.byID {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memoryUsers) Create(_ context.Context, u *user.User) error {
	m.byID[u.ID] = *u
	return nil
}

type memoryKeys struct {
	byHash map[string]auth.APIKeyInfo
	err    error
}

func (m *memoryKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	k, ok := m.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("api key not found: %w", auth.ErrUnauthenticated)
	}
	return &k, nil
}
