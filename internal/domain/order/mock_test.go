package order

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/internal/domain/auth"
	"github.com/xenking/food-orders/internal/domain/coupon"
	"github.com/xenking/food-orders/internal/domain/menu"
)

// --- Mock implementations ---

type mockMenuRepo struct {
	byID   map[string]menu.Item
	getErr error
}

func newMenuRepo(items ...menu.Item) *mockMenuRepo {
	byID := make(map[string]menu.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return &mockMenuRepo{byID: byID}
}

func (m *mockMenuRepo) List(context.Context, bool) ([]menu.Item, error) { return nil, nil }

func (m *mockMenuRepo) GetByID(_ context.Context, id string) (*menu.Item, error) {
	it, ok := m.byID[id]
	if !ok {
		return nil, menu.ErrNotFound
	}
	return &it, nil
}

func (m *mockMenuRepo) GetByIDs(_ context.Context, ids []string) ([]menu.Item, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []menu.Item
	for _, id := range ids {
		if it, ok := m.byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockMenuRepo) Create(context.Context, *menu.Item) error { return nil }
func (m *mockMenuRepo) Update(context.Context, *menu.Item) error { return nil }
func (m *mockMenuRepo) Delete(context.Context, string) error     { return nil }

type mockCouponRepo struct {
	byCode map[string]coupon.Coupon
	err    error
}

func newCouponRepo(coupons ...coupon.Coupon) *mockCouponRepo {
	byCode := make(map[string]coupon.Coupon, len(coupons))
	for _, c := range coupons {
		byCode[c.Code] = c
	}
	return &mockCouponRepo{byCode: byCode}
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byCode[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (m *mockCouponRepo) List(context.Context) ([]coupon.Coupon, error) { return nil, nil }
func (m *mockCouponRepo) Create(context.Context, *coupon.Coupon) error  { return nil }
func (m *mockCouponRepo) Update(context.Context, *coupon.Coupon) error  { return nil }
func (m *mockCouponRepo) Delete(context.Context, string) error          { return nil }

// memoryOrderRepo keeps orders in memory and applies updates to a copy, so a
// failing update leaves the stored order untouched.
type memoryOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*Order
	createErr error
}

func newOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[string]*Order)}
}

func (m *memoryOrderRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *memoryOrderRepo) FindByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *memoryOrderRepo) list(keep func(*Order) bool) []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, *o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryOrderRepo) ListByOwner(_ context.Context, userID string) ([]Order, error) {
	return m.list(func(o *Order) bool { return o.UserID == userID }), nil
}

func (m *memoryOrderRepo) ListAll(context.Context) ([]Order, error) {
	return m.list(func(*Order) bool { return true }), nil
}

func (m *memoryOrderRepo) Update(_ context.Context, id string, fn func(*Order) error) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o := stored.Clone()
	if err := fn(o); err != nil {
		return nil, err
	}
	m.orders[id] = o.Clone()
	return o, nil
}

func (m *memoryOrderRepo) CountAll(context.Context) (int64, error) {
	return int64(len(m.list(func(*Order) bool { return true }))), nil
}

func (m *memoryOrderRepo) CountByStatus(_ context.Context, st Status) (int64, error) {
	return int64(len(m.list(func(o *Order) bool { return o.Status == st }))), nil
}

func (m *memoryOrderRepo) SumCompletedRevenue(context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range m.list(func(o *Order) bool { return o.PaymentStatus == PaymentCompleted }) {
		sum = sum.Add(o.Total)
	}
	return sum, nil
}

type mockCustomerCounter struct {
	n   int64
	err error
}

func (m mockCustomerCounter) CountByRole(_ context.Context, role auth.Role) (int64, error) {
	if role != auth.RoleCustomer {
		return 0, nil
	}
	return m.n, m.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type fixedEstimator int

func (f fixedEstimator) Estimate() int { return int(f) }
