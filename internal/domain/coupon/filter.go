package coupon

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// FilteredRepository keeps a Bloom filter of codes known to be stored.
// MayContain is a hint for bulk writers: false means the code was not seen
// by this filter, not that the store lacks it. Lookups always reach the
// store, so codes written by other processes are never hidden.
type FilteredRepository struct {
	Repository

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

var _ Repository = (*FilteredRepository)(nil)

// NewFilteredRepository wraps repo with a bloom filter sized for capacity
// codes at the given false positive rate.
func NewFilteredRepository(repo Repository, capacity uint, fpr float64) *FilteredRepository {
	return &FilteredRepository{
		Repository: repo,
		filter:     bloom.NewWithEstimates(capacity, fpr),
	}
}

// Warm loads every stored code into the filter.
func (r *FilteredRepository) Warm(ctx context.Context) (int, error) {
	coupons, err := r.Repository.List(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list coupons")
	}
	r.mu.Lock()
	for _, c := range coupons {
		r.filter.AddString(c.Code)
	}
	r.mu.Unlock()
	return len(coupons), nil
}

// MayContain reports whether code could have been stored when the filter
// last learned about it.
func (r *FilteredRepository) MayContain(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter.TestString(code)
}

func (r *FilteredRepository) add(code string) {
	r.mu.Lock()
	r.filter.AddString(code)
	r.mu.Unlock()
}

// FindByCode reads from the store and records hits in the filter.
func (r *FilteredRepository) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	c, err := r.Repository.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.add(c.Code)
	return c, nil
}

func (r *FilteredRepository) Create(ctx context.Context, c *Coupon) error {
	if err := r.Repository.Create(ctx, c); err != nil {
		return err
	}
	r.add(c.Code)
	return nil
}
