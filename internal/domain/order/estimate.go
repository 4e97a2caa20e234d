package order

import (
	"math/rand/v2"

	"github.com/go-faster/errors"
)

// Default delivery estimate bounds in minutes.
const (
	DefaultDeliveryMin = 30
	DefaultDeliveryMax = 45
)

// DeliveryEstimator returns the estimated delivery time of a new order in minutes.
type DeliveryEstimator interface {
	Estimate() int
}

// UniformEstimator draws uniformly from an inclusive range.
type UniformEstimator struct {
	min, max int
}

// NewUniformEstimator returns an estimator over the inclusive range [lo, hi].
func NewUniformEstimator(lo, hi int) (*UniformEstimator, error) {
	if lo < 0 || hi < lo {
		return nil, errors.Errorf("invalid delivery range %d..%d", lo, hi)
	}
	return &UniformEstimator{min: lo, max: hi}, nil
}

func (e *UniformEstimator) Estimate() int {
	return e.min + rand.IntN(e.max-e.min+1)
}
