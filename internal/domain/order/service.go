package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/food-orders/internal/domain/auth"
	"github.com/xenking/food-orders/internal/domain/coupon"
	"github.com/xenking/food-orders/internal/domain/menu"
)

// LineRequest is a requested order line. Name is the client's label for the
// item and is only used in error messages.
type LineRequest struct {
	ItemID   string
	Name     string
	Quantity int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items           []LineRequest
	DeliveryAddress string
	Phone           string
	PaymentMethod   string
	CouponCode      string
}

// CustomerCounter counts users by role for stats.
type CustomerCounter interface {
	CountByRole(ctx context.Context, role auth.Role) (int64, error)
}

// Service prices, places and advances orders.
type Service struct {
	menu      menu.Repository
	coupons   coupon.Applier
	orders    Repository
	customers CustomerCounter

	publisher Publisher
	ids       IDGenerator
	estimator DeliveryEstimator
	strict    bool
	now       func() time.Time

	tracer         trace.Tracer
	placed         metric.Int64Counter
	couponRejected metric.Int64Counter
	statusChanged  metric.Int64Counter
}

// Option configures a Service.
type Option func(*options)

type options struct {
	publisher     Publisher
	ids           IDGenerator
	estimator     DeliveryEstimator
	strict        bool
	meterProvider metric.MeterProvider
	traceProvider trace.TracerProvider
}

// WithPublisher sets the event publisher. Events are dropped by default.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithIDGenerator overrides the order id scheme.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithEstimator overrides the delivery estimate source.
func WithEstimator(e DeliveryEstimator) Option {
	return func(o *options) { o.estimator = e }
}

// WithStrictTransitions rejects status changes outside the transition graph.
func WithStrictTransitions(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithMeterProvider sets the meter provider for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for order spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.traceProvider = tp }
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	menuRepo menu.Repository,
	coupons coupon.Applier,
	orders Repository,
	customers CustomerCounter,
	opts ...Option,
) (*Service, error) {
	o := options{
		publisher:     nopPublisher{},
		ids:           XIDGenerator{Prefix: DefaultIDPrefix},
		meterProvider: metricnoop.NewMeterProvider(),
		traceProvider: tracenoop.NewTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.estimator == nil {
		e, err := NewUniformEstimator(DefaultDeliveryMin, DefaultDeliveryMax)
		if err != nil {
			return nil, err
		}
		o.estimator = e
	}

	s := &Service{
		menu:      menuRepo,
		coupons:   coupons,
		orders:    orders,
		customers: customers,
		publisher: o.publisher,
		ids:       o.ids,
		estimator: o.estimator,
		strict:    o.strict,
		now:       time.Now,
		tracer:    o.traceProvider.Tracer("orders"),
	}

	meter := o.meterProvider.Meter("orders")
	var err error
	if s.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders placed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.couponRejected, err = meter.Int64Counter("orders.coupon_rejected",
		metric.WithDescription("Coupons soft-rejected at placement"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.coupon_rejected counter")
	}
	if s.statusChanged, err = meter.Int64Counter("orders.status_changed",
		metric.WithDescription("Order status changes"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.status_changed counter")
	}

	return s, nil
}

// PlaceOrder resolves the requested lines against the menu, prices them,
// soft-applies the coupon and persists a new pending order. An unavailable
// item fails the whole order and nothing is stored.
func (s *Service) PlaceOrder(ctx context.Context, actor auth.Actor, req PlaceOrderRequest) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder")
	defer span.End()

	if actor.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if err := validatePlacement(req); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for _, l := range req.Items {
		if _, ok := seen[l.ItemID]; !ok {
			seen[l.ItemID] = struct{}{}
			ids = append(ids, l.ItemID)
		}
	}

	fetched, err := s.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}
	byID := make(map[string]menu.Item, len(fetched))
	for _, it := range fetched {
		byID[it.ID] = it
	}

	lines := make([]Line, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, l := range req.Items {
		it, ok := byID[l.ItemID]
		if !ok || !it.Available {
			return nil, &ItemUnavailableError{ItemID: l.ItemID, Name: unavailableLabel(l, it, ok)}
		}
		lines = append(lines, Line{
			ItemID:   it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: l.Quantity,
		})
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	discount := decimal.Zero
	if strings.TrimSpace(req.CouponCode) != "" {
		discount, err = s.coupons.Apply(ctx, req.CouponCode, subtotal)
		if err != nil {
			if !coupon.IsRejection(err) {
				return nil, errors.Wrap(err, "apply coupon")
			}
			// Placement never fails on a coupon rejection.
			zctx.From(ctx).Info("Coupon not applied",
				zap.String("coupon", req.CouponCode),
				zap.Error(err),
			)
			s.couponRejected.Add(ctx, 1)
			discount = decimal.Zero
		}
	}

	subtotal = subtotal.Round(0)
	discount = discount.Round(0)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	now := s.now()
	o := &Order{
		ID:                s.ids.NewID(),
		UserID:            actor.UserID,
		Items:             lines,
		Subtotal:          subtotal,
		Discount:          discount,
		Total:             subtotal.Sub(discount),
		CouponCode:        req.CouponCode,
		DeliveryAddress:   strings.TrimSpace(req.DeliveryAddress),
		Phone:             strings.TrimSpace(req.Phone),
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     PaymentPending,
		EstimatedDelivery: s.estimator.Estimate(),
		CreatedAt:         now,
	}
	o.setStatus(StatusPending, now)

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	s.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", o.PaymentMethod),
		attribute.Bool("discounted", o.Discount.IsPositive()),
	))
	s.publish(ctx, newEvent(EventPlaced, o, now))

	return o, nil
}

func validatePlacement(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, l := range req.Items {
		if l.ItemID == "" {
			return &ValidationError{Field: "items", Message: "item id required"}
		}
		if l.Quantity <= 0 {
			return &InvalidQuantityError{ItemID: l.ItemID}
		}
	}
	switch {
	case strings.TrimSpace(req.DeliveryAddress) == "":
		return &ValidationError{Field: "deliveryAddress", Message: "required"}
	case strings.TrimSpace(req.Phone) == "":
		return &ValidationError{Field: "phone", Message: "required"}
	case strings.TrimSpace(req.PaymentMethod) == "":
		return &ValidationError{Field: "paymentMethod", Message: "required"}
	}
	return nil
}

func unavailableLabel(l LineRequest, it menu.Item, found bool) string {
	switch {
	case found && it.Name != "":
		return it.Name
	case l.Name != "":
		return l.Name
	default:
		return l.ItemID
	}
}

func (s *Service) publish(ctx context.Context, e Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("type", string(e.Type)),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}
