package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/food-orders/internal/domain/auth"
)

// GetOrder returns the order if the actor owns it or is an admin.
func (s *Service) GetOrder(ctx context.Context, actor auth.Actor, id string) (*Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanReadOrder(actor, o.UserID); err != nil {
		return nil, err
	}
	return o, nil
}

// ListMyOrders returns the actor's own orders, newest first.
func (s *Service) ListMyOrders(ctx context.Context, actor auth.Actor) ([]Order, error) {
	if actor.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}
	orders, err := s.orders.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders by owner")
	}
	return orders, nil
}

// ListAllOrders returns every order, newest first.
func (s *Service) ListAllOrders(ctx context.Context, actor auth.Actor) ([]Order, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// SetStatus moves the order to status and appends a history entry. With
// strict transitions enabled, moves outside the graph fail with
// *InvalidTransitionError.
func (s *Service) SetStatus(ctx context.Context, actor auth.Actor, id, status string) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.SetStatus")
	defer span.End()

	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	next, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var prev Status
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		if s.strict && !CanTransition(o.Status, next) {
			return &InvalidTransitionError{From: o.Status, To: next}
		}
		prev = o.Status
		o.setStatus(next, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.statusChanged.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(prev)),
		attribute.String("to", string(next)),
	))
	s.publish(ctx, newEvent(EventStatusChanged, o, now))
	return o, nil
}

// RecordPayment stores the payment outcome reported by the order's owner. A
// completed payment confirms the order whatever its current status.
func (s *Service) RecordPayment(ctx context.Context, actor auth.Actor, id, paymentID, paymentStatus string) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.RecordPayment")
	defer span.End()

	ps, err := ParsePaymentStatus(paymentStatus)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		if err := auth.CanRecordPayment(actor, o.UserID); err != nil {
			return err
		}
		o.PaymentID = paymentID
		o.PaymentStatus = ps
		if ps == PaymentCompleted {
			o.setStatus(StatusConfirmed, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ps == PaymentCompleted {
		s.statusChanged.Add(ctx, 1, metric.WithAttributes(
			attribute.String("to", string(StatusConfirmed)),
		))
	}
	s.publish(ctx, newEvent(EventPaymentRecorded, o, now))
	return o, nil
}
