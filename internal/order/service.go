package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/beckahex-jpg/charitymarket/internal/metrics"
)

// allowedTransitions is the canonical transition table. Payment status is
// tracked orthogonally: confirming payment is the only way out of pending, so
// every status past confirmed implies payment_status = paid.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {
		StatusCompleted: true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

func canTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

type Service interface {
	GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, actor Actor) ([]Order, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) error
	FailPayment(ctx context.Context, orderID uuid.UUID, reason string) error
	AddShippingInfo(ctx context.Context, actor Actor, orderID uuid.UUID, trackingNumber, carrier string) error
	ConfirmDelivery(ctx context.Context, actor Actor, orderID uuid.UUID) error
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) error
}

type service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) Service {
	return &service{repo: repo, notifier: notifier}
}

func (s *service) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case RoleAdmin:
	case RoleBuyer:
		if o.BuyerID != actor.UserID {
			return nil, ErrUnauthorizedActor
		}
	case RoleSeller:
		if !o.HasSeller(actor.UserID) {
			return nil, ErrUnauthorizedActor
		}
	default:
		return nil, ErrUnauthorizedActor
	}

	return o, nil
}

func (s *service) ListOrders(ctx context.Context, actor Actor) ([]Order, error) {
	switch actor.Role {
	case RoleBuyer:
		return s.repo.ListOrdersByBuyer(ctx, actor.UserID)
	case RoleSeller:
		return s.repo.ListOrdersBySeller(ctx, actor.UserID)
	default:
		return nil, ErrUnauthorizedActor
	}
}

// ConfirmPayment is the payment gateway's success callback. Webhooks may be
// redelivered, so a non-pending payment status is reported as
// ErrPaymentAlreadyProcessed and nothing is written.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID) error {
	o, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if o.PaymentStatus != PaymentPending {
		log.Info().Stringer("order_id", orderID).Stringer("payment_status", o.PaymentStatus).
			Msg("service: payment already processed, ignoring redelivery")
		return s.reject("payment_confirmed", ErrPaymentAlreadyProcessed)
	}
	if !canTransition(o.Status, StatusConfirmed) {
		return s.reject("payment_confirmed", transitionErr(o.Status, StatusConfirmed))
	}

	updated, err := s.repo.ConfirmPayment(ctx, orderID)
	if err != nil {
		return fmt.Errorf("service: failed to confirm payment: %w", err)
	}
	if !updated {
		// Lost the race against a concurrent redelivery.
		return s.reject("payment_confirmed", ErrPaymentAlreadyProcessed)
	}

	metrics.OrderTransitionsTotal.WithLabelValues("payment_confirmed", "ok").Inc()
	log.Info().Stringer("order_id", orderID).Str("order_number", o.OrderNumber).Msg("service: payment confirmed")

	s.notifier.Dispatch(ctx, NewEvent(EventOrderPaid, o, map[string]any{
		"total_amount": o.TotalAmount.String(),
	}))
	return nil
}

// FailPayment is the gateway's terminal failure callback.
func (s *service) FailPayment(ctx context.Context, orderID uuid.UUID, reason string) error {
	o, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if o.PaymentStatus != PaymentPending {
		return s.reject("payment_failed", ErrPaymentAlreadyProcessed)
	}

	updated, err := s.repo.FailPayment(ctx, orderID)
	if err != nil {
		return fmt.Errorf("service: failed to mark payment failed: %w", err)
	}
	if !updated {
		return s.reject("payment_failed", ErrPaymentAlreadyProcessed)
	}

	metrics.OrderTransitionsTotal.WithLabelValues("payment_failed", "ok").Inc()
	log.Warn().Stringer("order_id", orderID).Str("reason", reason).Msg("service: payment failed")

	s.notifier.Dispatch(ctx, NewEvent(EventPaymentFailed, o, map[string]any{
		"reason": reason,
	}))
	return nil
}

func (s *service) AddShippingInfo(ctx context.Context, actor Actor, orderID uuid.UUID, trackingNumber, carrier string) error {
	o, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if actor.Role != RoleSeller || !o.HasSeller(actor.UserID) {
		log.Warn().Stringer("order_id", orderID).Stringer("user_id", actor.UserID).
			Msg("service: shipping info rejected, actor owns no line items")
		return s.reject("add_shipping_info", ErrUnauthorizedActor)
	}

	trackingNumber = strings.TrimSpace(trackingNumber)
	carrier = strings.TrimSpace(carrier)
	if trackingNumber == "" || carrier == "" {
		return s.reject("add_shipping_info", ErrMissingTrackingInfo)
	}

	if !canTransition(o.Status, StatusShipped) {
		return s.reject("add_shipping_info", transitionErr(o.Status, StatusShipped))
	}

	updated, err := s.repo.SetShippingInfo(ctx, orderID, trackingNumber, carrier, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("service: failed to set shipping info: %w", err)
	}
	if !updated {
		return s.reject("add_shipping_info", transitionErr(o.Status, StatusShipped))
	}

	metrics.OrderTransitionsTotal.WithLabelValues("add_shipping_info", "ok").Inc()
	log.Info().Stringer("order_id", orderID).Str("carrier", carrier).Msg("service: order shipped")

	s.notifier.Dispatch(ctx, NewEvent(EventOrderShipped, o, map[string]any{
		"tracking_number":  trackingNumber,
		"shipping_carrier": carrier,
	}))
	return nil
}

func (s *service) ConfirmDelivery(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	o, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if actor.Role != RoleBuyer || o.BuyerID != actor.UserID {
		return s.reject("confirm_delivery", ErrUnauthorizedActor)
	}

	if o.Status != StatusShipped || o.TrackingNumber == nil {
		return s.reject("confirm_delivery", ErrNotShipped)
	}

	updated, err := s.repo.ConfirmDelivery(ctx, orderID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("service: failed to confirm delivery: %w", err)
	}
	if !updated {
		return s.reject("confirm_delivery", ErrNotShipped)
	}

	metrics.OrderTransitionsTotal.WithLabelValues("confirm_delivery", "ok").Inc()
	log.Info().Stringer("order_id", orderID).Str("order_number", o.OrderNumber).Msg("service: delivery confirmed by buyer")

	s.notifier.Dispatch(ctx, NewEvent(EventOrderDelivered, o, nil))
	return nil
}

// Cancel is legal from pending and confirmed only. A shipped order has to go
// through the return/refund flow instead.
func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) error {
	o, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	isOwner := actor.Role == RoleBuyer && o.BuyerID == actor.UserID
	if !isOwner && actor.Role != RoleAdmin {
		return s.reject("cancel", ErrUnauthorizedActor)
	}

	if !canTransition(o.Status, StatusCancelled) {
		return s.reject("cancel", transitionErr(o.Status, StatusCancelled))
	}

	updated, err := s.repo.Cancel(ctx, orderID)
	if err != nil {
		return fmt.Errorf("service: failed to cancel order: %w", err)
	}
	if !updated {
		return s.reject("cancel", transitionErr(o.Status, StatusCancelled))
	}

	metrics.OrderTransitionsTotal.WithLabelValues("cancel", "ok").Inc()
	log.Info().Stringer("order_id", orderID).Str("reason", reason).Stringer("cancelled_by", actor.UserID).
		Msg("service: order cancelled")

	s.notifier.Dispatch(ctx, NewEvent(EventOrderCancelled, o, map[string]any{
		"reason": reason,
	}))
	return nil
}

func (s *service) reject(transition string, err error) error {
	metrics.OrderTransitionsTotal.WithLabelValues(transition, "rejected").Inc()
	return err
}

func transitionErr(from, to Status) error {
	return fmt.Errorf("service: transition from %s to %s not allowed: %w", from, to, ErrIllegalTransition)
}
