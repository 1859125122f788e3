package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/beckahex-jpg/charitymarket/internal/ledger"
	"github.com/beckahex-jpg/charitymarket/internal/metrics"
	"github.com/beckahex-jpg/charitymarket/internal/order"
)

// Result is the outcome of a release. AlreadyReleased marks the benign case:
// the split was written by an earlier (possibly concurrent) call and is
// returned as stored, with no recompute and no new notification.
type Result struct {
	OrderID         uuid.UUID    `json:"order_id"`
	OrderNumber     string       `json:"order_number"`
	Split           ledger.Split `json:"split"`
	ReleasedAt      time.Time    `json:"released_at"`
	AlreadyReleased bool         `json:"already_released"`
}

type Coordinator interface {
	ReleasePayment(ctx context.Context, actor order.Actor, orderID uuid.UUID, ratePercent decimal.Decimal, transferNotes string) (*Result, error)
}

type coordinator struct {
	orders   order.Repository
	notifier order.Notifier
}

func NewCoordinator(orders order.Repository, notifier order.Notifier) Coordinator {
	return &coordinator{orders: orders, notifier: notifier}
}

// ReleasePayment marks the seller payout as transferred and records the
// commission split. Admin only. The write is a compare-and-set on
// payment_released, so concurrent admin retries produce exactly one split and
// one payment_transferred notification; losers return the winner's stored
// result.
func (c *coordinator) ReleasePayment(ctx context.Context, actor order.Actor, orderID uuid.UUID, ratePercent decimal.Decimal, transferNotes string) (*Result, error) {
	if actor.Role != order.RoleAdmin {
		return nil, order.ErrUnauthorizedActor
	}

	o, err := c.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.PaymentReleased {
		log.Info().Stringer("order_id", orderID).Msg("settlement: payment already released, returning stored split")
		return storedResult(o), nil
	}

	if o.PaymentStatus != order.PaymentPaid {
		return nil, fmt.Errorf("settlement: payment status is %s, not paid: %w", o.PaymentStatus, order.ErrIllegalTransition)
	}
	if !o.ConfirmedByBuyer {
		return nil, fmt.Errorf("settlement: buyer has not confirmed delivery: %w", order.ErrIllegalTransition)
	}

	split, err := ledger.ComputeSplit(o.TotalAmount, ratePercent)
	if err != nil {
		return nil, err
	}

	releasedAt := time.Now().UTC()
	updated, err := c.orders.ReleasePayment(ctx, orderID, split, releasedAt, transferNotes)
	if err != nil {
		return nil, fmt.Errorf("settlement: failed to release payment: %w", err)
	}
	if !updated {
		// A concurrent release won the conditional write. Hand back whatever
		// it recorded instead of erroring the admin.
		current, err := c.orders.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if current.PaymentReleased {
			log.Info().Stringer("order_id", orderID).Msg("settlement: lost release race, returning stored split")
			return storedResult(current), nil
		}
		return nil, fmt.Errorf("settlement: release rejected by conditional write: %w", order.ErrIllegalTransition)
	}

	metrics.SettlementsTotal.Inc()
	metrics.OrderTransitionsTotal.WithLabelValues("release_payment", "ok").Inc()
	log.Info().
		Stringer("order_id", orderID).
		Str("order_number", o.OrderNumber).
		Str("commission", split.Commission.String()).
		Str("seller_amount", split.SellerAmount.String()).
		Stringer("released_by", actor.UserID).
		Msg("settlement: payment released")

	c.notifier.Dispatch(ctx, order.NewEvent(order.EventPaymentTransferred, o, map[string]any{
		"seller_amount":   split.SellerAmount.String(),
		"admin_commission": split.Commission.String(),
		"transfer_notes":  transferNotes,
	}))

	return &Result{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Split:       split,
		ReleasedAt:  releasedAt,
	}, nil
}

func storedResult(o *order.Order) *Result {
	res := &Result{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		AlreadyReleased: true,
	}
	if o.AdminCommission != nil && o.SellerAmount != nil {
		res.Split = ledger.Split{Commission: *o.AdminCommission, SellerAmount: *o.SellerAmount}
	}
	if o.PaymentReleasedAt != nil {
		res.ReleasedAt = *o.PaymentReleasedAt
	}
	return res
}
