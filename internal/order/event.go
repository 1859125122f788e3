package order

import (
	"context"

	"github.com/gofrs/uuid"
)

type EventType string

const (
	EventOrderPaid          EventType = "order_paid"
	EventPaymentFailed      EventType = "payment_failed"
	EventOrderShipped       EventType = "order_shipped"
	EventOrderDelivered     EventType = "order_delivered"
	EventOrderCancelled     EventType = "order_cancelled"
	EventPaymentTransferred EventType = "payment_transferred"
)

// Event describes a committed order transition. It carries the buyer and the
// distinct sellers so the dispatcher can resolve recipients without another
// order lookup.
type Event struct {
	Type        EventType      `json:"type"`
	OrderID     uuid.UUID      `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	BuyerID     uuid.UUID      `json:"buyer_id"`
	SellerIDs   []uuid.UUID    `json:"seller_ids"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// NewEvent builds an event for a transition on the given order.
func NewEvent(t EventType, o *Order, payload map[string]any) Event {
	return Event{
		Type:        t,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		SellerIDs:   o.SellerIDs(),
		Payload:     payload,
	}
}

// Notifier receives events strictly after the transition commits. Delivery
// failures stay inside the notifier; transitions never depend on it.
type Notifier interface {
	Dispatch(ctx context.Context, evt Event)
}
