package notification

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/beckahex-jpg/charitymarket/internal/order"
)

// Record is a persisted in-app notification. Only the dispatcher creates
// records; the recipient may only toggle the read flag.
type Record struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"user_id" db:"user_id"`
	Type      string         `json:"type" db:"type"`
	Title     string         `json:"title" db:"title"`
	Message   string         `json:"message" db:"message"`
	Payload   map[string]any `json:"payload,omitempty" db:"payload"`
	Read      bool           `json:"read" db:"read"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// Preferences are per-user email opt-ins by category. The in-app channel has
// no opt-out: records are always persisted.
type Preferences struct {
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	EmailOrderUpdates bool      `json:"email_order_updates" db:"email_order_updates"`
	EmailPayouts      bool      `json:"email_payouts" db:"email_payouts"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences applies when a user never saved any: everything on.
func DefaultPreferences(userID uuid.UUID) Preferences {
	return Preferences{
		UserID:            userID,
		EmailOrderUpdates: true,
		EmailPayouts:      true,
	}
}

type emailCategory int

const (
	categoryOrderUpdates emailCategory = iota
	categoryPayouts
)

func categoryFor(t order.EventType) emailCategory {
	if t == order.EventPaymentTransferred {
		return categoryPayouts
	}
	return categoryOrderUpdates
}

func (p Preferences) emailEnabled(c emailCategory) bool {
	if c == categoryPayouts {
		return p.EmailPayouts
	}
	return p.EmailOrderUpdates
}

func titleAndMessage(evt order.Event) (string, string) {
	switch evt.Type {
	case order.EventOrderPaid:
		return "Order confirmed", fmt.Sprintf("Payment for order %s was received.", evt.OrderNumber)
	case order.EventPaymentFailed:
		return "Payment failed", fmt.Sprintf("Payment for order %s could not be processed.", evt.OrderNumber)
	case order.EventOrderShipped:
		return "Order shipped", fmt.Sprintf("Order %s is on its way.", evt.OrderNumber)
	case order.EventOrderDelivered:
		return "Delivery confirmed", fmt.Sprintf("The buyer confirmed delivery of order %s.", evt.OrderNumber)
	case order.EventOrderCancelled:
		return "Order cancelled", fmt.Sprintf("Order %s was cancelled.", evt.OrderNumber)
	case order.EventPaymentTransferred:
		return "Payout transferred", fmt.Sprintf("Your payout for order %s has been transferred.", evt.OrderNumber)
	default:
		return string(evt.Type), fmt.Sprintf("Update on order %s.", evt.OrderNumber)
	}
}

// recipients applies the fixed per-event-type resolution rule.
func recipients(evt order.Event) []uuid.UUID {
	switch evt.Type {
	case order.EventOrderPaid, order.EventOrderCancelled:
		return append([]uuid.UUID{evt.BuyerID}, evt.SellerIDs...)
	case order.EventPaymentFailed, order.EventOrderShipped:
		return []uuid.UUID{evt.BuyerID}
	case order.EventOrderDelivered, order.EventPaymentTransferred:
		return evt.SellerIDs
	default:
		return nil
	}
}
