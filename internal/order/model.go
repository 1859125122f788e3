package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (ps PaymentStatus) String() string {
	return string(ps)
}

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Actor is the authenticated caller of a transition, as supplied by the
// identity collaborator. The service validates it against the order; it never
// manages sessions itself.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// LineItem is a frozen snapshot of one product at purchase time. The seller
// id, title, image and price are copied from the listing so that the line
// survives later edits or deletion of the product.
type LineItem struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderID         uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID       uuid.UUID       `json:"product_id" db:"product_id"`
	SellerID        uuid.UUID       `json:"seller_id" db:"seller_id"`
	Title           string          `json:"title" db:"title"`
	ImageURL        string          `json:"image_url" db:"image_url"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase" db:"price_at_purchase"`
	Quantity        int             `json:"quantity" db:"quantity"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.PriceAtPurchase.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	OrderNumber       string           `json:"order_number" db:"order_number"`
	BuyerID           uuid.UUID        `json:"buyer_id" db:"buyer_id"`
	TotalAmount       decimal.Decimal  `json:"total_amount" db:"total_amount"`
	Status            Status           `json:"status" db:"status"`
	PaymentStatus     PaymentStatus    `json:"payment_status" db:"payment_status"`
	ShippingAddress   string           `json:"shipping_address" db:"shipping_address"`
	TrackingNumber    *string          `json:"tracking_number,omitempty" db:"tracking_number"`
	ShippingCarrier   *string          `json:"shipping_carrier,omitempty" db:"shipping_carrier"`
	ShippedAt         *time.Time       `json:"shipped_at,omitempty" db:"shipped_at"`
	DeliveredAt       *time.Time       `json:"delivered_at,omitempty" db:"delivered_at"`
	ConfirmedByBuyer  bool             `json:"confirmed_by_buyer" db:"confirmed_by_buyer"`
	PaymentReleased   bool             `json:"payment_released" db:"payment_released"`
	AdminCommission   *decimal.Decimal `json:"admin_commission,omitempty" db:"admin_commission"`
	SellerAmount      *decimal.Decimal `json:"seller_amount,omitempty" db:"seller_amount"`
	PaymentReleasedAt *time.Time       `json:"payment_released_at,omitempty" db:"payment_released_at"`
	TransferNotes     *string          `json:"transfer_notes,omitempty" db:"transfer_notes"`
	LineItems         []LineItem       `json:"line_items" db:"-"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// SellerIDs returns the distinct sellers owning line items in the order, in
// first-appearance order.
func (o *Order) SellerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.LineItems))
	ids := make([]uuid.UUID, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		if _, ok := seen[li.SellerID]; ok {
			continue
		}
		seen[li.SellerID] = struct{}{}
		ids = append(ids, li.SellerID)
	}
	return ids
}

// HasSeller reports whether the given user owns at least one line item.
func (o *Order) HasSeller(userID uuid.UUID) bool {
	for _, li := range o.LineItems {
		if li.SellerID == userID {
			return true
		}
	}
	return false
}
