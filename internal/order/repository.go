package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beckahex-jpg/charitymarket/internal/ledger"
)

// Repository persists orders. Every transition method is a single conditional
// UPDATE keyed on the status the transition requires; the boolean result is
// false when the row no longer matched, so a rejected transition writes
// nothing.
type Repository interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Order, error)
	ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]Order, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) (bool, error)
	FailPayment(ctx context.Context, orderID uuid.UUID) (bool, error)
	SetShippingInfo(ctx context.Context, orderID uuid.UUID, trackingNumber, carrier string, shippedAt time.Time) (bool, error)
	ConfirmDelivery(ctx context.Context, orderID uuid.UUID, deliveredAt time.Time) (bool, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (bool, error)
	ReleasePayment(ctx context.Context, orderID uuid.UUID, split ledger.Split, releasedAt time.Time, transferNotes string) (bool, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `
	id, order_number, buyer_id, total_amount, status, payment_status,
	shipping_address, tracking_number, shipping_carrier, shipped_at, delivered_at,
	confirmed_by_buyer, payment_released, admin_commission, seller_amount,
	payment_released_at, transfer_notes, created_at, updated_at
`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.BuyerID,
		&o.TotalAmount,
		&o.Status,
		&o.PaymentStatus,
		&o.ShippingAddress,
		&o.TrackingNumber,
		&o.ShippingCarrier,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.ConfirmedByBuyer,
		&o.PaymentReleased,
		&o.AdminCommission,
		&o.SellerAmount,
		&o.PaymentReleasedAt,
		&o.TransferNotes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	items, err := r.lineItemsForOrders(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.LineItems = items[id]
	if o.LineItems == nil {
		o.LineItems = []LineItem{}
	}

	return o, nil
}

func (r *postgresRepository) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`
	return r.listOrders(ctx, query, buyerID)
}

func (r *postgresRepository) ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id IN (SELECT DISTINCT order_id FROM order_items WHERE seller_id = $1)
		ORDER BY created_at DESC
	`
	return r.listOrders(ctx, query, sellerID)
}

func (r *postgresRepository) listOrders(ctx context.Context, query string, arg any) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.LineItems = []LineItem{}
		ordersMap[o.ID] = o
		orderIDs = append(orderIDs, o.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	itemsByOrder, err := r.lineItemsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		o := ordersMap[id]
		if items, ok := itemsByOrder[id]; ok {
			o.LineItems = items
		}
		result = append(result, *o)
	}
	return result, nil
}

func (r *postgresRepository) lineItemsForOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]LineItem, error) {
	query := `
		SELECT id, order_id, product_id, seller_id, title, image_url, price_at_purchase, quantity, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[uuid.UUID][]LineItem)
	for rows.Next() {
		var li LineItem
		err := rows.Scan(
			&li.ID,
			&li.OrderID,
			&li.ProductID,
			&li.SellerID,
			&li.Title,
			&li.ImageURL,
			&li.PriceAtPurchase,
			&li.Quantity,
			&li.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		itemsByOrder[li.OrderID] = append(itemsByOrder[li.OrderID], li)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	return itemsByOrder, nil
}

func (r *postgresRepository) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND payment_status = $6
	`
	return r.conditionalUpdate(ctx, "confirm payment", query,
		StatusConfirmed, PaymentPaid, time.Now().UTC(), orderID, StatusPending, PaymentPending)
}

func (r *postgresRepository) FailPayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET payment_status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND payment_status = $5
	`
	return r.conditionalUpdate(ctx, "fail payment", query,
		PaymentFailed, time.Now().UTC(), orderID, StatusPending, PaymentPending)
}

func (r *postgresRepository) SetShippingInfo(ctx context.Context, orderID uuid.UUID, trackingNumber, carrier string, shippedAt time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, tracking_number = $2, shipping_carrier = $3, shipped_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`
	return r.conditionalUpdate(ctx, "set shipping info", query,
		StatusShipped, trackingNumber, carrier, shippedAt, time.Now().UTC(), orderID, StatusConfirmed)
}

func (r *postgresRepository) ConfirmDelivery(ctx context.Context, orderID uuid.UUID, deliveredAt time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, confirmed_by_buyer = true, delivered_at = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND tracking_number IS NOT NULL
	`
	return r.conditionalUpdate(ctx, "confirm delivery", query,
		StatusDelivered, deliveredAt, time.Now().UTC(), orderID, StatusShipped)
}

func (r *postgresRepository) Cancel(ctx context.Context, orderID uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`
	return r.conditionalUpdate(ctx, "cancel", query,
		StatusCancelled, time.Now().UTC(), orderID, []string{string(StatusPending), string(StatusConfirmed)})
}

// ReleasePayment is the settlement write. The payment_released = false guard
// makes it a compare-and-set: under concurrent releases exactly one caller
// gets true.
func (r *postgresRepository) ReleasePayment(ctx context.Context, orderID uuid.UUID, split ledger.Split, releasedAt time.Time, transferNotes string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, payment_released = true, admin_commission = $2, seller_amount = $3,
		    payment_released_at = $4, transfer_notes = $5, updated_at = $6
		WHERE id = $7 AND payment_released = false AND payment_status = $8 AND confirmed_by_buyer = true
	`
	return r.conditionalUpdate(ctx, "release payment", query,
		StatusCompleted, split.Commission, split.SellerAmount, releasedAt, transferNotes, time.Now().UTC(), orderID, PaymentPaid)
}

func (r *postgresRepository) conditionalUpdate(ctx context.Context, op, query string, args ...any) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("repository: failed to %s: %w", op, err)
	}
	return cmdTag.RowsAffected() > 0, nil
}
