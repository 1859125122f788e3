package checkout

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/beckahex-jpg/charitymarket/internal/order"
)

// Repository persists a compiled order as one logical unit: the order row,
// its line items and the cart deletion either all commit or none do.
type Repository interface {
	CreateOrderFromCart(ctx context.Context, o *order.Order) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateOrderFromCart(ctx context.Context, o *order.Order) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("repository: failed to rollback checkout transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	orderQuery := `
		INSERT INTO orders (id, order_number, buyer_id, total_amount, status, payment_status,
		                    shipping_address, confirmed_by_buyer, payment_released, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, false, $8, $9)
	`
	_, err = tx.Exec(ctx, orderQuery,
		o.ID, o.OrderNumber, o.BuyerID, o.TotalAmount, o.Status, o.PaymentStatus,
		o.ShippingAddress, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, seller_id, title, image_url, price_at_purchase, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, li := range o.LineItems {
		_, err = tx.Exec(ctx, itemQuery,
			li.ID, li.OrderID, li.ProductID, li.SellerID, li.Title, li.ImageURL,
			li.PriceAtPurchase, li.Quantity, li.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	// The cart is consumed by the checkout, inside the same transaction.
	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, o.BuyerID); err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %s: %w", o.BuyerID, err)
	}

	return nil
}
