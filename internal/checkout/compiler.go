package checkout

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/beckahex-jpg/charitymarket/internal/cart"
	"github.com/beckahex-jpg/charitymarket/internal/catalog"
	"github.com/beckahex-jpg/charitymarket/internal/order"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrMissingShippingAddress = errors.New("shipping address is required")
)

type Compiler interface {
	Compile(ctx context.Context, buyerID uuid.UUID, shippingAddress string) (*order.Order, error)
}

type compiler struct {
	carts    cart.Repository
	products catalog.Repository
	repo     Repository
}

func NewCompiler(carts cart.Repository, products catalog.Repository, repo Repository) Compiler {
	return &compiler{carts: carts, products: products, repo: repo}
}

// Compile snapshots the buyer's cart into an immutable order. Products that
// have become unavailable (or were deleted) since they were added are dropped
// and the total recomputed over the remaining lines; the buyer is never
// charged for something that can no longer ship. The order, its line items
// and the cart deletion commit as one transaction.
func (c *compiler) Compile(ctx context.Context, buyerID uuid.UUID, shippingAddress string) (*order.Order, error) {
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, ErrMissingShippingAddress
	}

	cartItems, err := c.carts.ListByUser(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	productIDs := make([]uuid.UUID, 0, len(cartItems))
	for _, it := range cartItems {
		productIDs = append(productIDs, it.ProductID)
	}
	products, err := c.products.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to generate order ID: %w", err)
	}

	now := time.Now().UTC()
	total := decimal.Zero
	lineItems := make([]order.LineItem, 0, len(cartItems))

	for _, it := range cartItems {
		p, ok := products[it.ProductID]
		if !ok || !p.Available {
			log.Info().Stringer("buyer_id", buyerID).Stringer("product_id", it.ProductID).
				Msg("checkout: skipping unavailable product")
			continue
		}

		itemID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("checkout: failed to generate line item ID: %w", err)
		}

		li := order.LineItem{
			ID:              itemID,
			OrderID:         orderID,
			ProductID:       p.ID,
			SellerID:        p.SellerID,
			Title:           p.Title,
			ImageURL:        p.ImageURL,
			PriceAtPurchase: p.Price,
			Quantity:        it.Quantity,
			CreatedAt:       now,
		}
		lineItems = append(lineItems, li)
		total = total.Add(li.Subtotal())
	}

	if len(lineItems) == 0 {
		return nil, ErrEmptyCart
	}

	o := &order.Order{
		ID:              orderID,
		OrderNumber:     newOrderNumber(now),
		BuyerID:         buyerID,
		TotalAmount:     total,
		Status:          order.StatusPending,
		PaymentStatus:   order.PaymentPending,
		ShippingAddress: shippingAddress,
		LineItems:       lineItems,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := c.repo.CreateOrderFromCart(ctx, o); err != nil {
		log.Error().Err(err).Stringer("buyer_id", buyerID).Msg("checkout: failed to persist compiled order")
		return nil, fmt.Errorf("checkout: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Str("order_number", o.OrderNumber).
		Str("total", o.TotalAmount.String()).Int("line_items", len(lineItems)).
		Msg("checkout: order compiled from cart")

	return o, nil
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newOrderNumber(t time.Time) string {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		panic(err) // crypto/rand does not fail on supported platforms
	}
	for i, b := range suffix {
		suffix[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("CM-%s-%s", t.Format("20060102"), suffix)
}
