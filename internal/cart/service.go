package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/beckahex-jpg/charitymarket/internal/catalog"
)

var ErrProductUnavailable = errors.New("product is not available")

// Summary is a user's cart with live product data and a running total.
// Unavailable products stay visible so the UI can warn the buyer; checkout
// drops them.
type Summary struct {
	Items []View          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type Service interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	GetCart(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

type service struct {
	repo     Repository
	products catalog.Repository
}

func NewService(repo Repository, products catalog.Repository) Service {
	return &service{repo: repo, products: products}
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("service: quantity must be greater than zero, got %d", quantity)
	}

	p, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return err
	}
	if !p.Available {
		return ErrProductUnavailable
	}

	if err := s.repo.UpsertItem(ctx, userID, productID, quantity); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to add cart item")
		return err
	}
	return nil
}

func (s *service) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return s.repo.RemoveItem(ctx, userID, productID)
	}
	return s.repo.SetQuantity(ctx, userID, productID, quantity)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return s.repo.RemoveItem(ctx, userID, productID)
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Items: make([]View, 0, len(items)), Total: decimal.Zero}
	if len(items) == 0 {
		return summary, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			// Listing was deleted since the item was added.
			continue
		}
		v := View{
			Item:      it,
			Title:     p.Title,
			ImageURL:  p.ImageURL,
			UnitPrice: p.Price,
			Available: p.Available,
		}
		summary.Items = append(summary.Items, v)
		if p.Available {
			summary.Total = summary.Total.Add(v.Subtotal())
		}
	}

	return summary, nil
}
