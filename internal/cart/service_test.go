package cart_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beckahex-jpg/charitymarket/internal/cart"
	"github.com/beckahex-jpg/charitymarket/internal/catalog"
)

var (
	userID    = uuid.Must(uuid.NewV4())
	sellerID  = uuid.Must(uuid.NewV4())
	scarfID   = uuid.Must(uuid.NewV4())
	candlesID = uuid.Must(uuid.NewV4())
	orphanID  = uuid.Must(uuid.NewV4())
)

type stubCartRepo struct {
	items      []cart.Item
	upserted   []uuid.UUID
	removed    []uuid.UUID
	quantities map[uuid.UUID]int
}

func (s *stubCartRepo) UpsertItem(_ context.Context, _, productID uuid.UUID, _ int) error {
	s.upserted = append(s.upserted, productID)
	return nil
}

func (s *stubCartRepo) SetQuantity(_ context.Context, _, productID uuid.UUID, quantity int) error {
	if s.quantities == nil {
		s.quantities = map[uuid.UUID]int{}
	}
	s.quantities[productID] = quantity
	return nil
}

func (s *stubCartRepo) RemoveItem(_ context.Context, _, productID uuid.UUID) error {
	s.removed = append(s.removed, productID)
	return nil
}

func (s *stubCartRepo) ListByUser(context.Context, uuid.UUID) ([]cart.Item, error) {
	return s.items, nil
}

type stubCatalog struct {
	products map[uuid.UUID]catalog.Product
}

func (s *stubCatalog) GetProductByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if p, ok := s.products[id]; ok {
		return &p, nil
	}
	return nil, catalog.ErrProductNotFound
}

func (s *stubCatalog) GetProductsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error) {
	out := make(map[uuid.UUID]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func fixtures() (*stubCartRepo, *stubCatalog) {
	repo := &stubCartRepo{items: []cart.Item{
		{ID: uuid.Must(uuid.NewV4()), UserID: userID, ProductID: scarfID, Quantity: 1},
		{ID: uuid.Must(uuid.NewV4()), UserID: userID, ProductID: candlesID, Quantity: 2},
		{ID: uuid.Must(uuid.NewV4()), UserID: userID, ProductID: orphanID, Quantity: 1},
	}}
	products := &stubCatalog{products: map[uuid.UUID]catalog.Product{
		scarfID:   {ID: scarfID, SellerID: sellerID, Title: "Hand-knitted scarf", Price: decimal.RequireFromString("20.00"), Available: true},
		candlesID: {ID: candlesID, SellerID: sellerID, Title: "Beeswax candles", Price: decimal.RequireFromString("15.00"), Available: false},
	}}
	return repo, products
}

func TestService_GetCart(t *testing.T) {
	repo, products := fixtures()
	svc := cart.NewService(repo, products)

	summary, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)

	// The deleted listing disappears, the unavailable one stays visible but
	// does not count toward the total.
	require.Len(t, summary.Items, 2)
	assert.True(t, summary.Total.Equal(decimal.RequireFromString("20.00")), "got total %s", summary.Total)

	assert.Equal(t, "Beeswax candles", summary.Items[1].Title)
	assert.False(t, summary.Items[1].Available)
}

func TestService_GetCart_Empty(t *testing.T) {
	svc := cart.NewService(&stubCartRepo{}, &stubCatalog{})

	summary, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.Total.IsZero())
}

func TestService_AddItem(t *testing.T) {
	repo, products := fixtures()
	svc := cart.NewService(repo, products)

	t.Run("available product", func(t *testing.T) {
		require.NoError(t, svc.AddItem(context.Background(), userID, scarfID, 1))
		assert.Equal(t, []uuid.UUID{scarfID}, repo.upserted)
	})

	t.Run("unavailable product", func(t *testing.T) {
		err := svc.AddItem(context.Background(), userID, candlesID, 1)
		assert.ErrorIs(t, err, cart.ErrProductUnavailable)
	})

	t.Run("unknown product", func(t *testing.T) {
		err := svc.AddItem(context.Background(), userID, orphanID, 1)
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		assert.Error(t, svc.AddItem(context.Background(), userID, scarfID, 0))
	})
}

func TestService_SetQuantity(t *testing.T) {
	repo, products := fixtures()
	svc := cart.NewService(repo, products)

	require.NoError(t, svc.SetQuantity(context.Background(), userID, scarfID, 3))
	assert.Equal(t, 3, repo.quantities[scarfID])

	// Zero means remove, not a zero-quantity row.
	require.NoError(t, svc.SetQuantity(context.Background(), userID, scarfID, 0))
	assert.Equal(t, []uuid.UUID{scarfID}, repo.removed)
}
