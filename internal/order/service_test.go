package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beckahex-jpg/charitymarket/internal/ledger"
	"github.com/beckahex-jpg/charitymarket/internal/order"
)

var (
	buyerID  = uuid.Must(uuid.FromString("123e4567-e89b-12d3-a456-426614174000"))
	sellerID = uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))
	orderID  = uuid.Must(uuid.FromString("9f8b1c2d-3e4f-5a6b-7c8d-9e0f1a2b3c4d"))
	otherID  = uuid.Must(uuid.FromString("00000000-0000-0000-0000-00000000beef"))
)

type mockRepository struct {
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	confirmPaymentFunc  func(ctx context.Context, id uuid.UUID) (bool, error)
	failPaymentFunc     func(ctx context.Context, id uuid.UUID) (bool, error)
	setShippingFunc     func(ctx context.Context, id uuid.UUID, tracking, carrier string, at time.Time) (bool, error)
	confirmDeliveryFunc func(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	cancelFunc          func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (m *mockRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]order.Order, error) {
	return []order.Order{}, nil
}

func (m *mockRepository) ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]order.Order, error) {
	return []order.Order{}, nil
}

func (m *mockRepository) ConfirmPayment(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.confirmPaymentFunc(ctx, id)
}

func (m *mockRepository) FailPayment(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.failPaymentFunc(ctx, id)
}

func (m *mockRepository) SetShippingInfo(ctx context.Context, id uuid.UUID, tracking, carrier string, at time.Time) (bool, error) {
	return m.setShippingFunc(ctx, id, tracking, carrier, at)
}

func (m *mockRepository) ConfirmDelivery(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return m.confirmDeliveryFunc(ctx, id, at)
}

func (m *mockRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.cancelFunc(ctx, id)
}

func (m *mockRepository) ReleasePayment(ctx context.Context, id uuid.UUID, split ledger.Split, at time.Time, notes string) (bool, error) {
	return false, errors.New("not used")
}

type mockNotifier struct {
	mu     sync.Mutex
	events []order.Event
}

func (m *mockNotifier) Dispatch(_ context.Context, evt order.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func testOrder(status order.Status, paymentStatus order.PaymentStatus) *order.Order {
	tracking := "TRK-001"
	carrier := "DHL"
	o := &order.Order{
		ID:              orderID,
		OrderNumber:     "CM-20250416-ABCDEF",
		BuyerID:         buyerID,
		TotalAmount:     decimal.RequireFromString("100.00"),
		Status:          status,
		PaymentStatus:   paymentStatus,
		ShippingAddress: "12 Charity Lane",
		LineItems: []order.LineItem{
			{
				ID:              uuid.Must(uuid.NewV4()),
				OrderID:         orderID,
				ProductID:       uuid.Must(uuid.NewV4()),
				SellerID:        sellerID,
				Title:           "Hand-knitted scarf",
				PriceAtPurchase: decimal.RequireFromString("100.00"),
				Quantity:        1,
			},
		},
	}
	if status == order.StatusShipped || status == order.StatusDelivered {
		o.TrackingNumber = &tracking
		o.ShippingCarrier = &carrier
	}
	return o
}

func TestService_ConfirmPayment(t *testing.T) {
	tests := []struct {
		name       string
		current    *order.Order
		updated    bool
		wantErrIs  error
		wantEvents int
	}{
		{
			name:       "success",
			current:    testOrder(order.StatusPending, order.PaymentPending),
			updated:    true,
			wantEvents: 1,
		},
		{
			name:      "webhook_redelivery_after_paid",
			current:   testOrder(order.StatusConfirmed, order.PaymentPaid),
			wantErrIs: order.ErrPaymentAlreadyProcessed,
		},
		{
			name:      "payment_already_failed",
			current:   testOrder(order.StatusPending, order.PaymentFailed),
			wantErrIs: order.ErrPaymentAlreadyProcessed,
		},
		{
			name:      "lost_race_to_concurrent_redelivery",
			current:   testOrder(order.StatusPending, order.PaymentPending),
			updated:   false,
			wantErrIs: order.ErrPaymentAlreadyProcessed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			repo := &mockRepository{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
					return tt.current, nil
				},
				confirmPaymentFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
					return tt.updated, nil
				},
			}
			svc := order.NewService(repo, notifier)

			err := svc.ConfirmPayment(context.Background(), orderID)
			if tt.wantErrIs != nil {
				assert.True(t, errors.Is(err, tt.wantErrIs), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantEvents, notifier.count())
			if tt.wantEvents > 0 {
				assert.Equal(t, order.EventOrderPaid, notifier.events[0].Type)
				assert.Equal(t, buyerID, notifier.events[0].BuyerID)
			}
		})
	}
}

// Simulates webhook redelivery end to end: a stateful repository flips the
// payment status on the first call, so the second call must be a benign
// no-op with no second notification.
func TestService_ConfirmPayment_Redelivery(t *testing.T) {
	current := testOrder(order.StatusPending, order.PaymentPending)
	notifier := &mockNotifier{}
	repo := &mockRepository{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			cp := *current
			return &cp, nil
		},
		confirmPaymentFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
			if current.PaymentStatus != order.PaymentPending {
				return false, nil
			}
			current.Status = order.StatusConfirmed
			current.PaymentStatus = order.PaymentPaid
			return true, nil
		},
	}
	svc := order.NewService(repo, notifier)

	require.NoError(t, svc.ConfirmPayment(context.Background(), orderID))

	err := svc.ConfirmPayment(context.Background(), orderID)
	assert.True(t, errors.Is(err, order.ErrPaymentAlreadyProcessed))

	assert.Equal(t, order.PaymentPaid, current.PaymentStatus)
	assert.Equal(t, 1, notifier.count(), "buyer must not be notified twice")
}

func TestService_AddShippingInfo(t *testing.T) {
	sellerActor := order.Actor{UserID: sellerID, Role: order.RoleSeller}

	tests := []struct {
		name       string
		actor      order.Actor
		current    *order.Order
		tracking   string
		carrier    string
		updated    bool
		wantErrIs  error
		wantEvents int
	}{
		{
			name:       "success",
			actor:      sellerActor,
			current:    testOrder(order.StatusConfirmed, order.PaymentPaid),
			tracking:   "TRK-001",
			carrier:    "DHL",
			updated:    true,
			wantEvents: 1,
		},
		{
			name:      "actor_owns_no_line_items",
			actor:     order.Actor{UserID: otherID, Role: order.RoleSeller},
			current:   testOrder(order.StatusConfirmed, order.PaymentPaid),
			tracking:  "TRK-001",
			carrier:   "DHL",
			wantErrIs: order.ErrUnauthorizedActor,
		},
		{
			name:      "buyer_cannot_ship",
			actor:     order.Actor{UserID: buyerID, Role: order.RoleBuyer},
			current:   testOrder(order.StatusConfirmed, order.PaymentPaid),
			tracking:  "TRK-001",
			carrier:   "DHL",
			wantErrIs: order.ErrUnauthorizedActor,
		},
		{
			name:      "empty_tracking_number",
			actor:     sellerActor,
			current:   testOrder(order.StatusConfirmed, order.PaymentPaid),
			tracking:  "   ",
			carrier:   "DHL",
			wantErrIs: order.ErrMissingTrackingInfo,
		},
		{
			name:      "empty_carrier",
			actor:     sellerActor,
			current:   testOrder(order.StatusConfirmed, order.PaymentPaid),
			tracking:  "TRK-001",
			carrier:   "",
			wantErrIs: order.ErrMissingTrackingInfo,
		},
		{
			name:      "not_yet_confirmed",
			actor:     sellerActor,
			current:   testOrder(order.StatusPending, order.PaymentPending),
			tracking:  "TRK-001",
			carrier:   "DHL",
			wantErrIs: order.ErrIllegalTransition,
		},
		{
			name:      "already_shipped",
			actor:     sellerActor,
			current:   testOrder(order.StatusShipped, order.PaymentPaid),
			tracking:  "TRK-002",
			carrier:   "DHL",
			wantErrIs: order.ErrIllegalTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			repo := &mockRepository{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
					return tt.current, nil
				},
				setShippingFunc: func(ctx context.Context, id uuid.UUID, tracking, carrier string, at time.Time) (bool, error) {
					return tt.updated, nil
				},
			}
			svc := order.NewService(repo, notifier)

			err := svc.AddShippingInfo(context.Background(), tt.actor, orderID, tt.tracking, tt.carrier)
			if tt.wantErrIs != nil {
				assert.True(t, errors.Is(err, tt.wantErrIs), "got %v", err)
				assert.Equal(t, 0, notifier.count(), "rejected transition must not notify")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantEvents, notifier.count())
			assert.Equal(t, order.EventOrderShipped, notifier.events[0].Type)
			assert.Equal(t, "TRK-001", notifier.events[0].Payload["tracking_number"])
		})
	}
}

func TestService_ConfirmDelivery(t *testing.T) {
	buyerActor := order.Actor{UserID: buyerID, Role: order.RoleBuyer}

	tests := []struct {
		name       string
		actor      order.Actor
		current    *order.Order
		updated    bool
		wantErrIs  error
		wantEvents int
	}{
		{
			name:       "success",
			actor:      buyerActor,
			current:    testOrder(order.StatusShipped, order.PaymentPaid),
			updated:    true,
			wantEvents: 1,
		},
		{
			name:      "confirmed_but_not_shipped",
			actor:     buyerActor,
			current:   testOrder(order.StatusConfirmed, order.PaymentPaid),
			wantErrIs: order.ErrNotShipped,
		},
		{
			name:      "other_buyer",
			actor:     order.Actor{UserID: otherID, Role: order.RoleBuyer},
			current:   testOrder(order.StatusShipped, order.PaymentPaid),
			wantErrIs: order.ErrUnauthorizedActor,
		},
		{
			name:      "seller_cannot_confirm_delivery",
			actor:     order.Actor{UserID: sellerID, Role: order.RoleSeller},
			current:   testOrder(order.StatusShipped, order.PaymentPaid),
			wantErrIs: order.ErrUnauthorizedActor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			repo := &mockRepository{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
					return tt.current, nil
				},
				confirmDeliveryFunc: func(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
					return tt.updated, nil
				},
			}
			svc := order.NewService(repo, notifier)

			err := svc.ConfirmDelivery(context.Background(), tt.actor, orderID)
			if tt.wantErrIs != nil {
				assert.True(t, errors.Is(err, tt.wantErrIs), "got %v", err)
				assert.Equal(t, 0, notifier.count())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantEvents, notifier.count())
			assert.Equal(t, order.EventOrderDelivered, notifier.events[0].Type)
			assert.Equal(t, []uuid.UUID{sellerID}, notifier.events[0].SellerIDs)
		})
	}
}

func TestService_Cancel(t *testing.T) {
	tests := []struct {
		name       string
		actor      order.Actor
		current    *order.Order
		updated    bool
		wantErrIs  error
		wantEvents int
	}{
		{
			name:       "buyer_cancels_pending",
			actor:      order.Actor{UserID: buyerID, Role: order.RoleBuyer},
			current:    testOrder(order.StatusPending, order.PaymentPending),
			updated:    true,
			wantEvents: 1,
		},
		{
			name:       "admin_cancels_confirmed",
			actor:      order.Actor{UserID: otherID, Role: order.RoleAdmin},
			current:    testOrder(order.StatusConfirmed, order.PaymentPaid),
			updated:    true,
			wantEvents: 1,
		},
		{
			name:      "shipped_order_cannot_be_cancelled",
			actor:     order.Actor{UserID: otherID, Role: order.RoleAdmin},
			current:   testOrder(order.StatusShipped, order.PaymentPaid),
			wantErrIs: order.ErrIllegalTransition,
		},
		{
			name:      "stranger_cannot_cancel",
			actor:     order.Actor{UserID: otherID, Role: order.RoleBuyer},
			current:   testOrder(order.StatusPending, order.PaymentPending),
			wantErrIs: order.ErrUnauthorizedActor,
		},
		{
			name:      "seller_cannot_cancel",
			actor:     order.Actor{UserID: sellerID, Role: order.RoleSeller},
			current:   testOrder(order.StatusPending, order.PaymentPending),
			wantErrIs: order.ErrUnauthorizedActor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			repo := &mockRepository{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
					return tt.current, nil
				},
				cancelFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
					return tt.updated, nil
				},
			}
			svc := order.NewService(repo, notifier)

			err := svc.Cancel(context.Background(), tt.actor, orderID, "changed my mind")
			if tt.wantErrIs != nil {
				assert.True(t, errors.Is(err, tt.wantErrIs), "got %v", err)
				assert.Equal(t, 0, notifier.count())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantEvents, notifier.count())
			assert.Equal(t, order.EventOrderCancelled, notifier.events[0].Type)
		})
	}
}

func TestService_GetOrder_Authorization(t *testing.T) {
	current := testOrder(order.StatusConfirmed, order.PaymentPaid)
	repo := &mockRepository{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return current, nil
		},
	}
	svc := order.NewService(repo, &mockNotifier{})

	tests := []struct {
		name    string
		actor   order.Actor
		wantErr error
	}{
		{"owner_buyer", order.Actor{UserID: buyerID, Role: order.RoleBuyer}, nil},
		{"line_item_seller", order.Actor{UserID: sellerID, Role: order.RoleSeller}, nil},
		{"admin", order.Actor{UserID: otherID, Role: order.RoleAdmin}, nil},
		{"other_buyer", order.Actor{UserID: otherID, Role: order.RoleBuyer}, order.ErrUnauthorizedActor},
		{"other_seller", order.Actor{UserID: otherID, Role: order.RoleSeller}, order.ErrUnauthorizedActor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := svc.GetOrder(context.Background(), tt.actor, orderID)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Nil(t, o)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, orderID, o.ID)
		})
	}
}
