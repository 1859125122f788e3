package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/beckahex-jpg/charitymarket/internal/cart"
	"github.com/beckahex-jpg/charitymarket/internal/catalog"
	"github.com/beckahex-jpg/charitymarket/internal/checkout"
	"github.com/beckahex-jpg/charitymarket/internal/handler"
	"github.com/beckahex-jpg/charitymarket/internal/notification"
	"github.com/beckahex-jpg/charitymarket/internal/order"
	"github.com/beckahex-jpg/charitymarket/internal/payment"
	"github.com/beckahex-jpg/charitymarket/internal/settlement"
)

// Deps are the external collaborators the router cannot build itself.
type Deps struct {
	Charger               payment.Charger
	Directory             notification.Directory
	EmailQueue            notification.EmailQueue
	DefaultCommissionRate decimal.Decimal
}

// NewRouter wires repositories, services and handlers over the shared pool.
func NewRouter(dbPool *pgxpool.Pool, deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	notificationRepo := notification.NewRepository(dbPool)
	prefStore := notification.NewPreferenceStore(dbPool)
	dispatcher := notification.NewDispatcher(notificationRepo, prefStore, deps.Directory, deps.EmailQueue)

	orderRepo := order.NewRepository(dbPool)
	orderSvc := order.NewService(orderRepo, dispatcher)
	settlements := settlement.NewCoordinator(orderRepo, dispatcher)

	productRepo := catalog.NewRepository(dbPool)
	cartRepo := cart.NewRepository(dbPool)
	cartSvc := cart.NewService(cartRepo, productRepo)
	compiler := checkout.NewCompiler(cartRepo, productRepo, checkout.NewRepository(dbPool))

	handler.NewCartHandler(cartSvc, compiler, deps.Charger).RegisterRoutes(r)
	handler.NewOrderHandler(orderSvc, settlements, deps.DefaultCommissionRate).RegisterRoutes(r)
	handler.NewPaymentWebhookHandler(orderSvc).RegisterRoutes(r)
	handler.NewNotificationHandler(notificationRepo, prefStore).RegisterRoutes(r)

	return r
}
