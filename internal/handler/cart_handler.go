package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/beckahex-jpg/charitymarket/internal/cart"
	"github.com/beckahex-jpg/charitymarket/internal/checkout"
	"github.com/beckahex-jpg/charitymarket/internal/order"
	"github.com/beckahex-jpg/charitymarket/internal/payment"
)

type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
}

type CheckoutResponse struct {
	Order        *order.Order `json:"order"`
	ChargeStatus string       `json:"charge_status"`
}

// CartHandler exposes the cart and the checkout compilation.
type CartHandler struct {
	carts    cart.Service
	compiler checkout.Compiler
	charger  payment.Charger
	validate *validator.Validate
}

func NewCartHandler(carts cart.Service, compiler checkout.Compiler, charger payment.Charger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		compiler: compiler,
		charger:  charger,
		validate: validator.New(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart/items", h.handleAddItem)
	router.Put("/cart/items/{productID}", h.handleSetQuantity)
	router.Delete("/cart/items/{productID}", h.handleRemoveItem)
	router.Post("/checkout", h.handleCheckout)
}

func (h *CartHandler) buyer(w http.ResponseWriter, r *http.Request) (order.Actor, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return order.Actor{}, false
	}
	if actor.Role != order.RoleBuyer {
		respondWithError(w, http.StatusForbidden, "only buyers have carts")
		return order.Actor{}, false
	}
	return actor, true
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.buyer(w, r)
	if !ok {
		return
	}

	summary, err := h.carts.GetCart(r.Context(), actor.UserID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to get cart"))
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.buyer(w, r)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationErrors(w, err)
		return
	}

	productID, err := uuid.FromString(req.ProductID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.carts.AddItem(r.Context(), actor.UserID, productID, req.Quantity); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to add cart item"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.buyer(w, r)
	if !ok {
		return
	}

	productID, err := urlUUID(r, "productID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationErrors(w, err)
		return
	}

	if err := h.carts.SetQuantity(r.Context(), actor.UserID, productID, req.Quantity); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to update cart item"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.buyer(w, r)
	if !ok {
		return
	}

	productID, err := urlUUID(r, "productID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.carts.RemoveItem(r.Context(), actor.UserID, productID); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to remove cart item"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCheckout compiles the cart into an order, then submits the charge.
// The charge is asynchronous on the gateway side: a submission failure leaves
// the order pending for a later webhook or retry, it does not undo checkout.
func (h *CartHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.buyer(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationErrors(w, err)
		return
	}

	o, err := h.compiler.Compile(r.Context(), actor.UserID, req.ShippingAddress)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to checkout"))
		return
	}

	chargeStatus := "submitted"
	if _, err := h.charger.Charge(r.Context(), o.ID, o.TotalAmount); err != nil {
		log.Warn().Err(err).Stringer("order_id", o.ID).Msg("handler: charge submission failed, order stays pending")
		chargeStatus = "submission_failed"
	}

	respondWithJSON(w, http.StatusCreated, CheckoutResponse{Order: o, ChargeStatus: chargeStatus})
}
