package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/beckahex-jpg/charitymarket/internal/order"
	"github.com/beckahex-jpg/charitymarket/internal/settlement"
)

type AddShippingRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required"`
	Carrier        string `json:"carrier" validate:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type ReleasePaymentRequest struct {
	CommissionRatePercent *string `json:"commission_rate_percent,omitempty"`
	TransferNotes         string  `json:"transfer_notes"`
}

// OrderHandler exposes order transitions and reads.
type OrderHandler struct {
	svc         order.Service
	settlements settlement.Coordinator
	defaultRate decimal.Decimal
	validate    *validator.Validate
}

func NewOrderHandler(svc order.Service, settlements settlement.Coordinator, defaultRate decimal.Decimal) *OrderHandler {
	return &OrderHandler{
		svc:         svc,
		settlements: settlements,
		defaultRate: defaultRate,
		validate:    validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Post("/orders/{id}/shipping", h.handleAddShipping)
	router.Post("/orders/{id}/delivery-confirmation", h.handleConfirmDelivery)
	router.Post("/orders/{id}/release-payment", h.handleReleasePayment)
	router.Post("/orders/{id}/cancel", h.handleCancel)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	id, err := urlUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.svc.GetOrder(r.Context(), actor, id)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to get order"))
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	orders, err := h.svc.ListOrders(r.Context(), actor)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to list orders"))
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleAddShipping(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	id, err := urlUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req AddShippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationErrors(w, err)
		return
	}

	if err := h.svc.AddShippingInfo(r.Context(), actor, id, req.TrackingNumber, req.Carrier); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to add shipping info"))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(order.StatusShipped)})
}

func (h *OrderHandler) handleConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	id, err := urlUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.svc.ConfirmDelivery(r.Context(), actor, id); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to confirm delivery"))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(order.StatusDelivered)})
}

func (h *OrderHandler) handleReleasePayment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	id, err := urlUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req ReleasePaymentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	rate := h.defaultRate
	if req.CommissionRatePercent != nil {
		parsed, err := decimal.NewFromString(*req.CommissionRatePercent)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid commission rate")
			return
		}
		rate = parsed
	}

	result, err := h.settlements.ReleasePayment(r.Context(), actor, id, rate, req.TransferNotes)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to release payment"))
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *OrderHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	id, err := urlUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req CancelRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	if err := h.svc.Cancel(r.Context(), actor, id, req.Reason); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to cancel order"))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(order.StatusCancelled)})
}
