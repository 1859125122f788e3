package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/beckahex-jpg/charitymarket/internal/order"
)

type PaymentWebhookRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid4"`
	Reason  string `json:"reason"`
}

// PaymentWebhookHandler receives the gateway's terminal callbacks. Gateways
// redeliver webhooks, so the already-processed guard maps to 200: the
// redelivery achieved its goal, the payment is settled.
type PaymentWebhookHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewPaymentWebhookHandler(svc order.Service) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{svc: svc, validate: validator.New()}
}

func (h *PaymentWebhookHandler) RegisterRoutes(router chi.Router) {
	router.Post("/webhooks/payment/confirmed", h.handleConfirmed)
	router.Post("/webhooks/payment/failed", h.handleFailed)
}

func (h *PaymentWebhookHandler) handleConfirmed(w http.ResponseWriter, r *http.Request) {
	orderID, _, ok := h.decode(w, r)
	if !ok {
		return
	}

	err := h.svc.ConfirmPayment(r.Context(), orderID)
	h.respond(w, orderID, "confirmed", err)
}

func (h *PaymentWebhookHandler) handleFailed(w http.ResponseWriter, r *http.Request) {
	orderID, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	err := h.svc.FailPayment(r.Context(), orderID, req.Reason)
	h.respond(w, orderID, "failed", err)
}

func (h *PaymentWebhookHandler) decode(w http.ResponseWriter, r *http.Request) (uuid.UUID, PaymentWebhookRequest, bool) {
	var req PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return uuid.Nil, req, false
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationErrors(w, err)
		return uuid.Nil, req, false
	}

	orderID, err := uuid.FromString(req.OrderID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return uuid.Nil, req, false
	}
	return orderID, req, true
}

func (h *PaymentWebhookHandler) respond(w http.ResponseWriter, orderID uuid.UUID, outcome string, err error) {
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, map[string]string{"result": outcome})
	case errors.Is(err, order.ErrPaymentAlreadyProcessed):
		// Benign redelivery.
		respondWithJSON(w, http.StatusOK, map[string]string{"result": "already_processed"})
	case errors.Is(err, order.ErrOrderNotFound):
		respondWithError(w, http.StatusNotFound, order.ErrOrderNotFound.Error())
	default:
		log.Error().Err(err).Stringer("order_id", orderID).Msg("handler: payment webhook failed")
		respondWithError(w, http.StatusInternalServerError, "failed to process payment callback")
	}
}
