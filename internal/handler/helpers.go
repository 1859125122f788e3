package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/beckahex-jpg/charitymarket/internal/cart"
	"github.com/beckahex-jpg/charitymarket/internal/catalog"
	"github.com/beckahex-jpg/charitymarket/internal/checkout"
	"github.com/beckahex-jpg/charitymarket/internal/ledger"
	"github.com/beckahex-jpg/charitymarket/internal/notification"
	"github.com/beckahex-jpg/charitymarket/internal/order"
)

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
	return details
}

func respondWithValidationErrors(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: formatValidationErrors(validationErrors),
		})
		return
	}
	log.Error().Err(err).Msg("Unexpected error type during validation")
	respondWithError(w, http.StatusInternalServerError, "Internal validation error")
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, notification.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrUnauthorizedActor):
		return http.StatusForbidden
	case errors.Is(err, order.ErrIllegalTransition),
		errors.Is(err, order.ErrNotShipped):
		return http.StatusConflict
	case errors.Is(err, order.ErrMissingTrackingInfo),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrMissingShippingAddress),
		errors.Is(err, cart.ErrProductUnavailable),
		errors.Is(err, ledger.ErrInvalidRate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage keeps sentinel semantics visible to the caller while hiding
// wrapped internals.
func clientMessage(err error, fallback string) string {
	for _, sentinel := range []error{
		order.ErrOrderNotFound,
		order.ErrUnauthorizedActor,
		order.ErrIllegalTransition,
		order.ErrNotShipped,
		order.ErrMissingTrackingInfo,
		order.ErrPaymentAlreadyProcessed,
		checkout.ErrEmptyCart,
		checkout.ErrMissingShippingAddress,
		cart.ErrItemNotFound,
		cart.ErrProductUnavailable,
		catalog.ErrProductNotFound,
		notification.ErrNotificationNotFound,
		ledger.ErrInvalidRate,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	log.Error().Err(err).Msg("handler: request failed")
	return fallback
}

// actorFromRequest reads the identity headers the auth proxy sets for every
// call. The services re-validate ownership; this only parses.
func actorFromRequest(r *http.Request) (order.Actor, error) {
	userID, err := uuid.FromString(r.Header.Get("X-User-ID"))
	if err != nil {
		return order.Actor{}, fmt.Errorf("invalid or missing X-User-ID header")
	}

	role := order.Role(r.Header.Get("X-User-Role"))
	switch role {
	case order.RoleBuyer, order.RoleSeller, order.RoleAdmin:
	default:
		return order.Actor{}, fmt.Errorf("invalid or missing X-User-Role header")
	}

	return order.Actor{UserID: userID, Role: role}, nil
}

func urlUUID(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.FromString(chi.URLParam(r, param))
}
