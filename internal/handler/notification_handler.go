package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beckahex-jpg/charitymarket/internal/notification"
)

type UpdatePreferencesRequest struct {
	EmailOrderUpdates bool `json:"email_order_updates"`
	EmailPayouts      bool `json:"email_payouts"`
}

type NotificationListResponse struct {
	Notifications []notification.Record `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

// NotificationHandler exposes a recipient's own notifications and email
// opt-ins. Recipients can only toggle read flags; records themselves are
// created solely by the dispatcher.
type NotificationHandler struct {
	records notification.Repository
	prefs   notification.PreferenceStore
}

func NewNotificationHandler(records notification.Repository, prefs notification.PreferenceStore) *NotificationHandler {
	return &NotificationHandler{records: records, prefs: prefs}
}

func (h *NotificationHandler) RegisterRoutes(router chi.Router) {
	router.Get("/notifications", h.handleList)
	router.Post("/notifications/{id}/read", h.handleMarkRead)
	router.Post("/notifications/read-all", h.handleMarkAllRead)
	router.Get("/notification-preferences", h.handleGetPreferences)
	router.Put("/notification-preferences", h.handleUpdatePreferences)
}

func (h *NotificationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	records, err := h.records.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to list notifications"))
		return
	}
	unread, err := h.records.UnreadCount(r.Context(), actor.UserID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to count notifications"))
		return
	}

	respondWithJSON(w, http.StatusOK, NotificationListResponse{Notifications: records, UnreadCount: unread})
}

func (h *NotificationHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	id, err := urlUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.records.MarkRead(r.Context(), actor.UserID, id); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to mark notification read"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := h.records.MarkAllRead(r.Context(), actor.UserID); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to mark notifications read"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	prefs, err := h.prefs.GetPreferences(r.Context(), actor.UserID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to get preferences"))
		return
	}

	respondWithJSON(w, http.StatusOK, prefs)
}

func (h *NotificationHandler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	prefs := notification.Preferences{
		UserID:            actor.UserID,
		EmailOrderUpdates: req.EmailOrderUpdates,
		EmailPayouts:      req.EmailPayouts,
	}
	if err := h.prefs.UpsertPreferences(r.Context(), prefs); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "failed to update preferences"))
		return
	}

	respondWithJSON(w, http.StatusOK, prefs)
}
