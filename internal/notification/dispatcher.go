package notification

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/beckahex-jpg/charitymarket/internal/metrics"
	"github.com/beckahex-jpg/charitymarket/internal/order"
)

// Directory resolves a user id to an email address. Identity is owned by an
// external collaborator; this is the one thing the dispatcher needs from it.
type Directory interface {
	EmailFor(ctx context.Context, userID uuid.UUID) (string, error)
}

// Dispatcher fans a committed order event out to its recipients. The in-app
// record is always persisted; the email is enqueued only when the recipient's
// category opt-in allows it. Nothing in here ever fails the transition that
// produced the event: every error is logged and swallowed.
type Dispatcher struct {
	records   Repository
	prefs     PreferenceStore
	directory Directory
	emails    EmailQueue
}

func NewDispatcher(records Repository, prefs PreferenceStore, directory Directory, emails EmailQueue) *Dispatcher {
	return &Dispatcher{records: records, prefs: prefs, directory: directory, emails: emails}
}

var _ order.Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) Dispatch(ctx context.Context, evt order.Event) {
	title, message := titleAndMessage(evt)

	for _, userID := range recipients(evt) {
		rec := &Record{
			UserID:  userID,
			Type:    string(evt.Type),
			Title:   title,
			Message: message,
			Payload: payloadFor(evt),
		}
		if err := d.records.Create(ctx, rec); err != nil {
			log.Error().Err(err).Stringer("order_id", evt.OrderID).Stringer("user_id", userID).
				Str("type", string(evt.Type)).Msg("notification: failed to persist record")
			continue
		}
		metrics.NotificationsCreatedTotal.WithLabelValues(string(evt.Type)).Inc()

		d.maybeEmail(ctx, evt, userID, title, message)
	}
}

func (d *Dispatcher) maybeEmail(ctx context.Context, evt order.Event, userID uuid.UUID, title, message string) {
	prefs, err := d.prefs.GetPreferences(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("notification: failed to load preferences, skipping email")
		return
	}
	if !prefs.emailEnabled(categoryFor(evt.Type)) {
		log.Debug().Stringer("user_id", userID).Str("type", string(evt.Type)).
			Msg("notification: email category disabled by recipient")
		return
	}

	addr, err := d.directory.EmailFor(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("notification: failed to resolve email address")
		return
	}

	d.emails.Enqueue(EmailJob{
		To:      addr,
		Subject: title,
		HTML:    emailBody(title, message, evt.OrderNumber),
	})
}

func payloadFor(evt order.Event) map[string]any {
	payload := map[string]any{
		"order_id":     evt.OrderID.String(),
		"order_number": evt.OrderNumber,
	}
	for k, v := range evt.Payload {
		payload[k] = v
	}
	return payload
}
