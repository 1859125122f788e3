package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Record, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (Preferences, error)
	UpsertPreferences(ctx context.Context, prefs Preferences) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate notification ID: %w", err)
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, payload, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)
	`
	_, err := r.db.Exec(ctx, query, rec.ID, rec.UserID, rec.Type, rec.Title, rec.Message, rec.Payload, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert notification: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Record, error) {
	query := `
		SELECT id, user_id, type, title, message, payload, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query notifications for user %s: %w", userID, err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Title, &rec.Message, &rec.Payload, &rec.Read, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan notification: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating notifications: %w", err)
	}

	return records, nil
}

func (r *postgresRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to mark notification read: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *postgresRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to mark notifications read: %w", err)
	}
	return nil
}

type postgresPreferenceStore struct {
	db *pgxpool.Pool
}

func NewPreferenceStore(db *pgxpool.Pool) PreferenceStore {
	return &postgresPreferenceStore{db: db}
}

func (s *postgresPreferenceStore) GetPreferences(ctx context.Context, userID uuid.UUID) (Preferences, error) {
	query := `
		SELECT user_id, email_order_updates, email_payouts, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`

	var p Preferences
	err := s.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.EmailOrderUpdates, &p.EmailPayouts, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultPreferences(userID), nil
		}
		return Preferences{}, fmt.Errorf("repository: failed to select preferences for user %s: %w", userID, err)
	}
	return p, nil
}

func (s *postgresPreferenceStore) UpsertPreferences(ctx context.Context, prefs Preferences) error {
	query := `
		INSERT INTO notification_preferences (user_id, email_order_updates, email_payouts, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET email_order_updates = EXCLUDED.email_order_updates,
		              email_payouts = EXCLUDED.email_payouts,
		              updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.Exec(ctx, query, prefs.UserID, prefs.EmailOrderUpdates, prefs.EmailPayouts, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to upsert preferences: %w", err)
	}
	return nil
}
