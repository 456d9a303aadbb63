package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/pkg/models"
	"github.com/jmoiron/sqlx"
)

const subscriberColumns = `chat_id, subject_id, username, first_name, track, locale, timezone,
	notification_enabled, notification_hour, created_at, updated_at`

// SubscriberRepository handles database operations for chat subscribers
type SubscriberRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSubscriberRepository creates a new repository instance
func NewSubscriberRepository(db *sqlx.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db, now: time.Now}
}

// GetByChatID returns a subscriber by chat ID
func (r *SubscriberRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Subscriber, error) {
	var sub models.Subscriber
	query := r.db.Rebind("SELECT " + subscriberColumns + " FROM subscribers WHERE chat_id = ?")
	err := r.db.GetContext(ctx, &sub, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subscriber %d: %w", chatID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	return &sub, nil
}

// Create inserts a new subscriber, or refreshes the profile fields of an existing one.
// Track, locale and reminder settings of an existing subscriber are kept.
func (r *SubscriberRepository) Create(ctx context.Context, sub *models.Subscriber) error {
	now := r.now().UTC()
	query := r.db.Rebind(`
		INSERT INTO subscribers (
			chat_id, subject_id, username, first_name, track, locale, timezone,
			notification_enabled, notification_hour, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = excluded.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		sub.ChatID,
		sub.SubjectID,
		sub.Username,
		sub.FirstName,
		sub.Track,
		sub.Locale,
		sub.Timezone,
		sub.NotificationEnabled,
		sub.NotificationHour,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create/update subscriber: %w", err)
	}

	stored, err := r.GetByChatID(ctx, sub.ChatID)
	if err != nil {
		return err
	}
	*sub = *stored
	return nil
}

// Update modifies subscriber settings
func (r *SubscriberRepository) Update(ctx context.Context, sub *models.Subscriber) error {
	sub.UpdatedAt = r.now().UTC()
	query := r.db.Rebind(`
		UPDATE subscribers SET
			subject_id = ?,
			username = ?,
			first_name = ?,
			track = ?,
			locale = ?,
			timezone = ?,
			notification_enabled = ?,
			notification_hour = ?,
			updated_at = ?
		WHERE chat_id = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		sub.SubjectID,
		sub.Username,
		sub.FirstName,
		sub.Track,
		sub.Locale,
		sub.Timezone,
		sub.NotificationEnabled,
		sub.NotificationHour,
		sub.UpdatedAt,
		sub.ChatID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscriber: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("subscriber %d: %w", sub.ChatID, apperr.ErrNotFound)
	}
	return nil
}

// ListNotifiable returns subscribers with reminders turned on. Reminder hours are local
// to each subscriber's time zone, so hour matching is left to the caller.
func (r *SubscriberRepository) ListNotifiable(ctx context.Context) ([]models.Subscriber, error) {
	return r.getWithCondition(ctx, "notification_enabled = ?", true)
}

func (r *SubscriberRepository) getWithCondition(ctx context.Context, condition string, args ...interface{}) ([]models.Subscriber, error) {
	query := r.db.Rebind("SELECT " + subscriberColumns + " FROM subscribers WHERE " + condition + " ORDER BY chat_id")
	var subs []models.Subscriber
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get subscribers: %w", err)
	}
	return subs, nil
}
