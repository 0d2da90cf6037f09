package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evcraddock/estate-bids/internal/apperr"
)

// Inbox stores notifications per user in SQLite.
type Inbox struct {
	db *sql.DB
}

// NewInbox creates an inbox.
func NewInbox(db *sql.DB) *Inbox {
	return &Inbox{db: db}
}

// Notify stores n. Redelivery of the same notification ID is a no-op.
func (b *Inbox) Notify(ctx context.Context, n Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("notification has no recipient")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notifications (id, user_id, kind, property_id, bid_id, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Kind), n.PropertyID, n.BidID, n.Message, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storing notification: %w", err)
	}
	return nil
}

// ListForUser returns a user's notifications, newest first.
func (b *Inbox) ListForUser(ctx context.Context, userID string, unreadOnly bool) (notes []*Notification, err error) {
	query := `SELECT id, user_id, kind, property_id, bid_id, message, created_at, read_at
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := b.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var n Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.PropertyID, &n.BidID, &n.Message, &n.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		notes = append(notes, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}

	return notes, nil
}

// MarkRead marks one of userID's notifications as read.
func (b *Inbox) MarkRead(ctx context.Context, userID, id string) error {
	result, err := b.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = COALESCE(read_at, ?) WHERE id = ? AND user_id = ?",
		time.Now().UTC(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("notification %s not found", id)
	}
	return nil
}
