package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// CreateNotification inserts an in-app notification and returns its ID.
// Rows are keyed on the event ID when one is set, so writing the same queued
// event twice keeps a single row and returns its original ID.
func (s *Storage) CreateNotification(ctx context.Context, n models.Notification) (int, error) {
	const op = "storage.CreateNotification"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO notifications (user_uid, event_id, type, title, body)
	          VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5)
	          ON CONFLICT (event_id) DO NOTHING
	          RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query, n.UserUID, n.EventID, n.Type, n.Title, n.Body).Scan(&newID)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.DB.QueryRowContext(ctx,
			`SELECT id FROM notifications WHERE event_id = $1::uuid`, n.EventID).Scan(&newID)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListNotifications returns the user's notifications, newest first,
// optionally only unread ones.
func (s *Storage) ListNotifications(ctx context.Context, userUID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	const op = "storage.ListNotifications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, type, title, body, read, created_at
	          FROM notifications
	          WHERE user_uid = $1 AND ($2 = FALSE OR read = FALSE)
	          ORDER BY id DESC
	          LIMIT $3 OFFSET $4`
	rows, err := s.DB.QueryContext(ctx, query, userUID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserUID, &n.Type, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkNotificationRead flags one notification as read and returns affected rows.
func (s *Storage) MarkNotificationRead(ctx context.Context, userUID string, id int) (int, error) {
	const op = "storage.MarkNotificationRead"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_uid = $2`
	result, err := s.DB.ExecContext(ctx, query, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(affected), nil
}
