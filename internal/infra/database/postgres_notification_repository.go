package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gym_notification_service/internal/domain/notification"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// Create inserts a notification row. The notifications table carries a
// unique index on (member_id, type, created_on) where created_on is the
// UTC calendar date of created_at; a violation is returned as
// ErrDuplicateNotification so two overlapping cycles cannot both record
// the same member on the same day.
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `INSERT INTO notifications (gym_id, member_id, title, message, type, is_read)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, n.GymID, n.MemberID, n.Title, n.Message, n.Type, n.IsRead).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return translateError(err)
	}
	return nil
}

func (r *PostgresNotificationRepository) ExistsForMemberOnDate(ctx context.Context, memberID int64, typ notification.Type, day time.Time) (bool, error) {
	query := `SELECT EXISTS (
                 SELECT 1 FROM notifications
                 WHERE member_id = $1 AND type = $2 AND created_at::date = $3::date)`

	dateOnly := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var exists bool
	err := r.db.QueryRowContext(ctx, query, memberID, typ, dateOnly).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking notification existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresNotificationRepository) ListByGym(ctx context.Context, gymID int64, limit int, unreadOnly bool) ([]*notification.Notification, error) {
	query := `SELECT id, gym_id, member_id, title, message, type, is_read, created_at
               FROM notifications WHERE gym_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, gymID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications by gym: %w", err)
	}
	defer rows.Close()

	notifications := make([]*notification.Notification, 0)
	for rows.Next() {
		n := &notification.Notification{}
		if err := rows.Scan(&n.ID, &n.GymID, &n.MemberID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}

func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, gymID int64) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE gym_id = $1 AND is_read = FALSE`
	var count int
	if err := r.db.QueryRowContext(ctx, query, gymID).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting unread notifications: %w", err)
	}
	return count, nil
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, gymID, id int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND gym_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, gymID)
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, gymID int64) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE gym_id = $1 AND is_read = FALSE`
	res, err := r.db.ExecContext(ctx, query, gymID)
	if err != nil {
		return 0, fmt.Errorf("error marking all notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading rows affected: %w", err)
	}
	return affected, nil
}
