package database

import (
	"context"
	"database/sql"
	"fmt"

	"gym_notification_service/internal/domain/subscription"

	"github.com/lib/pq" // For pq.Array
)

type PostgresSubscriptionRepository struct {
	db *sql.DB
}

func NewPostgresSubscriptionRepository(db *sql.DB) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

// Save inserts a new subscription, or refreshes the stored keys when the
// (gym_id, endpoint) pair already exists. Browsers re-subscribe with fresh
// keys against the same endpoint, so the update path is the common one.
func (r *PostgresSubscriptionRepository) Save(ctx context.Context, sub *subscription.Subscription) (bool, error) {
	selectQuery := `SELECT id, created_at FROM push_subscriptions WHERE gym_id = $1 AND endpoint = $2`
	err := r.db.QueryRowContext(ctx, selectQuery, sub.GymID, sub.Endpoint).Scan(&sub.ID, &sub.CreatedAt)
	switch {
	case err == sql.ErrNoRows:
		insertQuery := `INSERT INTO push_subscriptions (gym_id, endpoint, p256dh, auth)
                         VALUES ($1, $2, $3, $4)
                         RETURNING id, created_at`
		err = r.db.QueryRowContext(ctx, insertQuery, sub.GymID, sub.Endpoint, sub.P256dh, sub.Auth).Scan(&sub.ID, &sub.CreatedAt)
		if err != nil {
			if translated := translateError(err); translated == ErrDuplicateSubscription {
				// A concurrent subscribe for the same endpoint won the
				// insert; fall through to updating the keys.
				return false, r.updateKeys(ctx, sub)
			}
			return false, fmt.Errorf("error creating push subscription: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("error looking up push subscription: %w", err)
	default:
		return false, r.updateKeys(ctx, sub)
	}
}

func (r *PostgresSubscriptionRepository) updateKeys(ctx context.Context, sub *subscription.Subscription) error {
	query := `UPDATE push_subscriptions SET p256dh = $1, auth = $2
               WHERE gym_id = $3 AND endpoint = $4
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, sub.P256dh, sub.Auth, sub.GymID, sub.Endpoint).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrSubscriptionNotFound
		}
		return fmt.Errorf("error updating push subscription keys: %w", err)
	}
	return nil
}

func (r *PostgresSubscriptionRepository) DeleteByEndpoint(ctx context.Context, gymID int64, endpoint string) error {
	query := `DELETE FROM push_subscriptions WHERE gym_id = $1 AND endpoint = $2`
	res, err := r.db.ExecContext(ctx, query, gymID, endpoint)
	if err != nil {
		return fmt.Errorf("error deleting push subscription by endpoint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *PostgresSubscriptionRepository) ListByGym(ctx context.Context, gymID int64) ([]*subscription.Subscription, error) {
	query := `SELECT id, gym_id, endpoint, p256dh, auth, created_at
               FROM push_subscriptions WHERE gym_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, gymID)
	if err != nil {
		return nil, fmt.Errorf("error listing push subscriptions by gym: %w", err)
	}
	defer rows.Close()

	subs := make([]*subscription.Subscription, 0)
	for rows.Next() {
		s := &subscription.Subscription{}
		if err := rows.Scan(&s.ID, &s.GymID, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning push subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating push subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteByIDs removes the given subscription rows in one statement. Used by
// the dispatcher to prune endpoints the push service reported gone.
func (r *PostgresSubscriptionRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM push_subscriptions WHERE id = ANY($1::bigint[])`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("error batch deleting push subscriptions: %w", err)
	}
	return nil
}
