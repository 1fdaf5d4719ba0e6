package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gym_notification_service/internal/domain/member"
)

type PostgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db}
}

func (r *PostgresMemberRepository) GetByID(ctx context.Context, id int64) (*member.Member, error) {
	query := `SELECT member_id, gym_id, name, expiration_date, is_active, created_at
               FROM members WHERE member_id = $1`
	m := &member.Member{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.GymID, &m.Name, &m.ExpirationDate, &m.IsActive, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("error getting member by ID: %w", err)
	}
	return m, nil
}

// ListExpired matches on the calendar date of expiration_date so that a
// member expiring at any time-of-day on the boundary day is only flagged
// from the next day onward.
func (r *PostgresMemberRepository) ListExpired(ctx context.Context, today time.Time) ([]*member.Member, error) {
	query := `SELECT member_id, gym_id, name, expiration_date, is_active, created_at
               FROM members
               WHERE expiration_date IS NOT NULL
                 AND expiration_date::date < $1::date
                 AND is_active = TRUE
               ORDER BY gym_id, member_id`

	dateOnly := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.db.QueryContext(ctx, query, dateOnly)
	if err != nil {
		return nil, fmt.Errorf("error listing expired members: %w", err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		m := &member.Member{}
		if err := rows.Scan(&m.ID, &m.GymID, &m.Name, &m.ExpirationDate, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning expired member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired members: %w", err)
	}
	return members, nil
}
