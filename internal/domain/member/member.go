package member

import (
	"database/sql"
	"time"
)

// Member represents a gym member whose paid-access window the pipeline
// watches. The pipeline only ever reads members; creation and updates
// belong to the gym management API.
type Member struct {
	ID             int64
	GymID          int64
	Name           string
	ExpirationDate sql.NullTime // NULL means the membership never expires
	IsActive       bool
	CreatedAt      time.Time
}

// Expired reports whether the member's paid window lapsed strictly before
// the given calendar day. Comparison is by UTC date only: a member whose
// expiration falls anywhere on "today" is not expired until tomorrow.
// A member without an expiration date is never expired.
func (m *Member) Expired(today time.Time) bool {
	if !m.ExpirationDate.Valid {
		return false
	}
	exp := m.ExpirationDate.Time.UTC()
	expDay := time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, time.UTC)
	now := today.UTC()
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return expDay.Before(nowDay)
}
