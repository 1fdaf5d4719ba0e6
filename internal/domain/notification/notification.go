package notification

import (
	"database/sql"
	"time"
)

// Type identifies the kind of notification. The pipeline exclusively owns
// creation of these type values; the API layer only reads and marks them.
type Type string

const (
	TypeSubscriptionExpired      Type = "subscription_expired"
	TypeSubscriptionExpiringSoon Type = "subscription_expiring_soon"
)

// Notification is one entry in the per-day notification ledger.
// Corresponds to the 'notifications' table.
type Notification struct {
	ID        int64
	GymID     int64
	MemberID  sql.NullInt64 // NULL permitted for gym-wide notices
	Title     string
	Message   string
	Type      Type
	IsRead    bool
	CreatedAt time.Time
}
