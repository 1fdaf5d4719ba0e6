package notification

import (
	"context"
	"time"
)

// Repository defines the operations on the notification ledger.
type Repository interface {
	// Create persists a new notification. The store enforces uniqueness on
	// (member_id, type, calendar day of created_at); a violation surfaces as
	// the database package's duplicate-notification error.
	Create(ctx context.Context, n *Notification) error

	// ExistsForMemberOnDate reports whether a notification of the given type
	// was already created for the member on the given UTC calendar day.
	ExistsForMemberOnDate(ctx context.Context, memberID int64, typ Type, day time.Time) (bool, error)

	// Read surface used by the HTTP API.
	ListByGym(ctx context.Context, gymID int64, limit int, unreadOnly bool) ([]*Notification, error)
	CountUnread(ctx context.Context, gymID int64) (int, error)
	MarkRead(ctx context.Context, gymID, id int64) error
	MarkAllRead(ctx context.Context, gymID int64) (int64, error)
}
