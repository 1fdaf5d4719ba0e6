package member

import (
	"context"
	"time"
)

// Repository defines the read-only operations the pipeline needs on members.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Member, error)
	// ListExpired returns active members whose expiration date falls on a
	// calendar day strictly before today (UTC date comparison; members with
	// a NULL expiration date are excluded). Results are ordered by gym.
	ListExpired(ctx context.Context, today time.Time) ([]*Member, error)
}
