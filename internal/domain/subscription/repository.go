package subscription

import "context"

// Repository defines the operations for persisting push subscriptions.
// Creation and endpoint-keyed removal are driven by the HTTP API; deletion
// by id batch is the one mutation the dispatch pipeline performs, when a
// push service reports an endpoint permanently gone.
type Repository interface {
	// Save inserts the subscription, or updates the stored keys when a row
	// for (gym_id, endpoint) already exists. It reports whether a new row
	// was created.
	Save(ctx context.Context, sub *Subscription) (created bool, err error)
	DeleteByEndpoint(ctx context.Context, gymID int64, endpoint string) error
	ListByGym(ctx context.Context, gymID int64) ([]*Subscription, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
}
