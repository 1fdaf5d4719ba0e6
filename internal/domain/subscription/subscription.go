package subscription

import "time"

// Subscription is a registered web push endpoint for a gym owner's browser,
// together with the client keys the push service requires.
// Corresponds to the 'push_subscriptions' table.
type Subscription struct {
	ID        int64
	GymID     int64
	Endpoint  string // opaque delivery URL, unique per gym
	P256dh    string // client public key for payload encryption
	Auth      string // client authentication secret
	CreatedAt time.Time
}
