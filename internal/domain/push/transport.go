package push

import (
	"context"

	"gym_notification_service/internal/domain/subscription"
)

// Result classifies the outcome of a single delivery attempt.
type Result int

const (
	// ResultDelivered means the push service accepted the message.
	ResultDelivered Result = iota
	// ResultGone means the endpoint is permanently invalid (the push
	// service answered 404/410); the subscription should be pruned.
	ResultGone
	// ResultRetriable covers network errors and 5xx-class responses; the
	// subscription is left in place and retried on the next cycle.
	ResultRetriable
)

func (r Result) String() string {
	switch r {
	case ResultDelivered:
		return "delivered"
	case ResultGone:
		return "gone"
	default:
		return "retriable"
	}
}

// Transport defines an interface for delivering an encrypted push payload to
// a subscriber endpoint. This decouples the dispatch logic from the specific
// web push library, and lets a no-op implementation stand in when VAPID
// credentials are not configured.
type Transport interface {
	// Enabled reports whether the transport can actually deliver. A
	// disabled transport makes fan-out a no-op with zero attempts.
	Enabled() bool
	Send(ctx context.Context, sub *subscription.Subscription, payload []byte) (Result, error)
}
