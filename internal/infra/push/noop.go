package push

import (
	"context"

	domainpush "gym_notification_service/internal/domain/push"
	"gym_notification_service/internal/domain/subscription"
)

// NoopTransport stands in when VAPID credentials are absent. Dispatch
// short-circuits on Enabled() before ever calling Send, so delivery is a
// configuration-degraded no-op rather than a per-call error.
type NoopTransport struct{}

func (NoopTransport) Enabled() bool { return false }

func (NoopTransport) Send(_ context.Context, _ *subscription.Subscription, _ []byte) (domainpush.Result, error) {
	return domainpush.ResultRetriable, nil
}
