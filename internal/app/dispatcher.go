// internal/app/dispatcher.go
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"gym_notification_service/internal/domain/push"
	"gym_notification_service/internal/domain/subscription"
	"gym_notification_service/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// DispatchReport summarizes one fan-out to a gym's subscribers.
type DispatchReport struct {
	Attempted         int
	Sent              int
	Pruned            int
	TransientFailures int
}

// Add accumulates another report into this one. Used by the cycle summary.
func (r *DispatchReport) Add(other DispatchReport) {
	r.Attempted += other.Attempted
	r.Sent += other.Sent
	r.Pruned += other.Pruned
	r.TransientFailures += other.TransientFailures
}

// PushDispatcher delivers a payload to every registered subscriber endpoint
// of a gym, isolating per-endpoint failures from the rest of the batch.
type PushDispatcher struct {
	subRepo   subscription.Repository
	transport push.Transport
	metrics   *metrics.Pipeline
	logger    *logrus.Logger
}

func NewPushDispatcher(
	sr subscription.Repository,
	transport push.Transport,
	m *metrics.Pipeline,
	logger *logrus.Logger,
) *PushDispatcher {
	return &PushDispatcher{
		subRepo:   sr,
		transport: transport,
		metrics:   m,
		logger:    logger,
	}
}

// Enabled reports whether the underlying transport can deliver at all.
// RunCycle uses this to log the missing-credentials warning once per cycle
// instead of once per gym.
func (d *PushDispatcher) Enabled() bool {
	return d.transport.Enabled()
}

// FanOut loads the gym's subscriptions and delivers the payload to each.
// A permanent failure queues the subscription for pruning, a transient one
// is recorded and skipped; neither stops delivery to the remaining
// endpoints. Pruned rows are deleted in a single batch at the end.
func (d *PushDispatcher) FanOut(ctx context.Context, gymID int64, payload *push.Payload) (DispatchReport, error) {
	report := DispatchReport{}
	if !d.transport.Enabled() {
		d.logger.WithField("gym_id", gymID).Debug("Push transport disabled, skipping fan-out")
		return report, nil
	}

	subs, err := d.subRepo.ListByGym(ctx, gymID)
	if err != nil {
		return report, fmt.Errorf("failed to list push subscriptions for gym %d: %w", gymID, err)
	}
	if len(subs) == 0 {
		d.logger.WithField("gym_id", gymID).Debug("No push subscriptions for gym")
		return report, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return report, fmt.Errorf("failed to marshal push payload for gym %d: %w", gymID, err)
	}

	var pruneIDs []int64
	for _, sub := range subs {
		report.Attempted++
		result, sendErr := d.transport.Send(ctx, sub, body)
		switch result {
		case push.ResultDelivered:
			report.Sent++
			d.logger.WithFields(logrus.Fields{
				"gym_id":          gymID,
				"subscription_id": sub.ID,
			}).Info("Push notification sent")
		case push.ResultGone:
			report.Pruned++
			pruneIDs = append(pruneIDs, sub.ID)
			d.logger.WithFields(logrus.Fields{
				"gym_id":          gymID,
				"subscription_id": sub.ID,
			}).Info("Push endpoint gone, removing subscription")
		default:
			report.TransientFailures++
			d.logger.WithFields(logrus.Fields{
				"gym_id":          gymID,
				"subscription_id": sub.ID,
			}).WithError(sendErr).Warn("Push delivery failed, will retry next cycle")
		}
		if d.metrics != nil {
			d.metrics.PushOutcomes.WithLabelValues(result.String()).Inc()
		}
	}

	if len(pruneIDs) > 0 {
		if err := d.subRepo.DeleteByIDs(ctx, pruneIDs); err != nil {
			// The endpoints stay gone either way; the next cycle will
			// classify them as permanent again and retry the delete.
			d.logger.WithField("gym_id", gymID).WithError(err).Error("Failed to prune dead push subscriptions")
		} else if d.metrics != nil {
			d.metrics.SubscriptionsPruned.Add(float64(len(pruneIDs)))
		}
	}

	return report, nil
}
