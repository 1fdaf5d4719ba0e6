// internal/app/notification_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"gym_notification_service/internal/domain/member"
	"gym_notification_service/internal/domain/notification"
	"gym_notification_service/internal/domain/push"
	idb "gym_notification_service/internal/infra/database" // For typed repository errors
	"gym_notification_service/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

const expiredTitle = "Member Subscription Expired"

// ExpirationService drives one detection, composition and dispatch cycle.
// Both scheduled jobs call the same RunCycle; the work is idempotent per
// UTC calendar day, so re-entry from either job is harmless.
type ExpirationService interface {
	RunCycle(ctx context.Context, today time.Time) (*CycleSummary, error)
}

// CycleSummary reports what one cycle did, mirroring what gets logged at
// the end of a run.
type CycleSummary struct {
	ExpiredMembers       int
	NotificationsCreated int
	GymsNotified         int
	Dispatch             DispatchReport
}

// ExpirationServiceImpl implements the ExpirationService interface.
type ExpirationServiceImpl struct {
	memberRepo member.Repository
	notifRepo  notification.Repository
	dispatcher *PushDispatcher
	metrics    *metrics.Pipeline
	logger     *logrus.Logger
}

func NewExpirationService(
	mr member.Repository,
	nr notification.Repository,
	dispatcher *PushDispatcher,
	m *metrics.Pipeline,
	logger *logrus.Logger,
) *ExpirationServiceImpl {
	return &ExpirationServiceImpl{
		memberRepo: mr,
		notifRepo:  nr,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
	}
}

// RunCycle scans for members whose paid-access window lapsed before today,
// writes at most one ledger entry per member per day, and fans out one push
// per gym that gained new entries. A detector store error aborts the whole
// cycle (the next tick retries naturally); a store error while composing
// aborts only the affected gym's remaining work.
func (s *ExpirationServiceImpl) RunCycle(ctx context.Context, today time.Time) (*CycleSummary, error) {
	day := today.UTC()
	s.logger.WithField("date", day.Format("2006-01-02")).Info("Checking expired memberships")

	expired, err := s.memberRepo.ListExpired(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired members: %w", err)
	}

	summary := &CycleSummary{}
	if len(expired) == 0 {
		s.logger.Info("No expired memberships found")
		return summary, nil
	}

	// The repository query is calendar-day based already; the domain check
	// is the authoritative boundary rule and guards against a store that
	// compares full timestamps.
	byGym := make(map[int64][]*member.Member)
	for _, m := range expired {
		if !m.Expired(day) {
			continue
		}
		summary.ExpiredMembers++
		byGym[m.GymID] = append(byGym[m.GymID], m)
	}
	s.logger.WithField("count", summary.ExpiredMembers).Info("Found expired memberships")

	if !s.dispatcher.Enabled() {
		s.logger.Warn("Push transport disabled (VAPID keys missing); notifications will be recorded but not delivered")
	}

	gymIDs := make([]int64, 0, len(byGym))
	for id := range byGym {
		gymIDs = append(gymIDs, id)
	}
	sort.Slice(gymIDs, func(i, j int) bool { return gymIDs[i] < gymIDs[j] })

	for _, gymID := range gymIDs {
		newlyNotified := s.composeForGym(ctx, gymID, byGym[gymID], day, summary)
		if len(newlyNotified) == 0 {
			continue
		}
		summary.GymsNotified++

		payload := buildExpiredPayload(gymID, newlyNotified)
		report, err := s.dispatcher.FanOut(ctx, gymID, payload)
		if err != nil {
			s.logger.WithField("gym_id", gymID).WithError(err).Error("Push fan-out failed for gym")
		}
		summary.Dispatch.Add(report)
	}

	s.logger.WithFields(logrus.Fields{
		"expired":       summary.ExpiredMembers,
		"created":       summary.NotificationsCreated,
		"gyms_notified": summary.GymsNotified,
		"pushes_sent":   summary.Dispatch.Sent,
		"pruned":        summary.Dispatch.Pruned,
		"transient":     summary.Dispatch.TransientFailures,
	}).Info("Expiration cycle completed")
	return summary, nil
}

// composeForGym runs ensureExpiredNotification for each of the gym's
// expired members and returns the members that actually got a new ledger
// entry this cycle. A store error abandons the rest of this gym's members;
// other gyms are unaffected.
func (s *ExpirationServiceImpl) composeForGym(ctx context.Context, gymID int64, members []*member.Member, day time.Time, summary *CycleSummary) []*member.Member {
	var newlyNotified []*member.Member
	for _, m := range members {
		n, err := s.ensureExpiredNotification(ctx, m, day)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"gym_id":    gymID,
				"member_id": m.ID,
			}).WithError(err).Error("Failed to record expiration notification; skipping rest of gym until next tick")
			break
		}
		if n != nil {
			newlyNotified = append(newlyNotified, m)
			summary.NotificationsCreated++
			if s.metrics != nil {
				s.metrics.NotificationsCreated.Inc()
			}
			s.logger.WithFields(logrus.Fields{
				"gym_id":    gymID,
				"member_id": m.ID,
			}).Info("Created expiration notification")
		}
	}
	return newlyNotified
}

// ensureExpiredNotification records the member's expiration in the ledger
// unless an entry for the same member and UTC day already exists. The
// store's uniqueness constraint backs the existence check, so two
// overlapping cycles can never produce two rows for the same day: the
// loser's insert comes back as a duplicate and is treated as a no-op.
func (s *ExpirationServiceImpl) ensureExpiredNotification(ctx context.Context, m *member.Member, day time.Time) (*notification.Notification, error) {
	exists, err := s.notifRepo.ExistsForMemberOnDate(ctx, m.ID, notification.TypeSubscriptionExpired, day)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing notification for member %d: %w", m.ID, err)
	}
	if exists {
		return nil, nil
	}

	expiredOn := "N/A"
	if m.ExpirationDate.Valid {
		expiredOn = m.ExpirationDate.Time.UTC().Format("2006-01-02")
	}
	n := &notification.Notification{
		GymID:    m.GymID,
		MemberID: sql.NullInt64{Int64: m.ID, Valid: true},
		Title:    expiredTitle,
		Message:  fmt.Sprintf("Member %s (ID: %d) subscription has expired on %s.", m.Name, m.ID, expiredOn),
		Type:     notification.TypeSubscriptionExpired,
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		if errors.Is(err, idb.ErrDuplicateNotification) {
			// A concurrent cycle created the row between our check and
			// insert. Already notified today, nothing to do.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create notification for member %d: %w", m.ID, err)
	}
	return n, nil
}

// buildExpiredPayload composes the per-gym push document. With a single
// expired member the body names them as the dashboard always has; with
// several it summarizes, and MemberID is left zero.
func buildExpiredPayload(gymID int64, members []*member.Member) *push.Payload {
	p := &push.Payload{
		Title: expiredTitle,
		Icon:  "/images/logo.svg",
		Badge: "/images/logo.svg",
		Data: push.PayloadData{
			GymID: gymID,
			Type:  string(notification.TypeSubscriptionExpired),
		},
	}
	if len(members) == 1 {
		p.Body = fmt.Sprintf("Member %s subscription has expired.", members[0].Name)
		p.Data.MemberID = members[0].ID
	} else {
		p.Body = fmt.Sprintf("%d member subscriptions have expired.", len(members))
	}
	return p
}
