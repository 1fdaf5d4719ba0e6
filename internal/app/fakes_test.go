package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"gym_notification_service/internal/domain/member"
	"gym_notification_service/internal/domain/notification"
	"gym_notification_service/internal/domain/push"
	"gym_notification_service/internal/domain/subscription"
	idb "gym_notification_service/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeMemberRepo returns its member list as-is, like a store whose range
// query is coarser than the day-boundary rule.
type fakeMemberRepo struct {
	members []*member.Member
	listErr error
}

func (f *fakeMemberRepo) GetByID(_ context.Context, id int64) (*member.Member, error) {
	for _, m := range f.members {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, idb.ErrMemberNotFound
}

func (f *fakeMemberRepo) ListExpired(_ context.Context, _ time.Time) ([]*member.Member, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.members, nil
}

// fakeNotificationRepo keeps created rows in memory and enforces the
// (member_id, type, day) uniqueness the real store guarantees. The stamp
// field plays the role of the database clock.
type fakeNotificationRepo struct {
	created      []*notification.Notification
	stamp        time.Time
	nextID       int64
	createErrFor map[int64]error // keyed by member id
	existsErr    error
}

func newFakeNotificationRepo(stamp time.Time) *fakeNotificationRepo {
	return &fakeNotificationRepo{stamp: stamp, nextID: 1}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	if n.MemberID.Valid {
		if err, ok := f.createErrFor[n.MemberID.Int64]; ok {
			return err
		}
		for _, existing := range f.created {
			if existing.MemberID.Valid && existing.MemberID.Int64 == n.MemberID.Int64 &&
				existing.Type == n.Type && sameDay(existing.CreatedAt, f.stamp) {
				return idb.ErrDuplicateNotification
			}
		}
	}
	n.ID = f.nextID
	f.nextID++
	n.CreatedAt = f.stamp
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationRepo) ExistsForMemberOnDate(_ context.Context, memberID int64, typ notification.Type, day time.Time) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, n := range f.created {
		if n.MemberID.Valid && n.MemberID.Int64 == memberID && n.Type == typ && sameDay(n.CreatedAt, day) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationRepo) ListByGym(_ context.Context, gymID int64, limit int, unreadOnly bool) ([]*notification.Notification, error) {
	out := make([]*notification.Notification, 0)
	for _, n := range f.created {
		if n.GymID != gymID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) CountUnread(_ context.Context, gymID int64) (int, error) {
	count := 0
	for _, n := range f.created {
		if n.GymID == gymID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, gymID, id int64) error {
	for _, n := range f.created {
		if n.ID == id && n.GymID == gymID {
			n.IsRead = true
			return nil
		}
	}
	return idb.ErrNotificationNotFound
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, gymID int64) (int64, error) {
	var updated int64
	for _, n := range f.created {
		if n.GymID == gymID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotificationRepo) forMember(memberID int64) []*notification.Notification {
	out := make([]*notification.Notification, 0)
	for _, n := range f.created {
		if n.MemberID.Valid && n.MemberID.Int64 == memberID {
			out = append(out, n)
		}
	}
	return out
}

type fakeSubscriptionRepo struct {
	subs          []*subscription.Subscription
	listErr       error
	deleteBatches [][]int64
}

func (f *fakeSubscriptionRepo) Save(_ context.Context, sub *subscription.Subscription) (bool, error) {
	for _, existing := range f.subs {
		if existing.GymID == sub.GymID && existing.Endpoint == sub.Endpoint {
			existing.P256dh = sub.P256dh
			existing.Auth = sub.Auth
			sub.ID = existing.ID
			return false, nil
		}
	}
	sub.ID = int64(len(f.subs) + 1)
	f.subs = append(f.subs, sub)
	return true, nil
}

func (f *fakeSubscriptionRepo) DeleteByEndpoint(_ context.Context, gymID int64, endpoint string) error {
	for i, s := range f.subs {
		if s.GymID == gymID && s.Endpoint == endpoint {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return nil
		}
	}
	return idb.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) ListByGym(_ context.Context, gymID int64) ([]*subscription.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*subscription.Subscription, 0)
	for _, s := range f.subs {
		if s.GymID == gymID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubscriptionRepo) DeleteByIDs(_ context.Context, ids []int64) error {
	f.deleteBatches = append(f.deleteBatches, ids)
	remaining := f.subs[:0]
	for _, s := range f.subs {
		keep := true
		for _, id := range ids {
			if s.ID == id {
				keep = false
				break
			}
		}
		if keep {
			remaining = append(remaining, s)
		}
	}
	f.subs = remaining
	return nil
}

// fakeTransport records every endpoint it was asked to deliver to and
// answers with a scripted result per endpoint (delivered by default).
type fakeTransport struct {
	enabled bool
	results map[string]push.Result
	sent    []string
}

func (f *fakeTransport) Enabled() bool { return f.enabled }

func (f *fakeTransport) Send(_ context.Context, sub *subscription.Subscription, _ []byte) (push.Result, error) {
	f.sent = append(f.sent, sub.Endpoint)
	if result, ok := f.results[sub.Endpoint]; ok {
		if result == push.ResultRetriable {
			return result, fmt.Errorf("push service unavailable")
		}
		return result, nil
	}
	return push.ResultDelivered, nil
}
