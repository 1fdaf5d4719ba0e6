package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"gym_notification_service/internal/domain/member"
	"gym_notification_service/internal/domain/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

func expiredMember(id, gymID int64, name string, expiredAt time.Time) *member.Member {
	return &member.Member{
		ID:             id,
		GymID:          gymID,
		Name:           name,
		ExpirationDate: sql.NullTime{Time: expiredAt, Valid: true},
		IsActive:       true,
	}
}

func newTestService(members *fakeMemberRepo, notifs *fakeNotificationRepo, subs *fakeSubscriptionRepo, transport *fakeTransport) *ExpirationServiceImpl {
	log := testLogger()
	dispatcher := NewPushDispatcher(subs, transport, nil, log)
	return NewExpirationService(members, notifs, dispatcher, nil, log)
}

func TestRunCycleIdempotentWithinSameDay(t *testing.T) {
	yesterday := testDay.AddDate(0, 0, -1)
	members := &fakeMemberRepo{members: []*member.Member{
		expiredMember(1, 10, "Alice", yesterday),
	}}
	notifs := newFakeNotificationRepo(testDay)
	subs := &fakeSubscriptionRepo{subs: []*subscription.Subscription{
		{ID: 1, GymID: 10, Endpoint: "https://push/ep1"},
	}}
	transport := &fakeTransport{enabled: true}
	svc := newTestService(members, notifs, subs, transport)

	first, err := svc.RunCycle(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, first.NotificationsCreated)
	assert.Equal(t, 1, first.Dispatch.Sent)

	second, err := svc.RunCycle(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 0, second.NotificationsCreated)
	assert.Equal(t, 0, second.Dispatch.Attempted, "no new notifications means no fan-out")

	require.Len(t, notifs.forMember(1), 1, "exactly one ledger row per member per day")
}

func TestRunCycleDayRollover(t *testing.T) {
	yesterday := testDay.AddDate(0, 0, -1)
	members := &fakeMemberRepo{members: []*member.Member{
		expiredMember(1, 10, "Alice", yesterday),
	}}
	notifs := newFakeNotificationRepo(testDay)
	subs := &fakeSubscriptionRepo{}
	svc := newTestService(members, notifs, subs, &fakeTransport{enabled: true})

	_, err := svc.RunCycle(context.Background(), testDay)
	require.NoError(t, err)

	nextDay := testDay.AddDate(0, 0, 1)
	notifs.stamp = nextDay
	summary, err := svc.RunCycle(context.Background(), nextDay)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotificationsCreated)

	assert.Len(t, notifs.forMember(1), 2, "one ledger row per calendar day")
}

func TestRunCycleBoundaryDayNotFlagged(t *testing.T) {
	// The store query may return rows coarsely; the cycle must still not
	// treat a member expiring later today as expired.
	members := &fakeMemberRepo{members: []*member.Member{
		expiredMember(1, 10, "Alice", testDay.Add(6*time.Hour)),
		expiredMember(2, 10, "Bob", testDay.AddDate(0, 0, -1)),
	}}
	notifs := newFakeNotificationRepo(testDay)
	svc := newTestService(members, notifs, &fakeSubscriptionRepo{}, &fakeTransport{enabled: true})

	summary, err := svc.RunCycle(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ExpiredMembers)
	assert.Empty(t, notifs.forMember(1))
	assert.Len(t, notifs.forMember(2), 1)
}

func TestRunCycleFansOutOncePerGym(t *testing.T) {
	yesterday := testDay.AddDate(0, 0, -1)
	members := &fakeMemberRepo{members: []*member.Member{
		expiredMember(1, 10, "Alice", yesterday),
		expiredMember(2, 10, "Bob", yesterday),
		expiredMember(3, 20, "Cara", yesterday),
	}}
	notifs := newFakeNotificationRepo(testDay)
	subs := &fakeSubscriptionRepo{subs: []*subscription.Subscription{
		{ID: 1, GymID: 10, Endpoint: "https://push/gym10"},
		{ID: 2, GymID: 20, Endpoint: "https://push/gym20"},
	}}
	transport := &fakeTransport{enabled: true}
	svc := newTestService(members, notifs, subs, transport)

	summary, err := svc.RunCycle(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.NotificationsCreated)
	assert.Equal(t, 2, summary.GymsNotified)
	// One delivery per subscription per gym: gym 10's endpoint receives a
	// single summarizing push even though two members expired.
	assert.ElementsMatch(t, []string{"https://push/gym10", "https://push/gym20"}, transport.sent)
}

func TestRunCycleStoreErrorIsolatedPerGym(t *testing.T) {
	yesterday := testDay.AddDate(0, 0, -1)
	members := &fakeMemberRepo{members: []*member.Member{
		expiredMember(1, 10, "Alice", yesterday),
		expiredMember(2, 20, "Bob", yesterday),
	}}
	notifs := newFakeNotificationRepo(testDay)
	notifs.createErrFor = map[int64]error{1: errors.New("connection reset")}
	subs := &fakeSubscriptionRepo{subs: []*subscription.Subscription{
		{ID: 1, GymID: 10, Endpoint: "https://push/gym10"},
		{ID: 2, GymID: 20, Endpoint: "https://push/gym20"},
	}}
	transport := &fakeTransport{enabled: true}
	svc := newTestService(members, notifs, subs, transport)

	summary, err := svc.RunCycle(context.Background(), testDay)
	require.NoError(t, err, "a per-gym store failure must not fail the whole cycle")
	assert.Equal(t, 1, summary.NotificationsCreated)
	assert.Equal(t, []string{"https://push/gym20"}, transport.sent)
	assert.Empty(t, notifs.forMember(1))
}

func TestRunCycleDetectorErrorAbortsCycle(t *testing.T) {
	members := &fakeMemberRepo{listErr: errors.New("connection refused")}
	notifs := newFakeNotificationRepo(testDay)
	svc := newTestService(members, notifs, &fakeSubscriptionRepo{}, &fakeTransport{enabled: true})

	_, err := svc.RunCycle(context.Background(), testDay)
	require.Error(t, err)
	assert.Empty(t, notifs.created)
}

func TestRunCycleDisabledTransportStillRecordsNotifications(t *testing.T) {
	yesterday := testDay.AddDate(0, 0, -1)
	members := &fakeMemberRepo{members: []*member.Member{
		expiredMember(1, 10, "Alice", yesterday),
	}}
	notifs := newFakeNotificationRepo(testDay)
	subs := &fakeSubscriptionRepo{subs: []*subscription.Subscription{
		{ID: 1, GymID: 10, Endpoint: "https://push/ep1"},
	}}
	transport := &fakeTransport{enabled: false}
	svc := newTestService(members, notifs, subs, transport)

	summary, err := svc.RunCycle(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotificationsCreated, "detection and composition proceed without credentials")
	assert.Equal(t, 0, summary.Dispatch.Attempted)
	assert.Empty(t, transport.sent)
	assert.Len(t, subs.subs, 1, "subscriptions untouched")
}

func TestRunCycleNullExpirationNeverExpired(t *testing.T) {
	noExpiration := &member.Member{ID: 2, GymID: 10, Name: "Bob", IsActive: true}
	members := &fakeMemberRepo{members: []*member.Member{noExpiration}}

	notifs := newFakeNotificationRepo(testDay)
	svc := newTestService(members, notifs, &fakeSubscriptionRepo{}, &fakeTransport{enabled: true})

	summary, err := svc.RunCycle(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ExpiredMembers)
	assert.Empty(t, notifs.created)
}
