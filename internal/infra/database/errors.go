package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// Typed errors returned by the repositories in this package. Callers branch
// on these instead of inspecting driver error strings.
var (
	ErrMemberNotFound        = errors.New("member not found")
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrSubscriptionNotFound  = errors.New("push subscription not found")
	ErrDuplicateNotification = errors.New("duplicate notification for member, type and day")
	ErrDuplicateSubscription = errors.New("duplicate push subscription for gym and endpoint")
)

// uniqueViolation is the PostgreSQL class 23 code for unique constraint
// violations.
const uniqueViolation = pq.ErrorCode("23505")

// uniqueConstraintErrors maps constraint names from the schema to the typed
// error each violation represents. New unique constraints the repositories
// care about get a row here.
var uniqueConstraintErrors = map[string]error{
	"notifications_member_type_day_key":   ErrDuplicateNotification,
	"push_subscriptions_gym_endpoint_key": ErrDuplicateSubscription,
}

// translateError converts driver-level failures into the typed errors above.
// Structured *pq.Error inspection is the primary path; matching on the
// constraint name inside the message text is kept only as a fallback for
// opaque errors that arrive without a *pq.Error (e.g. wrapped by a pooler).
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == uniqueViolation {
			if mapped, ok := uniqueConstraintErrors[pqErr.Constraint]; ok {
				return mapped
			}
		}
		return err
	}
	for name, mapped := range uniqueConstraintErrors {
		if strings.Contains(err.Error(), name) {
			return mapped
		}
	}
	return err
}
