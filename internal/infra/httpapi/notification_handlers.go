package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gym_notification_service/internal/domain/notification"
	"gym_notification_service/internal/domain/subscription"
	idb "gym_notification_service/internal/infra/database"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const defaultListLimit = 50

// NotificationHandler serves the gym owner dashboard's notification and
// push-subscription endpoints. Tenant scoping comes from the gymID route
// parameter; authentication sits in front of this service and is not
// handled here.
type NotificationHandler struct {
	notifRepo      notification.Repository
	subRepo        subscription.Repository
	vapidPublicKey string
	logger         *logrus.Logger
}

func NewNotificationHandler(
	nr notification.Repository,
	sr subscription.Repository,
	vapidPublicKey string,
	logger *logrus.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notifRepo:      nr,
		subRepo:        sr,
		vapidPublicKey: vapidPublicKey,
		logger:         logger,
	}
}

type notificationDTO struct {
	ID        int64  `json:"id"`
	GymID     int64  `json:"gym_id"`
	MemberID  *int64 `json:"member_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

func toNotificationDTO(n *notification.Notification) notificationDTO {
	dto := notificationDTO{
		ID:        n.ID,
		GymID:     n.GymID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if n.MemberID.Valid {
		id := n.MemberID.Int64
		dto.MemberID = &id
	}
	return dto
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gymID(w, r)
	if !ok {
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	unreadOnly := isTruthy(r.URL.Query().Get("unread_only"))

	notifications, err := h.notifRepo.ListByGym(r.Context(), gymID, limit, unreadOnly)
	if err != nil {
		h.logger.WithError(err).Error("Error fetching notifications")
		respondError(w, http.StatusInternalServerError, "failed to fetch notifications")
		return
	}

	dtos := make([]notificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, toNotificationDTO(n))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"notifications": dtos,
		"count":         len(dtos),
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gymID(w, r)
	if !ok {
		return
	}
	count, err := h.notifRepo.CountUnread(r.Context(), gymID)
	if err != nil {
		h.logger.WithError(err).Error("Error fetching unread count")
		respondError(w, http.StatusInternalServerError, "failed to fetch unread count")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gymID(w, r)
	if !ok {
		return
	}
	notifID, err := strconv.ParseInt(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.notifRepo.MarkRead(r.Context(), gymID, notifID); err != nil {
		if errors.Is(err, idb.ErrNotificationNotFound) {
			respondError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.logger.WithError(err).Error("Error marking notification as read")
		respondError(w, http.StatusInternalServerError, "failed to mark notification as read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gymID(w, r)
	if !ok {
		return
	}
	updated, err := h.notifRepo.MarkAllRead(r.Context(), gymID)
	if err != nil {
		h.logger.WithError(err).Error("Error marking all notifications as read")
		respondError(w, http.StatusInternalServerError, "failed to mark notifications as read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": strconv.FormatInt(updated, 10) + " notifications marked as read",
	})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gymID(w, r)
	if !ok {
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		respondError(w, http.StatusBadRequest, "missing required fields: endpoint and keys")
		return
	}

	sub := &subscription.Subscription{
		GymID:    gymID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	created, err := h.subRepo.Save(r.Context(), sub)
	if err != nil {
		h.logger.WithError(err).Error("Error saving push subscription")
		respondError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	status := http.StatusOK
	message := "Push subscription updated"
	if created {
		status = http.StatusCreated
		message = "Push subscription created"
	}
	respondJSON(w, status, map[string]any{
		"success": true,
		"message": message,
		"subscription": map[string]any{
			"id":       sub.ID,
			"gym_id":   sub.GymID,
			"endpoint": sub.Endpoint,
		},
	})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gymID(w, r)
	if !ok {
		return
	}

	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Endpoint == "" {
		respondError(w, http.StatusBadRequest, "missing required field: endpoint")
		return
	}

	if err := h.subRepo.DeleteByEndpoint(r.Context(), gymID, req.Endpoint); err != nil {
		if errors.Is(err, idb.ErrSubscriptionNotFound) {
			respondError(w, http.StatusNotFound, "subscription not found")
			return
		}
		h.logger.WithError(err).Error("Error deleting push subscription")
		respondError(w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Unsubscribed successfully"})
}

// VAPIDPublicKey hands the browser the key it needs to create a push
// subscription addressed to this server.
func (h *NotificationHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if h.vapidPublicKey == "" {
		respondError(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "public_key": h.vapidPublicKey})
}

func (h *NotificationHandler) gymID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "gymID"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid gym id")
		return 0, false
	}
	return id, true
}

func isTruthy(value string) bool {
	switch value {
	case "true", "1", "yes":
		return true
	}
	return false
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "error": message})
}
