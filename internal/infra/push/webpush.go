// internal/infra/push/webpush.go
package push

import (
	"context"
	"io"
	"net/http"
	"time"

	domainpush "gym_notification_service/internal/domain/push"
	"gym_notification_service/internal/domain/subscription"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
)

const (
	defaultTTL         = 60 // seconds the push service may queue the message
	defaultSendTimeout = 10 * time.Second
)

// VAPIDCredentials is the signing key pair and contact subject used to
// authenticate outbound pushes.
type VAPIDCredentials struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Configured reports whether both halves of the key pair are present.
func (c VAPIDCredentials) Configured() bool {
	return c.PublicKey != "" && c.PrivateKey != ""
}

// WebPushAdapter implements the push.Transport interface using the
// SherClockHolmes/webpush-go library.
type WebPushAdapter struct {
	creds  VAPIDCredentials
	client *http.Client
}

func NewWebPushAdapter(creds VAPIDCredentials) *WebPushAdapter {
	return &WebPushAdapter{
		creds:  creds,
		client: &http.Client{Timeout: defaultSendTimeout},
	}
}

func (a *WebPushAdapter) Enabled() bool { return true }

// Send encrypts and delivers the payload to one subscriber endpoint and
// classifies the push service's answer.
func (a *WebPushAdapter) Send(ctx context.Context, sub *subscription.Subscription, payload []byte) (domainpush.Result, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      a.client,
		Subscriber:      a.creds.Subject,
		VAPIDPublicKey:  a.creds.PublicKey,
		VAPIDPrivateKey: a.creds.PrivateKey,
		TTL:             defaultTTL,
	})
	if err != nil {
		return domainpush.ResultRetriable, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	return ClassifyStatus(resp.StatusCode), nil
}

// ClassifyStatus maps a push service HTTP status onto a delivery result.
// 404 and 410 mean the subscription no longer exists at the push service
// and will never succeed again; everything else non-2xx is worth retrying
// on a later cycle.
func ClassifyStatus(code int) domainpush.Result {
	switch {
	case code >= 200 && code < 300:
		return domainpush.ResultDelivered
	case code == http.StatusNotFound || code == http.StatusGone:
		return domainpush.ResultGone
	default:
		return domainpush.ResultRetriable
	}
}

// NewTransport selects the real web push adapter when VAPID credentials are
// configured, and the no-op transport otherwise. The choice is made once at
// startup rather than checked on every send.
func NewTransport(creds VAPIDCredentials, log *logrus.Logger) domainpush.Transport {
	if !creds.Configured() {
		log.Warn("VAPID keys not configured. Push notifications will not be sent.")
		return NoopTransport{}
	}
	return NewWebPushAdapter(creds)
}
