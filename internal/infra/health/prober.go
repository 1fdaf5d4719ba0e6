package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
)

// LivenessCheck is the in-process fallback probe, typically a database ping.
type LivenessCheck func(ctx context.Context) error

// Prober keeps the hosting process warm by periodically requesting its own
// public health endpoint. Hosting platforms with idle timeouts (Render
// spins services down after 15 minutes without traffic) only count external
// requests, which is why the probe goes out over the network when a public
// base URL is configured. Failures are logged and never escalated; liveness
// probing is independent of notification correctness.
type Prober struct {
	baseURL  string
	client   *http.Client
	fallback LivenessCheck
	logger   *logrus.Logger
}

func NewProber(baseURL string, client *http.Client, fallback LivenessCheck, logger *logrus.Logger) *Prober {
	return &Prober{
		baseURL:  baseURL,
		client:   client,
		fallback: fallback,
		logger:   logger,
	}
}

// Ping issues the keep-alive request. Without a configured base URL, or on
// a non-timeout failure of the external request, it falls back to the
// in-process liveness check. A timeout is only logged: the server may be
// slow but the request itself already produced the traffic we need.
func (p *Prober) Ping(ctx context.Context) {
	if p.baseURL == "" {
		p.runFallback(ctx)
		return
	}

	healthURL := fmt.Sprintf("%s/health", p.baseURL)
	p.logger.WithField("url", healthURL).Debug("Running keep-alive ping")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to build keep-alive request")
		p.runFallback(ctx)
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			p.logger.WithError(err).Warn("Keep-alive ping timed out")
			return
		}
		p.logger.WithError(err).Warn("Keep-alive ping failed, falling back to internal check")
		p.runFallback(ctx)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		p.logger.Debug("Keep-alive ping successful")
	} else {
		p.logger.WithField("status", resp.StatusCode).Warn("Keep-alive ping returned non-OK status")
	}
}

func (p *Prober) runFallback(ctx context.Context) {
	if p.fallback == nil {
		return
	}
	if err := p.fallback(ctx); err != nil {
		p.logger.WithError(err).Warn("Internal liveness check failed")
		return
	}
	p.logger.Debug("Internal liveness check successful")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
