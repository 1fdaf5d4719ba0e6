package health

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPingHitsExternalEndpoint(t *testing.T) {
	var hits atomic.Int32
	var fallbackCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(srv.URL, srv.Client(), func(context.Context) error {
		fallbackCalls.Add(1)
		return nil
	}, discardLogger())

	p.Ping(context.Background())

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, int32(0), fallbackCalls.Load(), "fallback must not run when the external probe succeeds")
}

func TestPingWithoutBaseURLUsesFallback(t *testing.T) {
	var fallbackCalls atomic.Int32
	p := NewProber("", http.DefaultClient, func(context.Context) error {
		fallbackCalls.Add(1)
		return nil
	}, discardLogger())

	p.Ping(context.Background())

	assert.Equal(t, int32(1), fallbackCalls.Load())
}

func TestPingFallsBackOnConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	var fallbackCalls atomic.Int32
	p := NewProber(srv.URL, http.DefaultClient, func(context.Context) error {
		fallbackCalls.Add(1)
		return nil
	}, discardLogger())

	p.Ping(context.Background())

	assert.Equal(t, int32(1), fallbackCalls.Load())
}

func TestPingNonOKStatusDoesNotFallBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var fallbackCalls atomic.Int32
	p := NewProber(srv.URL, srv.Client(), func(context.Context) error {
		fallbackCalls.Add(1)
		return nil
	}, discardLogger())

	p.Ping(context.Background())

	// A reachable but unhealthy endpoint still generated external traffic.
	assert.Equal(t, int32(0), fallbackCalls.Load())
}

func TestPingNilFallback(t *testing.T) {
	p := NewProber("", http.DefaultClient, nil, discardLogger())
	assert.NotPanics(t, func() { p.Ping(context.Background()) })
}
