package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDailyCheckTime    = "00:00"
	defaultKeepAliveInterval = 14 * time.Minute
	defaultVAPIDSubject      = "mailto:admin@gymsetu.com"
	defaultListenAddr        = ":8080"
)

// AppConfig holds all configuration for the service.
type AppConfig struct {
	DatabaseURL string

	// DailyCheckHour/Minute come from DAILY_CHECK_TIME ("HH:MM", UTC) and
	// pick when the once-a-day expiration check fires.
	DailyCheckHour    int
	DailyCheckMinute  int
	KeepAliveInterval time.Duration

	// VAPID credentials for signing outbound web pushes. Both keys empty is
	// a legal configuration: dispatch degrades to a logged no-op.
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// ExternalBaseURL is the address the keep-alive prober pings to keep
	// the hosting platform from idling the process. Optional.
	ExternalBaseURL string

	ListenAddr  string
	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	checkTime := os.Getenv("DAILY_CHECK_TIME")
	if checkTime == "" {
		checkTime = defaultDailyCheckTime
	}
	cfg.DailyCheckHour, cfg.DailyCheckMinute, err = parseCheckTime(checkTime)
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_CHECK_TIME: %w", err)
	}

	cfg.KeepAliveInterval = defaultKeepAliveInterval

	cfg.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.VAPIDSubject = os.Getenv("VAPID_SUBJECT")
	if cfg.VAPIDSubject == "" {
		cfg.VAPIDSubject = defaultVAPIDSubject
	}

	// Render exposes the public URL of the service as RENDER_EXTERNAL_URL;
	// SERVER_URL is the generic fallback for other hosts.
	cfg.ExternalBaseURL = os.Getenv("RENDER_EXTERNAL_URL")
	if cfg.ExternalBaseURL == "" {
		cfg.ExternalBaseURL = os.Getenv("SERVER_URL")
	}
	cfg.ExternalBaseURL = strings.TrimRight(cfg.ExternalBaseURL, "/")

	cfg.ListenAddr = os.Getenv("LISTEN_ADDR")
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	return cfg, nil
}

// PushConfigured reports whether outbound push delivery has the signing key
// pair it needs.
func (c *AppConfig) PushConfigured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func parseCheckTime(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad hour in %q: %w", value, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minute in %q: %w", value, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %q out of range", value)
	}
	return hour, minute, nil
}
