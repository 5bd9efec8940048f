package goOIDC

import (
	"errors"
	"strings"
	"time"
)

// Config holds every tunable of an Engine. Start from DefaultConfig and
// override fields; Build validates the result.
type Config struct {
	// APIServer is the identity provider origin used by the default transport.
	// See transport.ResolveAPIServer for deriving it from rendezvous settings.
	APIServer string

	Polling PollingConfig
	HTTP    HTTPConfig
	Store   StoreConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Logging LoggingConfig
}

/*
====================================
POLLING CONFIG
====================================
*/

// PollingConfig controls the wait for the user's approval. Timeout is measured
// from the first poll, not from the authorization request.
type PollingConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig configures the default transport. Timeout bounds one provider
// call; it does not count against the polling budget.
type HTTPConfig struct {
	Timeout          time.Duration
	MaxResponseBytes int64
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig names the settings-store keys written when a login is remembered.
type StoreConfig struct {
	AccessTokenKey string
	UserInfoKey    string
	WriteTimeout   time.Duration
}

/*
====================================
AUDIT / METRICS / LOGGING
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LoggingConfig is used only when no logger is passed to the Builder.
// Env is "dev" (console) or "prod" (JSON).
type LoggingConfig struct {
	Enabled     bool
	Env         string
	Level       string
	ServiceName string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the settings used when WithConfig is not called:
// one poll per second for up to three minutes.
func DefaultConfig() Config {
	return Config{
		Polling: PollingConfig{
			Interval: time.Second,
			Timeout:  180 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:          10 * time.Second,
			MaxResponseBytes: 1 << 20,
		},
		Store: StoreConfig{
			AccessTokenKey: "access_token",
			UserInfoKey:    "user_info",
			WriteTimeout:   5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Env:     "prod",
			Level:   "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.APIServer = strings.TrimRight(strings.TrimSpace(cfg.APIServer), "/")
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Polling.Interval <= 0 {
		return errors.New("Polling Interval must be > 0")
	}
	if c.Polling.Timeout <= 0 {
		return errors.New("Polling Timeout must be > 0")
	}
	if c.Polling.Interval > c.Polling.Timeout {
		return errors.New("Polling Interval must not exceed Polling Timeout")
	}

	if c.HTTP.Timeout <= 0 {
		return errors.New("HTTP Timeout must be > 0")
	}
	if c.HTTP.MaxResponseBytes <= 0 {
		return errors.New("HTTP MaxResponseBytes must be > 0")
	}

	if strings.TrimSpace(c.Store.AccessTokenKey) == "" {
		return errors.New("Store AccessTokenKey must not be empty")
	}
	if strings.TrimSpace(c.Store.UserInfoKey) == "" {
		return errors.New("Store UserInfoKey must not be empty")
	}
	if c.Store.AccessTokenKey == c.Store.UserInfoKey {
		return errors.New("Store AccessTokenKey and UserInfoKey must differ")
	}
	if c.Store.WriteTimeout <= 0 {
		return errors.New("Store WriteTimeout must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	if c.Logging.Enabled {
		switch strings.ToLower(c.Logging.Env) {
		case "dev", "prod":
		default:
			return errors.New("Logging Env must be dev or prod")
		}
	}

	return nil
}
