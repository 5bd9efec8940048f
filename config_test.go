package goOIDC

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Polling.Interval != time.Second || cfg.Polling.Timeout != 180*time.Second {
		t.Fatalf("unexpected polling defaults %+v", cfg.Polling)
	}
	if cfg.Store.AccessTokenKey != "access_token" || cfg.Store.UserInfoKey != "user_info" {
		t.Fatalf("unexpected store keys %+v", cfg.Store)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero interval", mutate: func(c *Config) { c.Polling.Interval = 0 }},
		{name: "zero timeout", mutate: func(c *Config) { c.Polling.Timeout = 0 }},
		{name: "interval above timeout", mutate: func(c *Config) { c.Polling.Interval = 2 * c.Polling.Timeout }},
		{name: "zero http timeout", mutate: func(c *Config) { c.HTTP.Timeout = 0 }},
		{name: "zero body cap", mutate: func(c *Config) { c.HTTP.MaxResponseBytes = 0 }},
		{name: "empty token key", mutate: func(c *Config) { c.Store.AccessTokenKey = " " }},
		{name: "empty user key", mutate: func(c *Config) { c.Store.UserInfoKey = "" }},
		{name: "same keys", mutate: func(c *Config) { c.Store.UserInfoKey = c.Store.AccessTokenKey }},
		{name: "zero write timeout", mutate: func(c *Config) { c.Store.WriteTimeout = 0 }},
		{name: "audit without buffer", mutate: func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }},
		{name: "histograms without metrics", mutate: func(c *Config) { c.Metrics.Enabled = false }},
		{name: "unknown log env", mutate: func(c *Config) { c.Logging.Enabled = true; c.Logging.Env = "staging" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigNormalizesAPIServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIServer = "  https://api.example.com/  "
	if got := cloneConfig(cfg).APIServer; got != "https://api.example.com" {
		t.Fatalf("unexpected api server %q", got)
	}
}
