package logger

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHonorsLevel(t *testing.T) {
	for _, env := range []string{"dev", "prod"} {
		l := New(Config{Env: env, Level: "warn", ServiceName: "oidc"})
		if l == nil {
			t.Fatalf("New(%s) returned nil", env)
		}
		if l.Core().Enabled(zapcore.InfoLevel) {
			t.Fatalf("%s logger should not log info at warn level", env)
		}
		if !l.Core().Enabled(zapcore.WarnLevel) {
			t.Fatalf("%s logger should log warn", env)
		}
	}
}

func TestFieldKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	l.Info("flow",
		FlowID("f-1"),
		Op("github"),
		DeviceID("123"),
		Phase("Waiting..."),
		Attempt(3),
		Duration(time.Second),
		Err(errors.New("boom")),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	for key, want := range map[string]any{
		"flow_id":   "f-1",
		"op":        "github",
		"device_id": "123",
		"phase":     "Waiting...",
		"attempt":   int64(3),
		"duration":  time.Second,
		"error":     "boom",
	} {
		if got := ctx[key]; got != want {
			t.Fatalf("field %s = %#v, want %#v", key, got, want)
		}
	}
}
