package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	goOIDC "github.com/MrEthical07/goOIDC"
	"github.com/MrEthical07/goOIDC/identity"
	"github.com/MrEthical07/goOIDC/transport"
	"github.com/spf13/cobra"
)

type stubTransport struct {
	authErr string
	pending bool
}

func (s *stubTransport) RequestAuth(context.Context, string, string, string) (transport.Response[identity.AuthorizationHandle], error) {
	if s.authErr != "" {
		return transport.Response[identity.AuthorizationHandle]{Kind: transport.KindError, Error: s.authErr}, nil
	}
	return transport.Response[identity.AuthorizationHandle]{
		Kind: transport.KindData,
		Data: &identity.AuthorizationHandle{Code: "abc", URL: "https://idp.example.com/authorize"},
	}, nil
}

func (s *stubTransport) QueryAuth(ctx context.Context, _, _, _ string) (transport.Response[identity.AuthBody], error) {
	if s.pending {
		return transport.Response[identity.AuthBody]{Kind: transport.KindError, Error: transport.PendingAuthorizationText}, nil
	}
	return transport.Response[identity.AuthBody]{
		Kind: transport.KindData,
		Data: &identity.AuthBody{
			AccessToken: "tok",
			TokenType:   "bearer",
			User:        identity.UserRecord{Name: "alice", Status: identity.StatusNormal},
		},
	}, nil
}

func newWatchEngine(t *testing.T, tr goOIDC.Transport) *goOIDC.Engine {
	t.Helper()
	cfg := goOIDC.DefaultConfig()
	cfg.Polling.Interval = time.Millisecond
	cfg.Polling.Timeout = 5 * time.Second
	e, err := goOIDC.New().WithConfig(cfg).WithTransport(tr).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func watchCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func TestWatchReportsImmediateSuccess(t *testing.T) {
	for i := 0; i < 50; i++ {
		e := newWatchEngine(t, &stubTransport{})
		cmd, out := watchCommand()

		if err := e.StartFlow("github", "1", "u", false); err != nil {
			t.Fatalf("StartFlow failed: %v", err)
		}
		if err := watch(context.Background(), e, cmd); err != nil {
			t.Fatalf("run %d: watch returned %v", i, err)
		}
		if !strings.Contains(out.String(), "Logged in as alice") {
			t.Fatalf("run %d: unexpected output %q", i, out.String())
		}
	}
}

func TestWatchReportsProviderFailure(t *testing.T) {
	e := newWatchEngine(t, &stubTransport{authErr: "rate limited"})
	cmd, _ := watchCommand()

	if err := e.StartFlow("github", "1", "u", false); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	err := watch(context.Background(), e, cmd)
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected provider failure, got %v", err)
	}
}

func TestWatchCancelsOnInterrupt(t *testing.T) {
	e := newWatchEngine(t, &stubTransport{pending: true})
	cmd, out := watchCommand()

	if err := e.StartFlow("github", "1", "u", false); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := watch(ctx, e, cmd)
	if err == nil || err.Error() != "login cancelled" {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if e.Running() {
		t.Fatal("flow task still running after cancel")
	}
	if !strings.Contains(out.String(), "https://idp.example.com/authorize") {
		t.Fatalf("authorization URL not printed: %q", out.String())
	}
}
