package goOIDC

import (
	"testing"
	"time"

	"github.com/MrEthical07/goOIDC/identity"
)

func TestFlowStateRejectsWritesFromStaleFlow(t *testing.T) {
	s := newFlowState()
	s.reset("old")
	s.reset("new")

	if s.setWaiting("old", identity.AuthorizationHandle{Code: "c", URL: "https://idp/old"}) {
		t.Fatal("stale setWaiting accepted")
	}
	if s.setPhase("old", PhaseWaiting, "boom") {
		t.Fatal("stale setPhase accepted")
	}
	if s.setLoggedIn("old", identity.AuthBody{AccessToken: "tok"}) {
		t.Fatal("stale setLoggedIn accepted")
	}
	if !s.keepPolling("new") || s.keepPolling("old") {
		t.Fatal("keepPolling must only hold for the current flow")
	}

	snap := s.snapshot()
	if snap.FlowID != "new" || snap.StateMessage != PhaseRequesting || snap.FailureMessage != "" ||
		snap.AuthorizationURL != nil || snap.Result != nil {
		t.Fatalf("stale writes leaked into snapshot: %+v", snap)
	}
}

func TestFlowStateResultOnlyWhenLoggedIn(t *testing.T) {
	s := newFlowState()
	s.reset("f")

	s.setWaiting("f", identity.AuthorizationHandle{Code: "c", URL: "https://idp/x"})
	if snap := s.snapshot(); snap.Result != nil || snap.StateMessage != PhaseWaiting {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	s.setLoggedIn("f", identity.AuthBody{AccessToken: "tok", TokenType: "bearer"})
	snap := s.snapshot()
	if snap.StateMessage != PhaseLoggedIn || snap.Result == nil || snap.Result.AccessToken != "tok" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if s.keepPolling("f") {
		t.Fatal("a logged-in flow must stop polling")
	}

	s.reset("g")
	if snap := s.snapshot(); snap.Result != nil || snap.AuthorizationURL != nil {
		t.Fatalf("reset must clear result and url, got %+v", snap)
	}
}

func TestFlowStateFailUnlessLoggedIn(t *testing.T) {
	s := newFlowState()
	s.reset("f")
	s.setWaiting("f", identity.AuthorizationHandle{Code: "c", URL: "https://idp/x"})

	if !s.failUnlessLoggedIn("f", "internal error") {
		t.Fatal("failure rejected for a waiting flow")
	}
	if snap := s.snapshot(); snap.StateMessage != PhaseWaiting || snap.FailureMessage != "internal error" {
		t.Fatalf("expected waiting phase with failure, got %+v", snap)
	}

	s.reset("g")
	s.setLoggedIn("g", identity.AuthBody{AccessToken: "tok"})
	if s.failUnlessLoggedIn("g", "internal error") {
		t.Fatal("failure accepted for a logged-in flow")
	}
	if s.failUnlessLoggedIn("f", "internal error") {
		t.Fatal("failure accepted for a stale flow")
	}
	snap := s.snapshot()
	if !snap.LoggedIn() || snap.Failed() || snap.FailureMessage != "" {
		t.Fatalf("logged-in snapshot gained a failure: %+v", snap)
	}
}

func TestFlowStateFailureStopsPolling(t *testing.T) {
	s := newFlowState()
	s.reset("f")

	s.setPhase("f", PhaseWaiting, "")
	if !s.keepPolling("f") {
		t.Fatal("an empty failure must not stop polling")
	}
	s.setPhase("f", PhaseWaiting, "timeout")
	if s.keepPolling("f") {
		t.Fatal("a failure must stop polling")
	}
}

func TestFlowStateSnapshotIsACopy(t *testing.T) {
	s := newFlowState()
	s.reset("f")
	email := "a@example.com"
	s.setWaiting("f", identity.AuthorizationHandle{Code: "c", URL: "https://idp/x"})
	s.setLoggedIn("f", identity.AuthBody{AccessToken: "tok", User: identity.UserRecord{Name: "a", Email: &email}})
	email = "mutated"

	snap := s.snapshot()
	*snap.AuthorizationURL = "https://evil/"
	snap.Result.AccessToken = "changed"
	*snap.Result.User.Email = "changed"

	again := s.snapshot()
	if *again.AuthorizationURL != "https://idp/x" || again.Result.AccessToken != "tok" || *again.Result.User.Email != "a@example.com" {
		t.Fatalf("snapshot aliases state: %+v", again)
	}
}

func TestFlowStateRequestCancel(t *testing.T) {
	s := newFlowState()
	s.requestCancel()

	cancel := s.reset("f")
	select {
	case <-cancel:
		t.Fatal("a fresh flow must not start cancelled")
	default:
	}

	s.requestCancel()
	s.requestCancel()

	select {
	case <-cancel:
	case <-time.After(time.Second):
		t.Fatal("requestCancel did not close the cancel channel")
	}
	if s.keepPolling("f") {
		t.Fatal("requestCancel must stop polling")
	}

	next := s.reset("g")
	select {
	case <-next:
		t.Fatal("reset must re-arm cancellation")
	default:
	}
}
