package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	goOIDC "github.com/MrEthical07/goOIDC"
	"github.com/MrEthical07/goOIDC/identity"
)

type fixedStatus goOIDC.FlowStatus

func (f fixedStatus) Status() goOIDC.FlowStatus { return goOIDC.FlowStatus(f) }

func loggedIn(token string) fixedStatus {
	return fixedStatus{
		FlowID:       "f",
		StateMessage: goOIDC.PhaseLoggedIn,
		Result: &identity.AuthBody{
			AccessToken: token,
			TokenType:   "bearer",
			User:        identity.UserRecord{Name: "alice", Status: identity.StatusNormal},
		},
	}
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, authz string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var user string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := AuthBodyFromContext(r.Context())
		if !ok {
			t.Fatal("guard did not inject the login result")
		}
		user = body.User.Name
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec, user
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name   string
		source StatusSource
		want   int
	}{
		{name: "nil source", source: nil, want: http.StatusUnauthorized},
		{name: "waiting", source: fixedStatus{StateMessage: goOIDC.PhaseWaiting}, want: http.StatusUnauthorized},
		{name: "failed", source: fixedStatus{StateMessage: goOIDC.PhaseWaiting, FailureMessage: "timeout"}, want: http.StatusUnauthorized},
		{name: "logged in", source: loggedIn("tok"), want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, user := serve(t, Guard(tt.source), "")
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusNoContent && user != "alice" {
				t.Fatalf("expected alice in context, got %q", user)
			}
		})
	}
}

func TestRequireToken(t *testing.T) {
	tests := []struct {
		name  string
		authz string
		want  int
	}{
		{name: "missing header", authz: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", authz: "Basic tok", want: http.StatusUnauthorized},
		{name: "empty token", authz: "Bearer ", want: http.StatusUnauthorized},
		{name: "wrong token", authz: "Bearer other", want: http.StatusUnauthorized},
		{name: "matching token", authz: "Bearer tok", want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serve(t, RequireToken(loggedIn("tok")), tt.authz)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
