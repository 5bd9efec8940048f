package middleware

import (
	"context"
	"net/http"
	"strings"

	goOIDC "github.com/MrEthical07/goOIDC"
	"github.com/MrEthical07/goOIDC/identity"
)

// StatusSource is the part of the engine the guards read.
type StatusSource interface {
	Status() goOIDC.FlowStatus
}

type authBodyContextKey struct{}

// AuthBodyFromContext returns the login result injected by a guard.
func AuthBodyFromContext(ctx context.Context) (*identity.AuthBody, bool) {
	body, ok := ctx.Value(authBodyContextKey{}).(*identity.AuthBody)
	return body, ok
}

// Guard rejects requests until the current flow has logged in. The login
// result is injected into the request context.
func Guard(source StatusSource) func(http.Handler) http.Handler {
	return guard(source, false)
}

func guard(source StatusSource, requireToken bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			status := source.Status()
			if !status.LoggedIn() || status.Result == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if requireToken {
				token, ok := bearerToken(r.Header.Get("Authorization"))
				if !ok || !tokensEqual(token, status.Result.AccessToken) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}

			ctx := context.WithValue(r.Context(), authBodyContextKey{}, status.Result)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
