package middleware

import (
	"crypto/subtle"
	"net/http"
)

// RequireToken is Guard plus a bearer check: the request must carry the
// access token of the current login.
func RequireToken(source StatusSource) func(http.Handler) http.Handler {
	return guard(source, true)
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
