package api

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is the request header carrying the status API key.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey wraps next so that requests must carry key in APIKeyHeader.
//
// An empty key disables the check. A missing or wrong key answers 401.
func RequireAPIKey(key string, next http.Handler) http.Handler {
	if key == "" {
		return next
	}
	want := []byte(key)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(APIKeyHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			jsonErr(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
