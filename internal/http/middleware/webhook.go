package middleware

import (
	"crypto/subtle"
	"net/http"
)

// WebhookSecret authenticates pipeline callbacks by shared secret. The
// response on mismatch is deliberately generic: callers learn nothing about
// whether the target meeting exists.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	expected := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("X-Webhook-Secret"))
			if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				http.Error(w, "forbidden request", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
