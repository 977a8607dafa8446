package middleware

import (
	"net/http"

	"github.com/playvault/backend/internal/auth"
)

const OperatorKeyHeader = "X-Fulfillment-Key"

// RequireOperatorKey guards fulfillment routes with a bcrypt-hashed shared key.
// An empty hash locks the routes entirely.
func RequireOperatorKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.VerifyKey(keyHash, r.Header.Get(OperatorKeyHeader)) {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
