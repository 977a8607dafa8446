package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/playvault/backend/internal/models"
)

// UserEnsurer records the session owner so every authenticated request has a user row.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, u models.UpsertUser) error
}

// Middleware authenticates the Bearer token and stores the user id on the
// request context. Expired tokens get a distinct message so clients re-authenticate.
func Middleware(secret []byte, users UserEnsurer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			id, err := ParseToken(secret, tokenStr)
			if errors.Is(err, ErrSessionExpired) {
				writeError(w, http.StatusUnauthorized, "Session expired")
				return
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			if users != nil {
				if err := users.EnsureUser(r.Context(), id.Upsert()); err != nil {
					log.Printf("[auth] ensure user %s: %v", id.UserID, err)
					writeError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id.UserID)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Message: message})
}
