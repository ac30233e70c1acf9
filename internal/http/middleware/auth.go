package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/internal/service"
)

// AuthConfig holds the configuration for the auth middleware
type AuthConfig struct {
	AuthService domain.AuthService
}

// NewAuthMiddleware creates a new auth middleware verifying tokens with authService
func NewAuthMiddleware(authService domain.AuthService) *AuthConfig {
	return &AuthConfig{
		AuthService: authService,
	}
}

// RequireAuth creates a middleware that verifies the bearer token and stores
// the caller in the request context
func (ac *AuthConfig) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				writeError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			user, err := ac.AuthService.VerifyToken(parts[1])
			if err != nil {
				switch {
				case errors.Is(err, service.ErrSessionExpired):
					writeError(w, "Session expired", http.StatusUnauthorized)
				case errors.Is(err, domain.ErrUnauthorized):
					writeError(w, "Invalid token", http.StatusUnauthorized)
				default:
					writeError(w, "Internal server error", http.StatusInternalServerError)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithUser(r.Context(), user)))
		})
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
