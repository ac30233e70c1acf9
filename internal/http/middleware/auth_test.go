package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/internal/domain/mocks"
	"github.com/Notifuse/mailblocks/internal/service"
)

func TestRequireAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	authService := mocks.NewMockAuthService(ctrl)
	authConfig := NewAuthMiddleware(authService)

	var seen *domain.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = domain.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := authConfig.RequireAuth()(next)

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("missing authorization header", func(t *testing.T) {
		w := serve("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Authorization header is required")
	})

	t.Run("invalid authorization header format", func(t *testing.T) {
		w := serve("Token abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid authorization header format")
	})

	t.Run("invalid token", func(t *testing.T) {
		authService.EXPECT().VerifyToken("bad").Return(nil, fmt.Errorf("%w: signature is invalid", domain.ErrUnauthorized))
		w := serve("Bearer bad")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid token")
	})

	t.Run("expired token", func(t *testing.T) {
		authService.EXPECT().VerifyToken("old").Return(nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, service.ErrSessionExpired))
		w := serve("Bearer old")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Session expired")
	})

	t.Run("unexpected error", func(t *testing.T) {
		authService.EXPECT().VerifyToken("tok").Return(nil, fmt.Errorf("boom"))
		w := serve("Bearer tok")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		user := &domain.User{ID: "user-1", Email: "user@example.com"}
		authService.EXPECT().VerifyToken("good").Return(user, nil)
		w := serve("Bearer good")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, user, seen)
	})
}
