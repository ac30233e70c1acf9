package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination mocks/mock_auth_service.go -package mocks github.com/Notifuse/mailblocks/internal/domain AuthService

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	UserKey   contextKey = "user"
)

// User is the authenticated caller, as carried by the bearer token
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// WithUser returns a context carrying the authenticated user
func WithUser(ctx context.Context, user *User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	return context.WithValue(ctx, UserKey, user)
}

// UserFromContext returns the user stored by WithUser
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(UserKey).(*User)
	return user, ok && user != nil
}

type AuthResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService interface {
	// VerifyToken parses and validates a bearer token
	VerifyToken(token string) (*User, error)
	// IssueToken signs a token for user
	IssueToken(user *User) (*AuthResponse, error)
	// AuthenticateUser returns the user stored in ctx by the auth middleware
	AuthenticateUser(ctx context.Context) (*User, error)
}
