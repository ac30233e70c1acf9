package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/pkg/logger"
)

var (
	ErrSessionExpired = errors.New("session expired")
	ErrUserNotFound   = errors.New("user not found")
)

// TokenClaims is the JWT payload carried by bearer tokens
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	logger   logger.Logger
	clock    func() time.Time
}

type AuthServiceConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TokenTTL time.Duration
	Logger   logger.Logger
	// Clock defaults to time.Now
	Clock func() time.Time
}

func NewAuthService(cfg AuthServiceConfig) (*AuthService, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("auth service: signing secret is required")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, fmt.Errorf("auth service: issuer is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("auth service: token ttl must be positive")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &AuthService{
		secret:   append([]byte(nil), cfg.Secret...),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TokenTTL,
		logger:   cfg.Logger,
		clock:    clock,
	}, nil
}

// IssueToken signs an HS256 token for user
func (s *AuthService) IssueToken(user *domain.User) (*domain.AuthResponse, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("failed to issue token: user id is required")
	}

	now := s.clock().UTC()
	expiresAt := now.Add(s.ttl)
	claims := TokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.AuthResponse{
		Token:     signed,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyToken validates signature, issuer, audience and expiry
func (s *AuthService) VerifyToken(token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.clock),
		jwt.WithExpirationRequired(),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, ErrSessionExpired)
		}
		if s.logger != nil {
			s.logger.WithField("error", err.Error()).Debug("Rejected bearer token")
		}
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	return &domain.User{ID: claims.Subject, Email: claims.Email}, nil
}

// AuthenticateUser returns the user stored in ctx by the auth middleware
func (s *AuthService) AuthenticateUser(ctx context.Context) (*domain.User, error) {
	user, ok := domain.UserFromContext(ctx)
	if !ok || user.ID == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, ErrUserNotFound)
	}
	return user, nil
}
