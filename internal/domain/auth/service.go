package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/penline/penline/internal/domain/session"
	"github.com/penline/penline/internal/domain/user"
	"github.com/penline/penline/internal/metrics"
)

// AuthService is the interface the HTTP handlers depend on
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	Logout(ctx context.Context, authorization string) error
	Register(ctx context.Context, req user.RegisterRequest) (*user.UserResponse, error)
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

// Service handles authentication operations
type Service struct {
	Users    user.Service
	Sessions session.Repository
	Codec    *TokenCodec
}

// NewService creates a new auth service
func NewService(users user.Service, sessions session.Repository, codec *TokenCodec) *Service {
	return &Service{
		Users:    users,
		Sessions: sessions,
		Codec:    codec,
	}
}

// Login verifies credentials, issues a token and makes it the user's only valid one.
// Banned accounts are refused before the password is checked. Unknown users and wrong passwords
// fail identically and take the same time.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	username = user.NormalizeUsername(username)
	if username == "" || strings.TrimSpace(password) == "" {
		metrics.LoginAttempts.WithLabelValues("missing_credentials").Inc()
		return nil, ErrMissingCredentials
	}

	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			return nil, err
		}
		user.VerifyDummy(password)
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		slog.Info("Login failed", "reason", "unknown user")
		return nil, ErrInvalidCredentials
	}

	if u.IsBanned() {
		metrics.LoginAttempts.WithLabelValues("banned").Inc()
		slog.Info("Login refused for banned user", "user_id", u.ID)
		return nil, ErrAccountBanned
	}

	if !s.Users.VerifyPassword(u, password) {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		slog.Info("Login failed", "reason", "wrong password", "user_id", u.ID)
		return nil, ErrInvalidCredentials
	}

	if err := s.Users.UpgradePassword(ctx, u, password); err != nil {
		slog.Warn("Failed to upgrade legacy password hash", "user_id", u.ID, "error", err)
	}

	issued, err := s.Codec.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.Sessions.Upsert(ctx, u.ID, Fingerprint(issued.IssuanceID), issued.IssuedAt, issued.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	slog.Info("User logged in", "user_id", u.ID)

	return &LoginResponse{
		Token: issued.Token,
		User:  u.ToResponse(),
		Role:  u.Role,
	}, nil
}

// Logout revokes every token of the user the given token belongs to.
// The token must fully verify; an expired token cannot be used to log out.
func (s *Service) Logout(ctx context.Context, authorization string) error {
	token := stripBearer(authorization)
	if token == "" {
		metrics.Logouts.WithLabelValues("token_required").Inc()
		return ErrTokenRequired
	}

	userID, err := s.Codec.ExtractUserID(token)
	if err != nil {
		metrics.Logouts.WithLabelValues("invalid_token").Inc()
		kind, _ := ParseErrorKindOf(err)
		slog.Debug("Logout rejected", "reason", kind.String())
		return ErrInvalidToken
	}

	if err := s.Sessions.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	metrics.Logouts.WithLabelValues("success").Inc()
	slog.Info("User logged out", "user_id", userID)
	return nil
}

// Register creates a new account
func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (*user.UserResponse, error) {
	u, err := s.Users.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Info("User registered", "user_id", u.ID)
	return u.ToResponse(), nil
}

// RevokeUser deletes the user's session so none of their tokens pass the gate again
func (s *Service) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.Sessions.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	slog.Info("Session revoked", "user_id", userID)
	return nil
}

// stripBearer trims an optional "Bearer" scheme from a header value
func stripBearer(authorization string) string {
	token := strings.TrimSpace(authorization)
	scheme := strings.TrimSpace(bearerPrefix)
	if len(token) >= len(scheme) && strings.EqualFold(token[:len(scheme)], scheme) &&
		(len(token) == len(scheme) || token[len(scheme)] == ' ') {
		token = strings.TrimSpace(token[len(scheme):])
	}
	return token
}
