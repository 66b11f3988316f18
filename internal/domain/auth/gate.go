package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/penline/penline/internal/domain/session"
	"github.com/penline/penline/internal/domain/user"
	"github.com/penline/penline/internal/metrics"
)

const bearerPrefix = "Bearer "

// UserLookup is the part of the user service the gate needs
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Gate decides, once per request, whether a bearer token identifies a user with a live session
type Gate struct {
	users    UserLookup
	sessions session.Repository
	codec    *TokenCodec
	now      func() time.Time
}

// NewGate creates a new authentication gate
func NewGate(users UserLookup, sessions session.Repository, codec *TokenCodec) *Gate {
	return &Gate{users: users, sessions: sessions, codec: codec, now: time.Now}
}

// Authenticate runs the ordered checks against an Authorization header value.
// It returns (nil, nil) for anonymous requests: no bearer header, or a token that is
// malformed or carries a bad signature. Every other failure is a terminal error.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (*Principal, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		metrics.GateDecisions.WithLabelValues(metrics.GateAnonymous).Inc()
		return nil, nil
	}

	claims, err := g.codec.Parse(token)
	if err != nil {
		kind, _ := ParseErrorKindOf(err)
		if kind == ParseExpired {
			metrics.GateDecisions.WithLabelValues(metrics.GateExpired).Inc()
			return nil, ErrTokenExpired
		}
		metrics.GateDecisions.WithLabelValues(metrics.GateFallback).Inc()
		slog.Debug("Ignoring unusable bearer token", "reason", kind.String())
		return nil, nil
	}

	u, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil && !errors.Is(err, user.ErrUserNotFound) {
		metrics.GateDecisions.WithLabelValues(metrics.GateStoreFailed).Inc()
		return nil, err
	}
	if u == nil || u.IsBanned() {
		if err := g.sessions.DeleteByUserID(ctx, claims.UserID); err != nil {
			slog.Warn("Failed to delete session of banned user", "user_id", claims.UserID, "error", err)
		}
		metrics.GateDecisions.WithLabelValues(metrics.GateBanned).Inc()
		slog.Info("Rejected request from banned user", "user_id", claims.UserID)
		return nil, ErrBanned
	}

	sess, err := g.sessions.FindByUserID(ctx, claims.UserID)
	if err != nil {
		metrics.GateDecisions.WithLabelValues(metrics.GateStoreFailed).Inc()
		return nil, err
	}
	if sess == nil {
		metrics.GateDecisions.WithLabelValues(metrics.GateNoSession).Inc()
		slog.Debug("Rejected token without session", "user_id", claims.UserID)
		return nil, ErrSessionNotFound
	}

	if sess.Expired(g.now()) {
		if err := g.sessions.DeleteByUserID(ctx, claims.UserID); err != nil {
			slog.Warn("Failed to delete expired session", "user_id", claims.UserID, "error", err)
		}
		metrics.GateDecisions.WithLabelValues(metrics.GateSessionOld).Inc()
		slog.Debug("Rejected token with expired session", "user_id", claims.UserID)
		return nil, ErrSessionExpired
	}

	if subtle.ConstantTimeCompare([]byte(Fingerprint(claims.IssuanceID)), []byte(sess.Fingerprint)) != 1 {
		metrics.GateDecisions.WithLabelValues(metrics.GateSuperseded).Inc()
		slog.Debug("Rejected superseded token", "user_id", claims.UserID)
		return nil, ErrSessionSuperseded
	}

	metrics.GateDecisions.WithLabelValues(metrics.GateAuthorized).Inc()
	return &Principal{
		UserID:     u.ID,
		Username:   u.Username,
		Role:       u.Role,
		IssuanceID: claims.IssuanceID,
	}, nil
}

// bearerToken extracts the token from "Bearer <token>". Any other scheme counts as no header.
func bearerToken(authorization string) (string, bool) {
	authorization = strings.TrimSpace(authorization)
	if len(authorization) < len(bearerPrefix) || !strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(authorization[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
