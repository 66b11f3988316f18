package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/penline/penline/internal/domain/user"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the response from a successful login
type LoginResponse struct {
	Token string             `json:"token"`
	User  *user.UserResponse `json:"user"`
	Role  user.Role          `json:"role"`
}

// Principal is the authenticated identity the gate attaches to a request
type Principal struct {
	UserID     uuid.UUID
	Username   string
	Role       user.Role
	IssuanceID string
}

// Can reports whether the principal's role grants c
func (p *Principal) Can(c user.Capability) bool {
	return p != nil && p.Role.Can(c)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached to ctx, or nil for anonymous requests
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
