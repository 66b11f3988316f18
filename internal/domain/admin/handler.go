package admin

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/penline/penline/internal/domain/auth"
	"github.com/penline/penline/internal/domain/user"
	"github.com/penline/penline/internal/utils"
)

// Revoker deletes a user's session
type Revoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

// StatusRequest is the body of PATCH /admin/users/:id/status
type StatusRequest struct {
	Status string `json:"status"`
}

// RoleRequest is the body of PATCH /admin/users/:id/role
type RoleRequest struct {
	Role string `json:"role"`
}

// Handler serves user moderation endpoints. Every route expects RequireCapability(CapManageUsers) in front.
type Handler struct {
	users   user.Service
	revoker Revoker
}

// NewHandler creates a new admin handler
func NewHandler(users user.Service, revoker Revoker) *Handler {
	return &Handler{users: users, revoker: revoker}
}

// ListUsers handles GET /admin/users. The caller is left out of the list.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if principal == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	users, err := h.users.ListExcept(c.UserContext(), principal.UserID)
	if err != nil {
		return utils.ErrorResponse(c, auth.ToAPIError(err))
	}

	res := make([]*user.UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, u.ToResponse())
	}

	return utils.SuccessResponse(c, res, "Users retrieved")
}

// GetUser handles GET /admin/users/:id
func (h *Handler) GetUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest.WithMessage("Invalid user id"))
	}

	u, err := h.users.GetByID(c.UserContext(), id)
	if err != nil {
		return utils.ErrorResponse(c, auth.ToAPIError(err))
	}

	return utils.SuccessResponse(c, u.ToResponse(), "User retrieved")
}

// UpdateStatus handles PATCH /admin/users/:id/status.
// A ban only flips the status; the gate rejects the user's next request and removes the session.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if principal == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest.WithMessage("Invalid user id"))
	}

	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest.WithMessage("Invalid request body"))
	}

	status, err := user.ParseStatus(req.Status)
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest.WithMessage("Invalid status (use: active | banned)"))
	}

	u, err := h.users.SetStatus(c.UserContext(), principal.UserID, id, status)
	if err != nil {
		return utils.ErrorResponse(c, auth.ToAPIError(err))
	}

	slog.Info("User status changed", "admin_id", principal.UserID, "user_id", u.ID, "status", u.Status)
	return utils.SuccessResponse(c, u.ToResponse(), "Status updated")
}

// UpdateRole handles PATCH /admin/users/:id/role
func (h *Handler) UpdateRole(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if principal == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest.WithMessage("Invalid user id"))
	}

	var req RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest.WithMessage("Invalid request body"))
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest.WithMessage("Invalid role (use: USER | ADMIN)"))
	}

	u, err := h.users.SetRole(c.UserContext(), principal.UserID, id, role)
	if err != nil {
		return utils.ErrorResponse(c, auth.ToAPIError(err))
	}

	slog.Info("User role changed", "admin_id", principal.UserID, "user_id", u.ID, "role", u.Role)
	return utils.SuccessResponse(c, u.ToResponse(), "Role updated")
}

// RevokeSession handles DELETE /admin/users/:id/session
func (h *Handler) RevokeSession(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if principal == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest.WithMessage("Invalid user id"))
	}

	if _, err := h.users.GetByID(c.UserContext(), id); err != nil {
		return utils.ErrorResponse(c, auth.ToAPIError(err))
	}

	if err := h.revoker.RevokeUser(c.UserContext(), id); err != nil {
		return utils.ErrorResponse(c, auth.ToAPIError(err))
	}

	slog.Info("Session revoked by admin", "admin_id", principal.UserID, "user_id", id)
	return utils.EmptyResponse(c, fiber.StatusNoContent)
}
