package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/penline/penline/internal/domain/user"
	"github.com/penline/penline/internal/utils"
)

type Handler struct {
	authService AuthService
	users       UserLookup
}

func NewHandler(s AuthService, users UserLookup) *Handler {
	return &Handler{authService: s, users: users}
}

// Login handles POST /auth/login
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, apiMissingCredentials)
	}

	res, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return utils.ErrorResponse(c, ToAPIError(err))
	}

	return utils.SuccessResponse(c, res, "Login successful")
}

// Logout handles POST /auth/logout. Success has an empty body.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), c.Get(fiber.HeaderAuthorization)); err != nil {
		return utils.ErrorResponse(c, ToAPIError(err))
	}
	return utils.EmptyResponse(c, fiber.StatusOK)
}

// Register handles POST /auth/register
func (h *Handler) Register(c *fiber.Ctx) error {
	var req user.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest.WithMessage("Invalid request body"))
	}

	res, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		return utils.ErrorResponse(c, ToAPIError(err))
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user": res,
	}, "User registered successfully", fiber.StatusCreated)
}

// Me handles GET /users/me
func (h *Handler) Me(c *fiber.Ctx) error {
	principal := PrincipalFrom(c)
	if principal == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	u, err := h.users.GetByID(c.UserContext(), principal.UserID)
	if err != nil {
		return utils.ErrorResponse(c, ToAPIError(err))
	}

	return utils.SuccessResponse(c, u.ToResponse(), "Current user")
}
