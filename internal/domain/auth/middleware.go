package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/penline/penline/internal/domain/user"
	"github.com/penline/penline/internal/utils"
)

const (
	// PrincipalKey is the key used to store the principal in Fiber context
	PrincipalKey = "principal"
)

// Middleware runs the gate on every request. Anonymous requests continue without a principal;
// rejected ones end here with 401 or 403.
func Middleware(gate *Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := gate.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return utils.ErrorResponse(c, ToAPIError(err))
		}

		if principal != nil {
			c.Locals(PrincipalKey, principal)
			c.SetUserContext(WithPrincipal(c.UserContext(), principal))
		}

		return c.Next()
	}
}

// PrincipalFrom extracts the principal from Fiber context, or nil for anonymous requests
func PrincipalFrom(c *fiber.Ctx) *Principal {
	principal, ok := c.Locals(PrincipalKey).(*Principal)
	if !ok {
		return nil
	}
	return principal
}

// RequireAuthenticated rejects anonymous requests with 401
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if PrincipalFrom(c) == nil {
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}
		return c.Next()
	}
}

// RequireCapability rejects anonymous requests with 401 and principals lacking capability with 403
func RequireCapability(capability user.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := PrincipalFrom(c)
		if principal == nil {
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}
		if !principal.Can(capability) {
			return utils.ErrorResponse(c, utils.ErrForbidden)
		}
		return c.Next()
	}
}
