package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/invest-access/internal/domain"
)

// RequireRoleFloor rejects callers whose role does not meet floor.
func RequireRoleFloor(guard *Guard, floor domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := guard.Evaluate(identityFromContext(c), floor).Err(); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireCapability rejects callers that miss the floor or the capability.
func RequireCapability(guard *Guard, floor domain.Role, capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := guard.EvaluateCapability(identityFromContext(c), floor, capability).Err(); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated with any role.
func RequireAnyRole(guard *Guard) fiber.Handler {
	return RequireRoleFloor(guard, domain.RoleUser)
}
