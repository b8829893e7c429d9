package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/invest-access/internal/api/dto"
	"github.com/spec-kit/invest-access/internal/auth"
	"github.com/spec-kit/invest-access/internal/domain"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"data": data})
}

// parseBody decodes and validates the request body into dst.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(dst)
}

func caller(c *fiber.Ctx) domain.Identity {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return principal.Identity
	}
	return domain.Identity{}
}

func limitQuery(c *fiber.Ctx, fallback int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
