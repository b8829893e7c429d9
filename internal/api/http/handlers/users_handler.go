package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/invest-access/internal/auth"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/service"
)

// UsersHandler exposes account and marketplace reads.
type UsersHandler struct {
	accounts *service.AdminService
	guard    *auth.Guard
}

// NewUsersHandler constructs handler.
func NewUsersHandler(accounts *service.AdminService, guard *auth.Guard) *UsersHandler {
	return &UsersHandler{accounts: accounts, guard: guard}
}

// Profile handles GET /users/:address. Users read their own profile; admins
// read anyone's.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	identity := caller(c)
	address := c.Params("address")
	if !domain.SameAddress(address, identity.Address) {
		if err := h.guard.EvaluateCapability(identity, domain.RoleAdmin, domain.CapViewUsers).Err(); err != nil {
			return err
		}
	}
	user, err := h.accounts.Profile(c.UserContext(), address)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

// Marketplace handles GET /projects.
func (h *UsersHandler) Marketplace(c *fiber.Ctx) error {
	projects, err := h.accounts.Marketplace(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, nonNil(projects))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
