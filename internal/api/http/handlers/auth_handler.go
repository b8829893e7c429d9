package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/invest-access/internal/api/dto"
	"github.com/spec-kit/invest-access/internal/auth"
	"github.com/spec-kit/invest-access/internal/service"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// AuthHandler exposes the wallet sign-in endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Challenge handles POST /auth/challenge.
func (h *AuthHandler) Challenge(c *fiber.Ctx) error {
	var req dto.ChallengeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	challenge, err := h.auth.IssueChallenge(c.UserContext(), req.Address)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, challenge)
}

// Connect handles POST /auth/connect.
func (h *AuthHandler) Connect(c *fiber.Ctx) error {
	var req dto.ConnectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Connect(c.UserContext(), req.Address, req.Signature, req.Message)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, result)
}

// Session handles GET /auth/session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return respond(c, http.StatusOK, principal.User)
}
