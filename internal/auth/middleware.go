package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/invest-access/internal/domain"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Identity domain.Identity
	User     *domain.User
}

// AccountLookup loads accounts referenced by tokens.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// GenerationSource reports the current token revocation generation.
type GenerationSource interface {
	Current(ctx context.Context) (int64, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens      *TokenManager
	accounts    AccountLookup
	generations GenerationSource
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts AccountLookup, generations GenerationSource) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts, generations: generations}
}

// Handle enforces authentication for protected routes. The role comes from
// the stored account, not from the token, so a role change on the server is
// visible on the next request.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}
	raw := strings.TrimSpace(parts[1])

	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	if m.generations != nil {
		current, err := m.generations.Current(c.UserContext())
		if err != nil {
			return apperrors.MapError(err)
		}
		if claims.Generation != current {
			return apperrors.NewUnauthorized("session revoked")
		}
	}

	user, err := m.accounts.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}
	if user.Status == domain.UserStatusSuspended {
		return apperrors.NewUnauthorized("account suspended")
	}

	c.Locals(principalKey, &Principal{Identity: domain.IdentityFromUser(*user, raw), User: user})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func identityFromContext(c *fiber.Ctx) domain.Identity {
	if principal, ok := PrincipalFromContext(c); ok {
		return principal.Identity
	}
	return domain.Identity{}
}
