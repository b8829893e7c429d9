package auth

import (
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/preview"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// Decision is the outcome of an access evaluation.
type Decision string

const (
	Allow               Decision = "allow"
	DenyUnauthenticated Decision = "deny_unauthenticated"
	DenyForbidden       Decision = "deny_forbidden"
)

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool {
	return d == Allow
}

// Err converts a deny decision into the matching error, or nil for Allow.
// The forbidden message never names the missing capability.
func (d Decision) Err() error {
	switch d {
	case Allow:
		return nil
	case DenyUnauthenticated:
		return apperrors.NewAuthenticationError("authentication required")
	default:
		return apperrors.NewAuthorizationError("insufficient privileges")
	}
}

// Guard decides whether an identity may enter a protected surface. Decisions
// are computed from the identity passed in and never stored.
type Guard struct {
	resolver *Resolver
}

// NewGuard builds a guard over resolver.
func NewGuard(resolver *Resolver) *Guard {
	if resolver == nil {
		resolver = DefaultResolver()
	}
	return &Guard{resolver: resolver}
}

// Resolver exposes the underlying resolver.
func (g *Guard) Resolver() *Resolver {
	return g.resolver
}

// Evaluate checks identity against a role floor.
func (g *Guard) Evaluate(identity domain.Identity, floor domain.Role) Decision {
	if preview.IsCredential(identity.Token) {
		return Allow
	}
	if !identity.Authenticated() {
		return DenyUnauthenticated
	}
	if identity.Role.Satisfies(floor) {
		return Allow
	}
	return DenyForbidden
}

// EvaluateCapability checks the role floor and then a single capability.
func (g *Guard) EvaluateCapability(identity domain.Identity, floor domain.Role, capability domain.Capability) Decision {
	decision := g.Evaluate(identity, floor)
	if decision != Allow || preview.IsCredential(identity.Token) {
		return decision
	}
	if !g.resolver.Can(identity, capability) {
		return DenyForbidden
	}
	return Allow
}
