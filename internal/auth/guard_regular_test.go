//go:build !preview

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/invest-access/internal/domain"
)

func TestSentinelTokenDoesNotBypassInRegularBuilds(t *testing.T) {
	guard := NewGuard(nil)

	assert.Equal(t, DenyUnauthenticated, guard.Evaluate(domain.Identity{Token: "preview_admin"}, domain.RoleAdmin))
	assert.Equal(t, DenyUnauthenticated, guard.EvaluateCapability(domain.Identity{Token: "demo_superadmin"}, domain.RoleSuperAdmin, domain.CapForceLogout))

	sentinel := domain.Identity{UserID: "preview_user", Address: domain.ZeroAddress, Token: "preview_user", Role: domain.RoleUser}
	assert.Equal(t, DenyForbidden, guard.Evaluate(sentinel, domain.RoleSuperAdmin))
}
