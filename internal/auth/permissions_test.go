package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/invest-access/internal/domain"
)

func authed(role domain.Role, overrides ...domain.Capability) domain.Identity {
	return domain.Identity{UserID: "u-1", Address: domain.ZeroAddress, Token: "tok", Role: role, PermissionOverrides: overrides}
}

func TestCanMatchesTableForEveryRole(t *testing.T) {
	table := DefaultTable()
	resolver := NewResolver(table)

	for _, role := range domain.Roles() {
		granted := make(map[domain.Capability]bool)
		for _, c := range table[role] {
			granted[c] = true
		}
		for _, c := range domain.AllCapabilities() {
			want := granted[c] || role == domain.RoleSuperAdmin
			assert.Equal(t, want, resolver.Can(authed(role), c), "role %s capability %s", role, c)
		}
	}
}

func TestSuperAdminIsCompleteRegardlessOfTable(t *testing.T) {
	resolver := NewResolver(Table{domain.RoleSuperAdmin: nil})
	for _, c := range domain.AllCapabilities() {
		assert.True(t, resolver.Can(authed(domain.RoleSuperAdmin), c))
	}
	assert.True(t, resolver.Can(authed(domain.RoleSuperAdmin), domain.Capability("added_next_release")))
}

func TestAdminScenarioTable(t *testing.T) {
	resolver := NewResolver(Table{domain.RoleAdmin: {domain.CapApproveProject}})
	admin := authed(domain.RoleAdmin)

	assert.True(t, resolver.Can(admin, domain.CapApproveProject))
	assert.False(t, resolver.Can(admin, domain.CapManageContracts))
}

func TestOverridesAreUnioned(t *testing.T) {
	resolver := NewResolver(Table{domain.RoleUser: {domain.CapInvest}})
	user := authed(domain.RoleUser, domain.CapManageKYC)

	assert.True(t, resolver.Can(user, domain.CapInvest))
	assert.True(t, resolver.Can(user, domain.CapManageKYC))
	assert.Equal(t, []domain.Capability{domain.CapInvest, domain.CapManageKYC},
		resolver.Resolve(domain.RoleUser, user.PermissionOverrides).Slice())
}

func TestResolveWithoutRoleIsEmpty(t *testing.T) {
	resolver := DefaultResolver()
	assert.Empty(t, resolver.Resolve(domain.RoleNone, []domain.Capability{domain.CapForceLogout}))
}

func TestUnauthenticatedCanNothing(t *testing.T) {
	resolver := DefaultResolver()
	for _, role := range append(domain.Roles(), domain.RoleNone) {
		id := domain.Identity{Role: role, PermissionOverrides: domain.AllCapabilities()}
		for _, c := range domain.AllCapabilities() {
			assert.False(t, resolver.Can(id, c))
		}
		assert.False(t, resolver.HasRole(id, domain.Roles()...))
	}
}

func TestHasRole(t *testing.T) {
	resolver := DefaultResolver()
	admin := authed(domain.RoleAdmin)

	assert.True(t, resolver.HasRole(admin, domain.RoleAdmin))
	assert.True(t, resolver.HasRole(admin, domain.RoleUser, domain.RoleAdmin))
	assert.False(t, resolver.HasRole(admin, domain.RoleSuperAdmin))
	assert.False(t, resolver.HasRole(admin))
}

func TestResolveReturnsFreshSets(t *testing.T) {
	resolver := DefaultResolver()
	first := resolver.Resolve(domain.RoleUser, nil)
	first[domain.CapForceLogout] = struct{}{}

	assert.False(t, resolver.Resolve(domain.RoleUser, nil).Has(domain.CapForceLogout))
	assert.False(t, resolver.Can(authed(domain.RoleUser), domain.CapForceLogout))
}
