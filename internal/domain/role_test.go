package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleSatisfies(t *testing.T) {
	tests := []struct {
		role  Role
		floor Role
		want  bool
	}{
		{RoleUser, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleAdmin, RoleAdmin, true},
		{RoleSuperAdmin, RoleAdmin, true},
		{RoleAdmin, RoleSuperAdmin, false},
		{RoleSuperAdmin, RoleSuperAdmin, true},
		{RoleNone, RoleUser, false},
		{RoleNone, RoleNone, false},
		{Role("root"), RoleUser, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.Satisfies(tt.floor), "%q vs floor %q", tt.role, tt.floor)
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" SuperAdmin ")
	require.NoError(t, err)
	assert.Equal(t, RoleSuperAdmin, role)

	_, err = ParseRole("owner")
	assert.Error(t, err)
}

func TestParseCapabilitiesDropsUnknown(t *testing.T) {
	caps := ParseCapabilities([]string{"manage_kyc", "launch_rockets", "force_logout"})
	assert.Equal(t, []Capability{CapManageKYC, CapForceLogout}, caps)
}
