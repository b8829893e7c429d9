package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/invest-access/internal/domain"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

func TestEvaluateFloors(t *testing.T) {
	guard := NewGuard(nil)

	tests := []struct {
		name  string
		id    domain.Identity
		floor domain.Role
		want  Decision
	}{
		{"admin at superadmin floor", authed(domain.RoleAdmin), domain.RoleSuperAdmin, DenyForbidden},
		{"admin at admin floor", authed(domain.RoleAdmin), domain.RoleAdmin, Allow},
		{"superadmin at admin floor", authed(domain.RoleSuperAdmin), domain.RoleAdmin, Allow},
		{"superadmin at superadmin floor", authed(domain.RoleSuperAdmin), domain.RoleSuperAdmin, Allow},
		{"user at admin floor", authed(domain.RoleUser), domain.RoleAdmin, DenyForbidden},
		{"user at user floor", authed(domain.RoleUser), domain.RoleUser, Allow},
		{"no token", domain.Identity{Role: domain.RoleSuperAdmin}, domain.RoleUser, DenyUnauthenticated},
		{"empty identity", domain.Identity{}, domain.RoleAdmin, DenyUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guard.Evaluate(tt.id, tt.floor))
		})
	}
}

func TestEvaluateCapability(t *testing.T) {
	guard := NewGuard(NewResolver(Table{domain.RoleAdmin: {domain.CapApproveProject}}))

	assert.Equal(t, Allow, guard.EvaluateCapability(authed(domain.RoleAdmin), domain.RoleAdmin, domain.CapApproveProject))
	assert.Equal(t, DenyForbidden, guard.EvaluateCapability(authed(domain.RoleAdmin), domain.RoleAdmin, domain.CapManageKYC))
	assert.Equal(t, DenyForbidden, guard.EvaluateCapability(authed(domain.RoleUser), domain.RoleAdmin, domain.CapApproveProject))
	assert.Equal(t, DenyUnauthenticated, guard.EvaluateCapability(domain.Identity{}, domain.RoleAdmin, domain.CapApproveProject))
}

func TestDecisionErrors(t *testing.T) {
	assert.NoError(t, Allow.Err())
	assert.True(t, apperrors.IsAuthentication(DenyUnauthenticated.Err()))

	forbidden := DenyForbidden.Err()
	assert.True(t, apperrors.IsAuthorization(forbidden))
	assert.Equal(t, "insufficient privileges", forbidden.Error())
}

func TestRoleDowngradeTakesEffectOnNextEvaluation(t *testing.T) {
	guard := NewGuard(nil)
	id := authed(domain.RoleSuperAdmin)
	assert.Equal(t, Allow, guard.Evaluate(id, domain.RoleSuperAdmin))

	id.Role = domain.RoleAdmin
	assert.Equal(t, DenyForbidden, guard.Evaluate(id, domain.RoleSuperAdmin))
}
