package auth

import (
	"sort"

	"github.com/spec-kit/invest-access/internal/domain"
)

// Table maps each role to its default capabilities.
type Table map[domain.Role][]domain.Capability

var defaultTable = Table{
	domain.RoleUser: {
		domain.CapViewDashboard,
		domain.CapInvest,
		domain.CapManageProfile,
		domain.CapSubmitKYC,
	},
	domain.RoleAdmin: {
		domain.CapViewDashboard,
		domain.CapManageProfile,
		domain.CapViewUsers,
		domain.CapViewAnalytics,
		domain.CapApproveProject,
		domain.CapManageProjects,
		domain.CapManageKYC,
	},
	// Listed for display only; Can never consults it for superadmin.
	domain.RoleSuperAdmin: domain.AllCapabilities(),
}

// DefaultTable returns a copy of the built-in role table.
func DefaultTable() Table {
	out := make(Table, len(defaultTable))
	for role, caps := range defaultTable {
		out[role] = append([]domain.Capability(nil), caps...)
	}
	return out
}

// CapabilitySet is a resolved set of capabilities.
type CapabilitySet map[domain.Capability]struct{}

// Has reports membership.
func (s CapabilitySet) Has(c domain.Capability) bool {
	_, ok := s[c]
	return ok
}

// Slice returns the set sorted by name.
func (s CapabilitySet) Slice() []domain.Capability {
	out := make([]domain.Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolver answers capability questions from a fixed role table. It holds no
// per-identity state, so results can never outlive the identity they came from.
type Resolver struct {
	table map[domain.Role]CapabilitySet
}

// NewResolver copies table into a resolver.
func NewResolver(table Table) *Resolver {
	sets := make(map[domain.Role]CapabilitySet, len(table))
	for role, caps := range table {
		set := make(CapabilitySet, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		sets[role] = set
	}
	return &Resolver{table: sets}
}

// DefaultResolver resolves against the built-in table.
func DefaultResolver() *Resolver {
	return NewResolver(defaultTable)
}

// Resolve returns the role's default capabilities unioned with overrides.
// A missing role resolves to the empty set.
func (r *Resolver) Resolve(role domain.Role, overrides []domain.Capability) CapabilitySet {
	out := make(CapabilitySet)
	if !role.Valid() {
		return out
	}
	for c := range r.table[role] {
		out[c] = struct{}{}
	}
	for _, c := range overrides {
		out[c] = struct{}{}
	}
	return out
}

// Can reports whether identity holds capability. Superadmin holds every
// capability by definition, whatever the table says.
func (r *Resolver) Can(identity domain.Identity, capability domain.Capability) bool {
	if !identity.Authenticated() {
		return false
	}
	if identity.Role == domain.RoleSuperAdmin {
		return true
	}
	return r.Resolve(identity.Role, identity.PermissionOverrides).Has(capability)
}

// HasRole reports whether identity holds one of roles.
func (r *Resolver) HasRole(identity domain.Identity, roles ...domain.Role) bool {
	if !identity.Authenticated() {
		return false
	}
	for _, role := range roles {
		if identity.Role == role {
			return true
		}
	}
	return false
}
