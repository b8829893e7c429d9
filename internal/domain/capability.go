package domain

// Capability is a named permission. The set is closed: nothing outside the
// constants below is ever granted.
type Capability string

const (
	CapViewDashboard   Capability = "view_dashboard"
	CapInvest          Capability = "invest"
	CapManageProfile   Capability = "manage_profile"
	CapSubmitKYC       Capability = "submit_kyc"
	CapViewUsers       Capability = "view_users"
	CapViewAnalytics   Capability = "view_analytics"
	CapApproveProject  Capability = "approve_project"
	CapManageProjects  Capability = "manage_projects"
	CapManageKYC       Capability = "manage_kyc"
	CapManageRoles     Capability = "manage_roles"
	CapManageAdmins    Capability = "manage_admins"
	CapManageContracts Capability = "manage_contracts"
	CapForceLogout     Capability = "force_logout"
	CapSystemSettings  Capability = "system_settings"
)

var allCapabilities = []Capability{
	CapViewDashboard,
	CapInvest,
	CapManageProfile,
	CapSubmitKYC,
	CapViewUsers,
	CapViewAnalytics,
	CapApproveProject,
	CapManageProjects,
	CapManageKYC,
	CapManageRoles,
	CapManageAdmins,
	CapManageContracts,
	CapForceLogout,
	CapSystemSettings,
}

// AllCapabilities returns a copy of the closed capability set.
func AllCapabilities() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// ParseCapability returns the capability named raw, if it exists.
func ParseCapability(raw string) (Capability, bool) {
	for _, c := range allCapabilities {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// ParseCapabilities keeps the known entries of raw and drops the rest.
func ParseCapabilities(raw []string) []Capability {
	out := make([]Capability, 0, len(raw))
	for _, r := range raw {
		if c, ok := ParseCapability(r); ok {
			out = append(out, c)
		}
	}
	return out
}
