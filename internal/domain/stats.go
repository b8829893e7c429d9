package domain

// PlatformStats aggregates counters shown on admin dashboards.
type PlatformStats struct {
	Users           int `json:"users"`
	Admins          int `json:"admins"`
	PendingProjects int `json:"pending_projects"`
	PendingKYC      int `json:"pending_kyc"`
	PausedContracts int `json:"paused_contracts"`
}
