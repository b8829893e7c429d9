package domain

// KYCStatus tracks identity verification for an account.
type KYCStatus string

const (
	KYCNone     KYCStatus = "none"
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// IsDecision reports whether s is a terminal reviewer decision.
func (s KYCStatus) IsDecision() bool {
	return s == KYCApproved || s == KYCRejected
}
