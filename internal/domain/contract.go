package domain

import "time"

// ContractStatus is the operational state of a platform contract.
type ContractStatus string

const (
	ContractActive ContractStatus = "active"
	ContractPaused ContractStatus = "paused"
)

// Contract is an on-chain platform contract operators can pause.
type Contract struct {
	Name      string         `json:"name"`
	Address   string         `json:"address"`
	Status    ContractStatus `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
}
