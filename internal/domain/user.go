package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is an investor or operator account keyed by its wallet address.
type User struct {
	ID          string       `json:"id"`
	Address     string       `json:"address"`
	Role        Role         `json:"role"`
	Profile     Profile      `json:"profile"`
	KYCStatus   KYCStatus    `json:"kyc_status"`
	Permissions []Capability `json:"permissions,omitempty"`
	Status      UserStatus   `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
