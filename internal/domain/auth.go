package domain

import "time"

// AuthResult is the outcome of a successful wallet sign-in exchange.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Challenge is a single-use message the wallet must sign to connect.
type Challenge struct {
	Address   string    `json:"address"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}
