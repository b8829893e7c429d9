package dto

// ChallengeRequest payload for POST /auth/challenge.
type ChallengeRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

// ConnectRequest payload for POST /auth/connect.
type ConnectRequest struct {
	Address   string `json:"address" validate:"required,eth_addr"`
	Signature string `json:"signature" validate:"required"`
	Message   string `json:"message" validate:"required"`
}
