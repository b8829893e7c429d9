package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input any
		field string
		tag   string
	}{
		{"valid connect", ConnectRequest{Address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Signature: "0x1", Message: "m"}, "", ""},
		{"bad address", ChallengeRequest{Address: "0x123"}, "Address", "eth_addr"},
		{"missing signature", ConnectRequest{Address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Message: "m"}, "Signature", "required"},
		{"unknown role", UpdateRoleRequest{Role: "owner"}, "Role", "oneof"},
		{"pending is not a decision", KYCDecisionRequest{Status: "pending"}, "Status", "oneof"},
		{"unknown event type", SyncEventRequest{Type: "mystery"}, "Type", "oneof"},
		{"notification level", NotificationRequest{Recipient: "u-1", Title: "t", Level: "loud"}, "Level", "oneof"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
			assert.Equal(t, tt.tag, domainErr.Details[tt.field])
		})
	}
}
