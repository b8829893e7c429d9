package dto

import (
	"time"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
)

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin superadmin"`
}

// KYCDecisionRequest payload.
type KYCDecisionRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// NotificationRequest payload for POST /notifications.
type NotificationRequest struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient" validate:"required"`
	Level     string    `json:"level" validate:"omitempty,oneof=info success warning error"`
	Title     string    `json:"title" validate:"required,max=200"`
	Message   string    `json:"message" validate:"max=2000"`
	EventType string    `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification converts the request.
func (r NotificationRequest) Notification() domain.Notification {
	return domain.Notification{
		ID:        r.ID,
		Recipient: r.Recipient,
		Level:     domain.NotificationLevel(r.Level),
		Title:     r.Title,
		Message:   r.Message,
		EventType: r.EventType,
		CreatedAt: r.CreatedAt,
	}
}

// SyncEventRequest payload for POST /sync/events.
type SyncEventRequest struct {
	ID           string            `json:"id" validate:"omitempty,uuid"`
	Type         string            `json:"type" validate:"required,oneof=role_update project_approval kyc_status contract_status admin_action"`
	TargetUserID string            `json:"targetUserId"`
	Metadata     map[string]string `json:"metadata"`
	Timestamp    time.Time         `json:"timestamp"`
	Origin       string            `json:"origin" validate:"max=64"`
}

// Event converts the request.
func (r SyncEventRequest) Event() events.Event {
	return events.Event{
		ID:           r.ID,
		Type:         events.EventType(r.Type),
		TargetUserID: r.TargetUserID,
		Metadata:     r.Metadata,
		Timestamp:    r.Timestamp,
		Origin:       r.Origin,
	}
}
