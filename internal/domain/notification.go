package domain

import "time"

// NotificationLevel grades a user-facing notice.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is a user-facing notice, shown locally or delivered remotely.
type Notification struct {
	ID        string            `json:"id"`
	Recipient string            `json:"recipient"`
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	EventType string            `json:"event_type,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
