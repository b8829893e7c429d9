package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/invest-access/internal/domain"
)

// EventType enumerates supported sync event identifiers.
type EventType string

const (
	EventRoleUpdate      EventType = "role_update"
	EventProjectApproval EventType = "project_approval"
	EventKYCStatus       EventType = "kyc_status"
	EventContractStatus  EventType = "contract_status"
	EventAdminAction     EventType = "admin_action"
)

// Known reports whether t is one of the closed set of event types. Events
// decoded from the remote channel may carry anything.
func (t EventType) Known() bool {
	switch t {
	case EventRoleUpdate, EventProjectApproval, EventKYCStatus, EventContractStatus, EventAdminAction:
		return true
	default:
		return false
	}
}

// TargetAll addresses every connected session.
const TargetAll = "all"

// Metadata keys.
const (
	MetaNewRole      = "newRole"
	MetaProjectID    = "projectId"
	MetaStatus       = "status"
	MetaContractName = "contractName"
	MetaAction       = "action"
	MetaReason       = "reason"
)

// Admin action names carried in MetaAction.
const (
	ActionForceLogout   = "force_logout"
	ActionSyncDashboard = "sync_dashboard"
)

// Event is an immutable record of a cross-view mutation. Subscribers receive
// their own copy of Metadata.
type Event struct {
	ID           string            `json:"id"`
	Type         EventType         `json:"type"`
	TargetUserID string            `json:"targetUserId"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Origin       string            `json:"origin,omitempty"`
}

// New builds an event with a fresh ID. Timestamp and Origin are stamped by the bus.
func New(eventType EventType, target string, metadata map[string]string) Event {
	if target == "" {
		target = TargetAll
	}
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TargetUserID: target,
		Metadata:     copyMetadata(metadata),
	}
}

// Meta returns a metadata value or "".
func (e Event) Meta(key string) string {
	return e.Metadata[key]
}

// TargetsAll reports whether the event addresses every session.
func (e Event) TargetsAll() bool {
	return e.TargetUserID == TargetAll
}

// Targets reports whether the event addresses identity.
func (e Event) Targets(identity domain.Identity) bool {
	if !identity.Authenticated() {
		return false
	}
	return e.TargetsAll() || identity.Is(e.TargetUserID)
}

// Clone returns a copy that shares no mutable state with e.
func (e Event) Clone() Event {
	out := e
	out.Metadata = copyMetadata(e.Metadata)
	return out
}

// RoleUpdated announces a new role for target, or TargetAll for a force logout.
func RoleUpdated(target string, newRole domain.Role) Event {
	return New(EventRoleUpdate, target, map[string]string{MetaNewRole: string(newRole)})
}

// ForceLogout asks every session to re-authenticate.
func ForceLogout() Event {
	return New(EventRoleUpdate, TargetAll, map[string]string{MetaReason: ActionForceLogout})
}

// ProjectDecided announces an approval decision on a project.
func ProjectDecided(projectID string, status domain.ProjectStatus) Event {
	return New(EventProjectApproval, TargetAll, map[string]string{
		MetaProjectID: projectID,
		MetaStatus:    string(status),
	})
}

// KYCDecided announces a KYC decision for target.
func KYCDecided(target string, status domain.KYCStatus) Event {
	return New(EventKYCStatus, target, map[string]string{MetaStatus: string(status)})
}

// ContractStatusChanged announces a pause or resume.
func ContractStatusChanged(name string, status domain.ContractStatus) Event {
	var word string
	switch status {
	case domain.ContractPaused:
		word = "paused"
	default:
		word = "resumed"
	}
	return New(EventContractStatus, TargetAll, map[string]string{
		MetaContractName: name,
		MetaStatus:       word,
	})
}

// AdminAction announces an administrative change that only refreshes aggregates.
func AdminAction(target, action string) Event {
	return New(EventAdminAction, target, map[string]string{MetaAction: action})
}

func copyMetadata(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
