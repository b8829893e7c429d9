package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/auth"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/repository"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// SyncService fans sync events out to every console and keeps per-user
// notification inboxes.
type SyncService struct {
	guard     *auth.Guard
	forwarder EventForwarder
	activity  repository.ActivityRepository
	inbox     repository.InboxRepository
	logger    *zap.Logger
	now       func() time.Time
}

// SyncDependencies wires SyncService.
type SyncDependencies struct {
	Guard        *auth.Guard
	Forwarder    EventForwarder
	ActivityRepo repository.ActivityRepository
	InboxRepo    repository.InboxRepository
	Logger       *zap.Logger
}

// NewSyncService constructs the service.
func NewSyncService(deps SyncDependencies) *SyncService {
	s := &SyncService{
		guard:     deps.Guard,
		forwarder: deps.Forwarder,
		activity:  deps.ActivityRepo,
		inbox:     deps.InboxRepo,
		logger:    deps.Logger,
		now:       time.Now,
	}
	if s.guard == nil {
		s.guard = auth.NewGuard(nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// authorizeEvent applies the same floor and capability an actor needs to
// perform the mutation the event announces.
func (s *SyncService) authorizeEvent(actor domain.Identity, e events.Event) error {
	switch e.Type {
	case events.EventRoleUpdate:
		if e.Meta(events.MetaReason) == events.ActionForceLogout {
			return s.guard.EvaluateCapability(actor, domain.RoleSuperAdmin, domain.CapForceLogout).Err()
		}
		return s.guard.EvaluateCapability(actor, domain.RoleSuperAdmin, domain.CapManageRoles).Err()
	case events.EventProjectApproval:
		return s.guard.EvaluateCapability(actor, domain.RoleAdmin, domain.CapApproveProject).Err()
	case events.EventKYCStatus:
		return s.guard.EvaluateCapability(actor, domain.RoleAdmin, domain.CapManageKYC).Err()
	case events.EventContractStatus:
		return s.guard.EvaluateCapability(actor, domain.RoleSuperAdmin, domain.CapManageContracts).Err()
	case events.EventAdminAction:
		return s.guard.Evaluate(actor, domain.RoleAdmin).Err()
	default:
		return apperrors.NewValidationError("unknown event type", map[string]any{"type": string(e.Type)})
	}
}

// TriggerUpdate publishes e on behalf of actor. The origin the console
// stamped is kept so the console does not receive its own event back.
func (s *SyncService) TriggerUpdate(ctx context.Context, actor domain.Identity, e events.Event) (events.Event, error) {
	if err := s.authorizeEvent(actor, e); err != nil {
		return events.Event{}, err
	}
	e = e.Clone()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.TargetUserID == "" {
		e.TargetUserID = events.TargetAll
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	if e.Origin == "" {
		e.Origin = OriginAPI
	}
	return e, s.publish(ctx, e)
}

// SyncDashboard asks the consoles of userID to refetch everything.
func (s *SyncService) SyncDashboard(ctx context.Context, actor domain.Identity, userID string) (events.Event, error) {
	if err := s.guard.Evaluate(actor, domain.RoleAdmin).Err(); err != nil {
		return events.Event{}, err
	}
	if userID == "" {
		return events.Event{}, apperrors.NewValidationError("user id required", nil)
	}
	e := events.AdminAction(userID, events.ActionSyncDashboard)
	e.Origin = OriginAPI
	e.Timestamp = s.now()
	return e, s.publish(ctx, e)
}

func (s *SyncService) publish(ctx context.Context, e events.Event) error {
	if err := s.activity.Record(ctx, e); err != nil {
		s.logger.Warn("record activity failed", zap.String("event_id", e.ID), zap.Error(err))
	}
	if err := s.forwarder.Forward(ctx, e); err != nil {
		return apperrors.NewSyncDeliveryError("publish sync event failed", err)
	}
	s.logger.Debug("sync event published",
		zap.String("event_id", e.ID),
		zap.String("event_type", string(e.Type)),
		zap.String("target", e.TargetUserID),
		zap.String("origin", e.Origin))
	return nil
}

// SendNotification stores n in its recipient's inbox.
func (s *SyncService) SendNotification(ctx context.Context, actor domain.Identity, n domain.Notification) (domain.Notification, error) {
	if err := s.guard.Evaluate(actor, domain.RoleAdmin).Err(); err != nil {
		return domain.Notification{}, err
	}
	if n.Recipient == "" {
		return domain.Notification{}, apperrors.NewValidationError("recipient required", nil)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if n.Level == "" {
		n.Level = domain.LevelInfo
	}
	if err := s.inbox.Push(ctx, n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

// Notifications returns the caller's inbox, newest first.
func (s *SyncService) Notifications(ctx context.Context, actor domain.Identity, limit int) ([]domain.Notification, error) {
	if !actor.Authenticated() {
		return nil, apperrors.NewAuthenticationError("authentication required")
	}
	return s.inbox.List(ctx, actor.UserID, limit)
}
