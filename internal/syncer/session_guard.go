package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/observability"
)

// SessionGuard returns a handler that tears the session down when a
// role_update addresses the current identity. It must be the first
// subscriber on the bus so no other handler observes the old role.
func SessionGuard(session SessionState, notifier Notifier, logger *zap.Logger) events.Handler {
	logger = observability.OrNop(logger)
	return func(ctx context.Context, e events.Event) error {
		if e.Type != events.EventRoleUpdate {
			return nil
		}
		identity := session.Identity()
		if !e.Targets(identity) {
			return nil
		}
		if !session.ForceReauthentication(ctx, roleReason(e)) {
			return nil
		}
		logger.Info("session ended by role update",
			zap.String("event_id", e.ID),
			zap.String("target", e.TargetUserID))
		if notifier != nil {
			n := sessionEndedNotice(e)
			recipient := identity.UserID
			if recipient == "" {
				recipient = identity.Address
			}
			notifier.Notify(ctx, domain.Notification{
				ID:        uuid.NewString(),
				Recipient: recipient,
				Level:     n.level,
				Title:     n.title,
				Message:   n.message,
				EventType: string(e.Type),
				CreatedAt: time.Now(),
			})
		}
		return nil
	}
}
