package syncer

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/observability"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// RemoteAPI is the notification and sync surface of the platform API.
type RemoteAPI interface {
	SendNotification(ctx context.Context, n domain.Notification) error
	TriggerUpdate(ctx context.Context, e events.Event) error
	SyncDashboard(ctx context.Context, userID string) error
}

// Propagator performs the follow-up calls after a successful mutation. The
// mutation already happened server side, so failures here are logged and
// swallowed.
type Propagator struct {
	api     RemoteAPI
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewPropagator builds a propagator. A nil api makes every call a no-op.
func NewPropagator(api RemoteAPI, logger *zap.Logger, metrics *observability.Metrics) *Propagator {
	return &Propagator{api: api, logger: observability.OrNop(logger), metrics: metrics}
}

// TriggerSync asks the API to resync the dashboard of the user an event
// addresses. Broadcast events reach every session through the bus forwarder
// instead, so they need no extra call. It reports whether the call succeeded.
func (p *Propagator) TriggerSync(ctx context.Context, e events.Event) bool {
	if p.api == nil || e.TargetsAll() || e.TargetUserID == "" {
		return true
	}
	if err := p.api.SyncDashboard(ctx, e.TargetUserID); err != nil {
		p.logger.Warn("trigger sync failed",
			zap.String("event_id", e.ID),
			zap.String("event_type", string(e.Type)),
			zap.String("target", e.TargetUserID),
			zap.Error(apperrors.NewSyncDeliveryError("sync dashboard failed", err)))
		return false
	}
	return true
}

// SendNotification delivers n to its recipient through the API.
func (p *Propagator) SendNotification(ctx context.Context, n domain.Notification) bool {
	if p.api == nil {
		return true
	}
	if err := p.api.SendNotification(ctx, n); err != nil {
		p.logger.Warn("send notification failed",
			zap.String("recipient", n.Recipient),
			zap.String("event_type", n.EventType),
			zap.Error(apperrors.NewSyncDeliveryError("send notification failed", err)))
		return false
	}
	return true
}

// RemoteForwarder is an events.Forwarder that hands published events to the
// API, which fans them out to every other session.
type RemoteForwarder struct {
	api RemoteAPI
}

// NewRemoteForwarder builds a forwarder over api.
func NewRemoteForwarder(api RemoteAPI) *RemoteForwarder {
	return &RemoteForwarder{api: api}
}

func (f *RemoteForwarder) Forward(ctx context.Context, e events.Event) error {
	return f.api.TriggerUpdate(ctx, e)
}
