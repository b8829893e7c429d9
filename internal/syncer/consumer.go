package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/observability"
	"github.com/spec-kit/invest-access/internal/views"
)

// Kind identifies a dashboard flavour.
type Kind string

const (
	KindUser       Kind = "user"
	KindAdmin      Kind = "admin"
	KindSuperAdmin Kind = "superadmin"
)

// ParseKind maps a config value onto a Kind.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindUser, KindAdmin, KindSuperAdmin:
		return k, nil
	default:
		return "", fmt.Errorf("unknown dashboard kind %q", raw)
	}
}

// Floor is the role a dashboard of this kind requires.
func (k Kind) Floor() domain.Role {
	switch k {
	case KindSuperAdmin:
		return domain.RoleSuperAdmin
	case KindAdmin:
		return domain.RoleAdmin
	default:
		return domain.RoleUser
	}
}

// Views lists the views a dashboard of this kind keeps.
func (k Kind) Views() []views.Key {
	switch k {
	case KindSuperAdmin:
		return []views.Key{
			views.OwnProfile,
			views.AdminUsers, views.AdminAdmins, views.AdminProjects, views.AdminKYCQueue,
			views.AdminContracts, views.AdminStats, views.AdminActivity,
		}
	case KindAdmin:
		return []views.Key{
			views.OwnProfile, views.Marketplace,
			views.AdminUsers, views.AdminProjects, views.AdminKYCQueue,
			views.AdminStats, views.AdminActivity,
		}
	default:
		return []views.Key{views.OwnProfile, views.KYCStatus, views.Marketplace}
	}
}

// SessionState is the part of the session store a consumer reads and may
// tear down.
type SessionState interface {
	Identity() domain.Identity
	ForceReauthentication(ctx context.Context, reason string) bool
}

// Notifier shows a notification to the local user.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notification)

func (f NotifierFunc) Notify(ctx context.Context, n domain.Notification) { f(ctx, n) }

// ConsumerOptions wires a Consumer.
type ConsumerOptions struct {
	Kind     Kind
	Cache    *views.Cache
	Session  SessionState
	Notifier Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

// Consumer applies sync events to one mounted dashboard: it invalidates the
// affected views and raises notifications. Handling never fails and applying
// the same event twice only re-invalidates.
type Consumer struct {
	kind     Kind
	cache    *views.Cache
	session  SessionState
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewConsumer builds a consumer.
func NewConsumer(opts ConsumerOptions) *Consumer {
	c := &Consumer{
		kind:     opts.Kind,
		cache:    opts.Cache,
		session:  opts.Session,
		notifier: opts.Notifier,
		logger:   observability.OrNop(opts.Logger).With(zap.String("dashboard", string(opts.Kind))),
		now:      opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Kind returns the dashboard kind.
func (c *Consumer) Kind() Kind {
	return c.kind
}

// Cache returns the consumer's view cache.
func (c *Consumer) Cache() *views.Cache {
	return c.cache
}

// Handle is an events.Handler.
func (c *Consumer) Handle(ctx context.Context, e events.Event) error {
	identity := c.session.Identity()

	switch e.Type {
	case events.EventRoleUpdate:
		if e.Targets(identity) && c.session.ForceReauthentication(ctx, roleReason(e)) {
			c.notify(ctx, identity, e, sessionEndedNotice(e))
		}
		c.invalidate(e, views.OwnProfile, views.AdminUsers, views.AdminAdmins)

	case events.EventProjectApproval:
		if len(c.invalidate(e, views.Marketplace, views.AdminProjects)) > 0 {
			c.notify(ctx, identity, e, projectNotice(e))
		}

	case events.EventKYCStatus:
		c.invalidate(e, views.KYCStatus, views.AdminKYCQueue)
		if e.Targets(identity) {
			c.notify(ctx, identity, e, kycNotice(e))
		}

	case events.EventContractStatus:
		if len(c.invalidate(e, views.AdminContracts)) > 0 {
			c.notify(ctx, identity, e, contractNotice(e))
		}

	case events.EventAdminAction:
		keys := views.AdminAggregates()
		if e.Meta(events.MetaAction) == events.ActionSyncDashboard && !e.TargetsAll() && e.Targets(identity) {
			keys = c.cache.Keys()
		}
		c.invalidate(e, keys...)

	default:
		c.logger.Warn("ignoring unrecognized sync event",
			zap.String("event_id", e.ID),
			zap.String("event_type", string(e.Type)))
	}
	return nil
}

func (c *Consumer) invalidate(e events.Event, keys ...views.Key) []views.Key {
	if c.cache == nil {
		return nil
	}
	hit := c.cache.Invalidate(keys...)
	if len(hit) > 0 {
		c.logger.Debug("views invalidated",
			zap.String("event_type", string(e.Type)),
			zap.Any("views", hit))
	}
	return hit
}

type notice struct {
	level   domain.NotificationLevel
	title   string
	message string
}

func (c *Consumer) notify(ctx context.Context, identity domain.Identity, e events.Event, n notice) {
	if c.notifier == nil {
		return
	}
	recipient := identity.UserID
	if recipient == "" {
		recipient = identity.Address
	}
	c.notifier.Notify(ctx, domain.Notification{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Level:     n.level,
		Title:     n.title,
		Message:   n.message,
		EventType: string(e.Type),
		CreatedAt: c.now(),
	})
}

func roleReason(e events.Event) string {
	if reason := e.Meta(events.MetaReason); reason != "" {
		return reason
	}
	return "role changed to " + e.Meta(events.MetaNewRole)
}

func sessionEndedNotice(e events.Event) notice {
	if e.Meta(events.MetaReason) == events.ActionForceLogout {
		return notice{domain.LevelWarning, "Signed out", "All sessions were signed out by an operator. Please connect again."}
	}
	return notice{domain.LevelWarning, "Role changed", "Your role was changed. Please connect again."}
}

func projectNotice(e events.Event) notice {
	id := e.Meta(events.MetaProjectID)
	switch domain.ProjectStatus(e.Meta(events.MetaStatus)) {
	case domain.ProjectApproved:
		return notice{domain.LevelSuccess, "Project approved", fmt.Sprintf("Project %s was approved.", id)}
	case domain.ProjectRejected:
		return notice{domain.LevelWarning, "Project rejected", fmt.Sprintf("Project %s was rejected.", id)}
	default:
		return notice{domain.LevelInfo, "Project updated", fmt.Sprintf("Project %s was updated.", id)}
	}
}

func kycNotice(e events.Event) notice {
	switch domain.KYCStatus(e.Meta(events.MetaStatus)) {
	case domain.KYCApproved:
		return notice{domain.LevelSuccess, "KYC approved", "Your identity verification was approved."}
	case domain.KYCRejected:
		return notice{domain.LevelError, "KYC rejected", "Your identity verification was rejected."}
	default:
		return notice{domain.LevelInfo, "KYC updated", "Your identity verification status changed."}
	}
}

func contractNotice(e events.Event) notice {
	name := e.Meta(events.MetaContractName)
	if e.Meta(events.MetaStatus) == "paused" {
		return notice{domain.LevelWarning, "Contract paused", fmt.Sprintf("Contract %s is paused.", name)}
	}
	return notice{domain.LevelInfo, "Contract resumed", fmt.Sprintf("Contract %s is running again.", name)}
}
