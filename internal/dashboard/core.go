// Package dashboard assembles the access and sync core a dashboard uses.
package dashboard

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/auth"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/observability"
	"github.com/spec-kit/invest-access/internal/session"
	"github.com/spec-kit/invest-access/internal/syncer"
	"github.com/spec-kit/invest-access/internal/views"
)

// ProfileSource loads an account profile.
type ProfileSource interface {
	GetProfile(ctx context.Context, address string) (domain.User, error)
}

// Options wires a Core.
type Options struct {
	Store    *session.Store
	Bus      *events.Bus
	Guard    *auth.Guard
	Profiles ProfileSource
	Notifier syncer.Notifier
	Logger   *zap.Logger
}

// Mount is a dashboard attached to the bus.
type Mount struct {
	core        *Core
	consumer    *syncer.Consumer
	unsubscribe func()
	once        sync.Once
	closed      atomic.Bool
}

// Consumer returns the mounted consumer.
func (m *Mount) Consumer() *syncer.Consumer {
	return m.consumer
}

// Active reports whether the dashboard is still attached.
func (m *Mount) Active() bool {
	return !m.closed.Load()
}

// Unmount detaches the dashboard. Refetches already running finish and
// their results are dropped.
func (m *Mount) Unmount() {
	m.once.Do(func() {
		m.closed.Store(true)
		m.unsubscribe()
		m.consumer.Cache().Close()
		m.core.forget(m)
	})
}

// Core is the read and publish surface the rest of the client uses. Identity
// writes stay inside the session store.
type Core struct {
	store    *session.Store
	bus      *events.Bus
	guard    *auth.Guard
	profiles ProfileSource
	notifier syncer.Notifier
	logger   *zap.Logger

	mu            sync.Mutex
	mounts        []*Mount
	removeGuard   func()
	removeWatcher func()
}

// New builds a core. The session guard is subscribed before anything else so
// a role change for this identity ends the session before any other
// subscriber runs. Every mounted dashboard is detached as soon as the
// credential it was mounted under goes away.
func New(opts Options) *Core {
	c := &Core{
		store:    opts.Store,
		bus:      opts.Bus,
		guard:    opts.Guard,
		profiles: opts.Profiles,
		notifier: opts.Notifier,
		logger:   observability.OrNop(opts.Logger),
	}
	if c.guard == nil {
		c.guard = auth.NewGuard(nil)
	}
	c.removeGuard = c.bus.Subscribe(syncer.SessionGuard(c.store, c.notifier, c.logger))
	c.removeWatcher = c.store.OnChange(func(prev, next domain.Identity) {
		if prev.Token != "" && prev.Token != next.Token {
			c.unmountAll()
		}
	})
	return c
}

// Identity returns a snapshot of the current identity.
func (c *Core) Identity() domain.Identity {
	return c.store.Identity()
}

// IsAuthenticated reports whether a session is active.
func (c *Core) IsAuthenticated() bool {
	return c.store.IsAuthenticated()
}

// Can reports whether the current identity holds capability.
func (c *Core) Can(capability domain.Capability) bool {
	return c.guard.Resolver().Can(c.store.Identity(), capability)
}

// HasRole reports whether the current identity holds one of roles.
func (c *Core) HasRole(roles ...domain.Role) bool {
	return c.guard.Resolver().HasRole(c.store.Identity(), roles...)
}

// EvaluateAccess decides whether the current identity may enter a surface
// guarded by floor.
func (c *Core) EvaluateAccess(floor domain.Role) auth.Decision {
	return c.guard.Evaluate(c.store.Identity(), floor)
}

// SubscribeToSync registers handler on the sync bus.
func (c *Core) SubscribeToSync(handler events.Handler) func() {
	return c.bus.Subscribe(handler)
}

// PublishSync publishes e and returns it as stamped.
func (c *Core) PublishSync(ctx context.Context, e events.Event) events.Event {
	return c.bus.Publish(ctx, e)
}

// Mount attaches a dashboard of kind backed by cache. It is refused unless
// the current identity may enter that dashboard.
func (c *Core) Mount(kind syncer.Kind, cache *views.Cache) (*Mount, error) {
	if err := c.EvaluateAccess(kind.Floor()).Err(); err != nil {
		return nil, err
	}
	consumer := syncer.NewConsumer(syncer.ConsumerOptions{
		Kind:     kind,
		Cache:    cache,
		Session:  c.store,
		Notifier: c.notifier,
		Logger:   c.logger,
	})
	m := &Mount{core: c, consumer: consumer, unsubscribe: c.bus.Subscribe(consumer.Handle)}

	c.mu.Lock()
	c.mounts = append(c.mounts, m)
	c.mu.Unlock()
	return m, nil
}

// RefreshProfile reloads the current account and applies it through the
// store. A rejected credential ends the session.
func (c *Core) RefreshProfile(ctx context.Context) error {
	identity := c.store.Identity()
	if !identity.Authenticated() {
		return auth.DenyUnauthenticated.Err()
	}
	if c.profiles == nil {
		return nil
	}
	user, err := c.profiles.GetProfile(ctx, identity.Address)
	if err != nil {
		c.store.HandleAPIError(ctx, err)
		return err
	}
	return c.store.SetUser(ctx, user)
}

// Mounts returns the number of attached dashboards.
func (c *Core) Mounts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mounts)
}

func (c *Core) forget(m *Mount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.mounts {
		if cur == m {
			c.mounts = append(c.mounts[:i], c.mounts[i+1:]...)
			return
		}
	}
}

func (c *Core) unmountAll() {
	c.mu.Lock()
	mounts := append([]*Mount(nil), c.mounts...)
	c.mu.Unlock()

	for _, m := range mounts {
		m.Unmount()
	}
}

// Close unmounts every dashboard and detaches the session guard.
func (c *Core) Close() {
	c.removeWatcher()
	c.unmountAll()
	c.removeGuard()
}
