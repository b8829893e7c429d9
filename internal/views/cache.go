// Package views holds the client-side cache of dashboard views that sync
// events invalidate.
package views

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/invest-access/internal/observability"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// Key names a cached view.
type Key string

const (
	OwnProfile     Key = "own_profile"
	KYCStatus      Key = "kyc_status"
	Marketplace    Key = "marketplace"
	AdminUsers     Key = "admin_users"
	AdminAdmins    Key = "admin_admins"
	AdminProjects  Key = "admin_projects"
	AdminKYCQueue  Key = "admin_kyc_queue"
	AdminContracts Key = "admin_contracts"
	AdminStats     Key = "admin_stats"
	AdminActivity  Key = "admin_activity"
)

// AdminAggregates lists every admin-facing view.
func AdminAggregates() []Key {
	return []Key{AdminUsers, AdminAdmins, AdminProjects, AdminKYCQueue, AdminContracts, AdminStats, AdminActivity}
}

// ErrClosed is returned by Get once the cache is closed.
var ErrClosed = errors.New("view cache closed")

// Fetcher loads the current value of a view.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	fetch Fetcher

	value      any
	hasValue   bool
	lastErr    error
	fetchedAt  time.Time
	version    uint64
	fetchedVer uint64

	invalidations int
	fetches       int
}

func (e *entry) stale() bool {
	return !e.hasValue || e.fetchedVer < e.version
}

// Options configures a Cache.
type Options struct {
	RefetchTimeout time.Duration
	Logger         *zap.Logger
	Now            func() time.Time
}

// Cache stores view values for one mounted dashboard. Refetches started by
// an invalidation run to completion even after Close; their results are
// discarded.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	closed  bool

	group singleflight.Group
	wg    sync.WaitGroup

	refetchTimeout time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// New creates an empty cache.
func New(opts Options) *Cache {
	c := &Cache{
		entries:        make(map[Key]*entry),
		refetchTimeout: opts.RefetchTimeout,
		now:            opts.Now,
		logger:         observability.OrNop(opts.Logger),
	}
	if c.refetchTimeout <= 0 {
		c.refetchTimeout = 10 * time.Second
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Register adds a view. Registering a key twice replaces its fetcher.
func (c *Cache) Register(key Key, fetch Fetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.fetch = fetch
		return
	}
	c.entries[key] = &entry{fetch: fetch}
}

// Watches reports whether key is registered.
func (c *Cache) Watches(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// WatchesAny reports whether any of keys is registered.
func (c *Cache) WatchesAny(keys ...Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if _, ok := c.entries[k]; ok {
			return true
		}
	}
	return false
}

// Keys lists the registered views, sorted.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns the view value, fetching it when missing or stale. Concurrent
// callers for the same view share one fetch.
func (c *Cache) Get(ctx context.Context, key Key) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, apperrors.NewNotFound("view", map[string]any{"view": string(key)})
	}
	if !e.stale() {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	ver := e.version
	c.mu.Unlock()

	ch := c.group.DoChan(flightKey(key, ver), func() (any, error) {
		return c.fetch(key, ver)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Peek returns the cached value without fetching.
func (c *Cache) Peek(key Key) (value any, stale bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key]
	if !found || !e.hasValue {
		return nil, true, false
	}
	return e.value, e.stale(), true
}

// Invalidate marks the watched subset of keys stale, starts a background
// refetch for each, and returns that subset. Unwatched keys are ignored, so
// repeating an invalidation is harmless.
func (c *Cache) Invalidate(keys ...Key) []Key {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	var hit []Key
	type job struct {
		key Key
		ver uint64
	}
	var jobs []job
	seen := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		e, ok := c.entries[k]
		if !ok {
			continue
		}
		e.version++
		e.invalidations++
		hit = append(hit, k)
		jobs = append(jobs, job{key: k, ver: e.version})
	}
	c.wg.Add(len(jobs))
	c.mu.Unlock()

	for _, j := range jobs {
		j := j
		go func() {
			defer c.wg.Done()
			ch := c.group.DoChan(flightKey(j.key, j.ver), func() (any, error) {
				return c.fetch(j.key, j.ver)
			})
			<-ch
		}()
	}
	return hit
}

// Invalidations returns how many times key has been invalidated.
func (c *Cache) Invalidations(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.invalidations
	}
	return 0
}

// Fetches returns how many fetches of key completed and were kept.
func (c *Cache) Fetches(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.fetches
	}
	return 0
}

// Close stops accepting invalidations and drops every cached value. In-flight
// refetches finish but their results are dropped.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, e := range c.entries {
		e.value = nil
		e.hasValue = false
	}
}

// Wait blocks until every background refetch has returned.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) fetch(key Key, ver uint64) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, apperrors.NewNotFound("view", map[string]any{"view": string(key)})
	}
	fetch := e.fetch
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.refetchTimeout)
	defer cancel()
	value, err := safeFetch(ctx, fetch)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("discarding view result after close", zap.String("view", string(key)))
		return value, err
	}
	if err != nil {
		e.lastErr = err
		c.logger.Warn("view refetch failed", zap.String("view", string(key)), zap.Error(err))
		return nil, err
	}
	if ver >= e.fetchedVer {
		e.value = value
		e.hasValue = true
		e.fetchedVer = ver
		e.fetchedAt = c.now()
		e.lastErr = nil
		e.fetches++
	}
	return value, nil
}

func safeFetch(ctx context.Context, fetch Fetcher) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("view fetch panic: %v", r)
		}
	}()
	return fetch(ctx)
}

func flightKey(key Key, ver uint64) string {
	return fmt.Sprintf("%s#%d", key, ver)
}
