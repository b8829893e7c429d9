package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/observability"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// Handler handles a delivered event. A returned error or a panic is logged
// and does not stop delivery to other handlers.
type Handler func(context.Context, Event) error

// Forwarder carries published events to other sessions.
type Forwarder interface {
	Forward(ctx context.Context, event Event) error
}

// Publisher is the publishing half of the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) Event
}

// Subscriber is the subscribing half of the bus.
type Subscriber interface {
	Subscribe(handler Handler) (unsubscribe func())
}

// BusOptions configures a Bus. Every field is optional.
type BusOptions struct {
	Forwarder      Forwarder
	ForwardTimeout time.Duration
	QueueSize      int
	Origin         string
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Now            func() time.Time
}

type subscription struct {
	id      uint64
	handler Handler
	removed atomic.Bool
}

// Bus fans events out to local subscribers synchronously, in registration
// order, and forwards published events to a Forwarder in the background.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	nextID uint64

	clockMu sync.Mutex
	last    time.Time
	now     func() time.Time

	origin         string
	forwarder      Forwarder
	forwardTimeout time.Duration
	queue          chan Event
	done           chan struct{}
	closeOnce      sync.Once
	wg             sync.WaitGroup

	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewBus creates a bus. When a forwarder is configured a single background
// goroutine forwards events in publish order until Close.
func NewBus(opts BusOptions) *Bus {
	b := &Bus{
		now:            opts.Now,
		origin:         opts.Origin,
		forwarder:      opts.Forwarder,
		forwardTimeout: opts.ForwardTimeout,
		done:           make(chan struct{}),
		logger:         observability.OrNop(opts.Logger),
		metrics:        opts.Metrics,
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.origin == "" {
		b.origin = uuid.NewString()
	}
	if b.forwarder != nil {
		size := opts.QueueSize
		if size <= 0 {
			size = 64
		}
		b.queue = make(chan Event, size)
		b.wg.Add(1)
		go b.runForwarder()
	}
	return b
}

// Origin identifies this process on the remote channel.
func (b *Bus) Origin() string {
	return b.origin
}

// Subscribe registers handler. The returned function removes it and may be
// called any number of times, including from inside a handler.
func (b *Bus) Subscribe(handler Handler) func() {
	sub := &subscription{handler: handler}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.removed.Store(true)
			b.remove(sub.id)
		})
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	b.subs = kept
}

// SubscriberCount returns the number of registered handlers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish stamps event, delivers it to every current subscriber and queues
// it for the forwarder. Nothing about delivery or forwarding is reported
// back; the stamped event is returned.
func (b *Bus) Publish(ctx context.Context, event Event) Event {
	event = event.Clone()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.TargetUserID == "" {
		event.TargetUserID = TargetAll
	}
	if event.Origin == "" {
		event.Origin = b.origin
	}
	event.Timestamp = b.tick()

	b.deliver(ctx, event)
	b.enqueue(event)
	return event
}

// Deliver hands an event received from another session to local subscribers
// only. It is never forwarded again.
func (b *Bus) Deliver(ctx context.Context, event Event) {
	event = event.Clone()
	if event.Timestamp.IsZero() {
		event.Timestamp = b.tick()
	}
	b.deliver(ctx, event)
}

// Close stops the forwarder. Events still queued are dropped.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
}

func (b *Bus) tick() time.Time {
	b.clockMu.Lock()
	defer b.clockMu.Unlock()
	now := b.now()
	if now.Before(b.last) {
		now = b.last
	}
	b.last = now
	return now
}

func (b *Bus) deliver(ctx context.Context, event Event) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.removed.Load() {
			continue
		}
		err := invoke(ctx, sub.handler, event.Clone())
		b.metrics.RecordDelivery(string(event.Type), err != nil)
		if err != nil {
			b.logger.Warn("sync subscriber failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(apperrors.NewSyncDeliveryError("subscriber failed", err)))
		}
	}
}

func invoke(ctx context.Context, handler Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

func (b *Bus) enqueue(event Event) {
	if b.forwarder == nil {
		return
	}
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.queue <- event:
	default:
		b.metrics.RecordForward(string(event.Type), false)
		b.logger.Warn("sync forward queue full, dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
}

func (b *Bus) runForwarder() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case event := <-b.queue:
			b.forward(event)
		}
	}
}

func (b *Bus) forward(event Event) {
	ctx := context.Background()
	if b.forwardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.forwardTimeout)
		defer cancel()
	}

	err := safeForward(ctx, b.forwarder, event)
	b.metrics.RecordForward(string(event.Type), err == nil)
	if err != nil {
		b.logger.Warn("sync forward failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(apperrors.NewSyncDeliveryError("remote forward failed", err)))
	}
}

func safeForward(ctx context.Context, f Forwarder, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("forwarder panic: %v", r)
		}
	}()
	return f.Forward(ctx, event)
}
