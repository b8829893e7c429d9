package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/observability"
)

type recordingForwarder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (f *recordingForwarder) Forward(_ context.Context, e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *recordingForwarder) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.ID)
	}
	return out
}

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus(BusOptions{})
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		bus.Subscribe(func(context.Context, Event) error {
			order = append(order, i)
			return nil
		})
	}

	bus.Publish(context.Background(), AdminAction(TargetAll, "refresh"))
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestFailingSubscribersAreIsolated(t *testing.T) {
	metrics := observability.NewMetrics()
	bus := NewBus(BusOptions{Metrics: metrics})
	var reached []string

	bus.Subscribe(func(context.Context, Event) error { return errors.New("boom") })
	bus.Subscribe(func(context.Context, Event) error { panic("kaboom") })
	bus.Subscribe(func(_ context.Context, e Event) error {
		reached = append(reached, e.ID)
		return nil
	})

	var published Event
	require.NotPanics(t, func() {
		published = bus.Publish(context.Background(), KYCDecided("u-1", domain.KYCApproved))
	})
	assert.Equal(t, []string{published.ID}, reached)

	snap := metrics.Sync()
	assert.Equal(t, int64(2), snap.Failures[string(EventKYCStatus)])
	assert.Equal(t, int64(1), snap.Deliveries[string(EventKYCStatus)])
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(BusOptions{})
	calls := 0
	unsubscribe := bus.Subscribe(func(context.Context, Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), AdminAction(TargetAll, "a"))
	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), AdminAction(TargetAll, "b"))

	assert.Equal(t, 1, calls)
	assert.Zero(t, bus.SubscriberCount())
}

func TestSubscriptionChangesDuringDelivery(t *testing.T) {
	bus := NewBus(BusOptions{})
	var seen []string
	var unsubscribeLast func()

	bus.Subscribe(func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.Meta(MetaAction))
		unsubscribeLast()
		bus.Subscribe(func(_ context.Context, e Event) error {
			seen = append(seen, "late:"+e.Meta(MetaAction))
			return nil
		})
		return nil
	})
	unsubscribeLast = bus.Subscribe(func(_ context.Context, e Event) error {
		seen = append(seen, "last:"+e.Meta(MetaAction))
		return nil
	})

	bus.Publish(context.Background(), AdminAction(TargetAll, "one"))
	assert.Equal(t, []string{"first:one"}, seen)
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	bus := NewBus(BusOptions{})
	bus.Publish(context.Background(), AdminAction(TargetAll, "before"))

	calls := 0
	bus.Subscribe(func(context.Context, Event) error {
		calls++
		return nil
	})
	assert.Zero(t, calls)
}

func TestTimestampsNeverDecrease(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	bus := NewBus(BusOptions{Now: func() time.Time {
		t := ticks[i]
		i++
		return t
	}})

	first := bus.Publish(context.Background(), AdminAction(TargetAll, "1"))
	second := bus.Publish(context.Background(), AdminAction(TargetAll, "2"))
	third := bus.Publish(context.Background(), AdminAction(TargetAll, "3"))

	assert.Equal(t, base, first.Timestamp)
	assert.Equal(t, base, second.Timestamp)
	assert.Equal(t, base.Add(time.Second), third.Timestamp)
}

func TestSubscribersGetIsolatedMetadata(t *testing.T) {
	bus := NewBus(BusOptions{})
	bus.Subscribe(func(_ context.Context, e Event) error {
		e.Metadata[MetaStatus] = "tampered"
		return nil
	})
	var got string
	bus.Subscribe(func(_ context.Context, e Event) error {
		got = e.Meta(MetaStatus)
		return nil
	})

	bus.Publish(context.Background(), ContractStatusChanged("Vault", domain.ContractPaused))
	assert.Equal(t, "paused", got)
}

func TestPublishStampsOriginAndForwardsInOrder(t *testing.T) {
	fwd := &recordingForwarder{}
	bus := NewBus(BusOptions{Forwarder: fwd, Origin: "tab-1"})
	defer bus.Close()

	var want []string
	for i := 0; i < 5; i++ {
		e := bus.Publish(context.Background(), AdminAction(TargetAll, "x"))
		assert.Equal(t, "tab-1", e.Origin)
		want = append(want, e.ID)
	}

	assert.Eventually(t, func() bool { return len(fwd.ids()) == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, fwd.ids())
}

func TestForwardFailureIsNotSurfaced(t *testing.T) {
	fwd := &recordingForwarder{err: errors.New("gateway down")}
	metrics := observability.NewMetrics()
	bus := NewBus(BusOptions{Forwarder: fwd, Metrics: metrics})
	defer bus.Close()

	delivered := false
	bus.Subscribe(func(context.Context, Event) error {
		delivered = true
		return nil
	})
	bus.Publish(context.Background(), ForceLogout())

	assert.True(t, delivered)
	assert.Eventually(t, func() bool {
		return metrics.Sync().Forwards[string(EventRoleUpdate)+"|false"] == 1
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, fwd.ids(), 1, "failed forwards are not retried")
}

func TestDeliverDoesNotForward(t *testing.T) {
	fwd := &recordingForwarder{}
	bus := NewBus(BusOptions{Forwarder: fwd})

	calls := 0
	bus.Subscribe(func(context.Context, Event) error {
		calls++
		return nil
	})
	bus.Deliver(context.Background(), Event{ID: "remote-1", Type: EventAdminAction, TargetUserID: TargetAll})
	bus.Close()

	assert.Equal(t, 1, calls)
	assert.Empty(t, fwd.ids())
}

func TestPublishAfterCloseStillDeliversLocally(t *testing.T) {
	fwd := &recordingForwarder{}
	bus := NewBus(BusOptions{Forwarder: fwd})
	bus.Close()
	bus.Close()

	calls := 0
	bus.Subscribe(func(context.Context, Event) error {
		calls++
		return nil
	})
	bus.Publish(context.Background(), AdminAction(TargetAll, "late"))
	assert.Equal(t, 1, calls)
	assert.Empty(t, fwd.ids())
}
