package views

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

func counter(calls *atomic.Int32) Fetcher {
	return func(context.Context) (any, error) {
		return int(calls.Add(1)), nil
	}
}

func TestGetFetchesOnceUntilInvalidated(t *testing.T) {
	var calls atomic.Int32
	c := New(Options{})
	c.Register(AdminContracts, counter(&calls))

	v, err := c.Get(context.Background(), AdminContracts)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.Get(context.Background(), AdminContracts)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	hit := c.Invalidate(AdminContracts)
	assert.Equal(t, []Key{AdminContracts}, hit)
	c.Wait()

	v, _, ok := c.Peek(AdminContracts)
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Invalidations(AdminContracts))
}

func TestGetUnknownView(t *testing.T) {
	c := New(Options{})
	_, err := c.Get(context.Background(), Marketplace)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestInvalidateIgnoresUnwatchedKeys(t *testing.T) {
	var calls atomic.Int32
	c := New(Options{})
	c.Register(KYCStatus, counter(&calls))

	hit := c.Invalidate(AdminContracts, Marketplace)
	c.Wait()

	assert.Empty(t, hit)
	assert.Zero(t, calls.Load())
	assert.Zero(t, c.Invalidations(KYCStatus))
}

func TestRepeatedInvalidationIsHarmless(t *testing.T) {
	var calls atomic.Int32
	c := New(Options{})
	c.Register(Marketplace, counter(&calls))

	c.Invalidate(Marketplace, Marketplace)
	c.Wait()
	c.Invalidate(Marketplace)
	c.Wait()

	v, stale, ok := c.Peek(Marketplace)
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, c.Invalidations(Marketplace))
}

func TestConcurrentGetsShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	c := New(Options{})
	c.Register(AdminStats, func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "stats", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), AdminStats)
			assert.NoError(t, err)
			assert.Equal(t, "stats", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestResultsAfterCloseAreDiscarded(t *testing.T) {
	release := make(chan struct{})
	c := New(Options{})
	c.Register(AdminUsers, func(context.Context) (any, error) {
		<-release
		return "late", nil
	})

	c.Invalidate(AdminUsers)
	c.Close()
	close(release)
	c.Wait()

	_, _, ok := c.Peek(AdminUsers)
	assert.False(t, ok)
	assert.Nil(t, c.Invalidate(AdminUsers))
}

func TestCloseDropsCachedValues(t *testing.T) {
	c := New(Options{})
	c.Register(AdminUsers, func(context.Context) (any, error) { return "admin-list", nil })

	v, err := c.Get(context.Background(), AdminUsers)
	require.NoError(t, err)
	assert.Equal(t, "admin-list", v)

	c.Close()

	_, err = c.Get(context.Background(), AdminUsers)
	assert.ErrorIs(t, err, ErrClosed)
	_, _, ok := c.Peek(AdminUsers)
	assert.False(t, ok)
}

func TestFailedRefetchKeepsLastValue(t *testing.T) {
	fail := atomic.Bool{}
	c := New(Options{})
	c.Register(OwnProfile, func(context.Context) (any, error) {
		if fail.Load() {
			return nil, errors.New("api down")
		}
		return "profile", nil
	})

	_, err := c.Get(context.Background(), OwnProfile)
	require.NoError(t, err)

	fail.Store(true)
	c.Invalidate(OwnProfile)
	c.Wait()

	v, stale, ok := c.Peek(OwnProfile)
	require.True(t, ok)
	assert.True(t, stale)
	assert.Equal(t, "profile", v)
}

func TestPanickingFetcherIsContained(t *testing.T) {
	c := New(Options{})
	c.Register(AdminActivity, func(context.Context) (any, error) { panic("boom") })

	_, err := c.Get(context.Background(), AdminActivity)
	require.Error(t, err)
}

func TestGetHonorsCallerContext(t *testing.T) {
	c := New(Options{})
	c.Register(AdminKYCQueue, func(ctx context.Context) (any, error) {
		time.Sleep(50 * time.Millisecond)
		return "queue", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, AdminKYCQueue)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatches(t *testing.T) {
	c := New(Options{})
	c.Register(AdminProjects, counter(new(atomic.Int32)))
	c.Register(Marketplace, counter(new(atomic.Int32)))

	assert.True(t, c.Watches(AdminProjects))
	assert.False(t, c.Watches(KYCStatus))
	assert.True(t, c.WatchesAny(KYCStatus, Marketplace))
	assert.Equal(t, []Key{AdminProjects, Marketplace}, c.Keys())
}
