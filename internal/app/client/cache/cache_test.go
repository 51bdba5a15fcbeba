package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoctl/internal/app/client/metrics"
)

func counter(n *atomic.Int32, v string) FetchFunc[string] {
	return func(context.Context) (string, error) {
		n.Add(1)
		return v, nil
	}
}

func TestCache_HitAndMiss(t *testing.T) {
	m := metrics.New()
	c := New[string]("todos", time.Minute, WithMetrics[string](m))
	ctx := context.Background()
	var calls atomic.Int32

	v, err := c.Get(ctx, "k", counter(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = c.Get(ctx, "k", counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.EqualValues(t, 1, calls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("todos")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("todos")))
}

func TestCache_StaleTimeExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string]("user", 5*time.Minute, WithClock[string](func() time.Time { return now }))
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Get(ctx, "me", counter(&calls, "a"))
	require.NoError(t, err)

	now = now.Add(4 * time.Minute)
	assert.False(t, c.Stale("me"))

	now = now.Add(time.Minute)
	assert.True(t, c.Stale("me"))

	v, err := c.Get(ctx, "me", counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCache_FetchErrorNotCached(t *testing.T) {
	c := New[string]("todos", time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := c.Get(ctx, "k", func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, c.Stale("k"))

	_, ok := c.Peek("k")
	assert.False(t, ok)
}

func TestCache_InvalidateIsIdempotent(t *testing.T) {
	ctx := context.Background()

	once := New[string]("todos", 0)
	twice := New[string]("todos", 0)
	for _, c := range []*Cache[string]{once, twice} {
		_, err := c.Get(ctx, "todos?skip=0", counter(new(atomic.Int32), "v"))
		require.NoError(t, err)
	}

	once.Invalidate("todos?skip=0")
	twice.Invalidate("todos?skip=0")
	twice.Invalidate("todos?skip=0")

	assert.Equal(t, once.Stale("todos?skip=0"), twice.Stale("todos?skip=0"))
	assert.True(t, twice.Stale("todos?skip=0"))

	v1, _ := once.Peek("todos?skip=0")
	v2, _ := twice.Peek("todos?skip=0")
	assert.Equal(t, v1, v2, "invalidation never edits the cached value")
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New[string]("todos", 0)
	ctx := context.Background()

	for _, key := range []string{"todos?skip=0", "todos?skip=10", "todos-analytics"} {
		_, err := c.Get(ctx, key, counter(new(atomic.Int32), key))
		require.NoError(t, err)
	}

	c.InvalidatePrefix("todos?")

	assert.True(t, c.Stale("todos?skip=0"))
	assert.True(t, c.Stale("todos?skip=10"))
	assert.False(t, c.Stale("todos-analytics"))
}

func TestCache_SharesInFlightFetch(t *testing.T) {
	c := New[string]("todos", time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = c.Get(ctx, "k", fetch)
	}()
	<-started
	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Get(ctx, "k", fetch)
		}(i)
	}

	// даем остальным горутинам дойти до singleflight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, "v", r)
	}
}

func TestCache_CancelledCallerDoesNotCancelSharedFetch(t *testing.T) {
	c := New[string]("user", time.Minute, WithFetchTimeout[string](time.Second))

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return "alice", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(firstCtx, "me", fetch)
		firstErr <- err
	}()
	<-started

	second := make(chan string, 1)
	go func() {
		v, err := c.Get(context.Background(), "me", fetch)
		assert.NoError(t, err)
		second <- v
	}()

	// даем второму вызову присоединиться к запросу
	time.Sleep(50 * time.Millisecond)
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, "alice", <-second)
	assert.EqualValues(t, 1, calls.Load())
	assert.False(t, c.Stale("me"))
}

func TestCache_FetchTimeout(t *testing.T) {
	c := New[string]("user", time.Minute, WithFetchTimeout[string](20*time.Millisecond))

	_, err := c.Get(context.Background(), "me", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, c.Stale("me"))
}

func TestCache_FetchFinishingAfterInvalidationStaysStale(t *testing.T) {
	c := New[string]("todos", 0)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Get(ctx, "todos?skip=0", func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()

	<-started
	c.InvalidatePrefix("todos?")
	close(release)
	<-done

	v, ok := c.Peek("todos?skip=0")
	require.True(t, ok)
	assert.Equal(t, "old", v)
	assert.True(t, c.Stale("todos?skip=0"))

	var calls atomic.Int32
	v, err := c.Get(ctx, "todos?skip=0", counter(&calls, "new"))
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.EqualValues(t, 1, calls.Load())
}

func TestCache_Clear(t *testing.T) {
	c := New[string]("user", 0)
	ctx := context.Background()

	_, err := c.Get(ctx, "me", counter(new(atomic.Int32), "alice"))
	require.NoError(t, err)

	c.Clear()

	assert.Zero(t, c.Len())
	_, ok := c.Peek("me")
	assert.False(t, ok)
}
