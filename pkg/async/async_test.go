package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/async"
)

func TestAsync_Await(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	futureString := async.Async(ctx, 42, func(ctx context.Context, num int) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return fmt.Sprintf("Number: %d", num), nil
	})
	futureBool := async.Async(ctx, "test", func(ctx context.Context, s string) (bool, error) {
		return len(s) > 0, nil
	})

	s, err := futureString.Await()
	require.NoError(t, err)
	assert.Equal(t, "Number: 42", s)

	b, err := futureBool.Await()
	require.NoError(t, err)
	assert.True(t, b)
}

func TestAsync_PreCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	future := async.Async(ctx, 1, func(context.Context, int) (int, error) {
		called.Store(true)
		return 1, nil
	})

	_, err := future.Await()
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called.Load())
}

func TestAsync_Panic(t *testing.T) {
	t.Parallel()

	future := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
		panic("boom")
	})

	v, err := future.Await()
	assert.ErrorIs(t, err, async.ErrPanic)
	assert.Contains(t, err.Error(), "boom")
	assert.Zero(t, v)
}

func TestFuture_AwaitWithTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	future := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
		<-release
		return 7, nil
	})

	_, err := future.AwaitWithTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, async.ErrTimeout)

	close(release)
	<-future.Done()
	v, err := future.AwaitWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	for range 100 {
		v, err = future.AwaitWithTimeout(0)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
}

func TestSettle_WaitsForEveryFuture(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sentinel := errors.New("fast failure")

	var slowFinished atomic.Bool
	fastFail := async.Async(ctx, 0, func(context.Context, int) (string, error) {
		return "", sentinel
	})
	slowOK := async.Async(ctx, 0, func(context.Context, int) (string, error) {
		time.Sleep(30 * time.Millisecond)
		slowFinished.Store(true)
		return "slow", nil
	})
	panicking := async.Async(ctx, 0, func(context.Context, int) (string, error) {
		panic("bad recipient")
	})

	results := async.Settle(fastFail, slowOK, panicking)

	require.Len(t, results, 3)
	assert.True(t, slowFinished.Load())
	assert.ErrorIs(t, results[0].Err, sentinel)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "slow", results[1].Value)
	assert.ErrorIs(t, results[2].Err, async.ErrPanic)
}

func TestMap_PreservesOrderAndRunsConcurrently(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5}
	var inFlight, peak atomic.Int32

	start := time.Now()
	results := async.Map(context.Background(), items, func(_ context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inFlight.Add(-1)
		if n == 3 {
			return 0, errors.New("three")
		}
		return n * 10, nil
	})

	require.Len(t, results, len(items))
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Greater(t, peak.Load(), int32(1))
	for i, r := range results {
		if items[i] == 3 {
			assert.Error(t, r.Err)
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, items[i]*10, r.Value)
	}
}

func TestMap_Empty(t *testing.T) {
	t.Parallel()
	results := async.Map(context.Background(), []string{}, func(context.Context, string) (int, error) {
		return 0, nil
	})
	assert.Empty(t, results)
}
