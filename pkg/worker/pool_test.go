package worker

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

	sferrors "github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/metric"
)

type testWork struct {
	id   int
	fail bool
	wait chan struct{}
}

func noop(_ context.Context, _ testWork) error { return nil }

func TestNewPool_Defaults(t *testing.T) {
	pool, err := NewPool(5, 100, noop)
	require.NoError(t, err)
	assert.Equal(t, 5, pool.workers)
	assert.Equal(t, 100, pool.queueSize)

	pool, err = NewPool(0, 0, noop)
	require.NoError(t, err)
	assert.Equal(t, 4, pool.workers)
	assert.Equal(t, 1024, pool.queueSize)
}

func TestNewPool_NilProcessor(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilProcessor, func() {
		_, _ = NewPool[testWork](1, 1, nil)
	})
}

func TestPool_LifecycleErrors(t *testing.T) {
	pool, err := NewPool(1, 1, noop)
	require.NoError(t, err)

	assert.ErrorIs(t, pool.Submit(testWork{}), ErrPoolNotStarted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))
	assert.ErrorIs(t, pool.Start(ctx), ErrPoolAlreadyStarted)

	require.NoError(t, pool.Stop(time.Second))
	require.NoError(t, pool.Stop(time.Second))
	assert.ErrorIs(t, pool.Submit(testWork{}), ErrPoolStopped)
}

func TestPool_ProcessesAllWork(t *testing.T) {
	var processed atomic.Int64
	var wg sync.WaitGroup

	pool, err := NewPool(4, 64, func(_ context.Context, w testWork) error {
		defer wg.Done()
		processed.Add(1)
		if w.fail {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	for i := 0; i < 50; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(testWork{id: i, fail: i%10 == 0}))
	}
	wg.Wait()
	require.NoError(t, pool.Stop(time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(50), processed.Load())
	assert.Equal(t, int64(50), stats.Submitted)
	assert.Equal(t, int64(50), stats.Processed)
	assert.Equal(t, int64(5), stats.Failed)
	assert.Equal(t, 0, stats.Busy)
}

func TestPool_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	pool, err := NewPool(1, 1, func(_ context.Context, w testWork) error {
		if w.wait != nil {
			started <- struct{}{}
			<-w.wait
		}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	// occupy the single worker, then fill the single queue slot
	require.NoError(t, pool.Submit(testWork{wait: release}))
	<-started
	require.NoError(t, pool.Submit(testWork{id: 1}))

	err = pool.Submit(testWork{id: 2})
	require.ErrorIs(t, err, ErrQueueFull)
	assert.True(t, sferrors.IsTransient(err))
	assert.Equal(t, int64(1), pool.Stats().Dropped)

	close(release)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPool_StopTimeout(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	pool, err := NewPool(1, 1, func(_ context.Context, w testWork) error {
		close(started)
		<-w.wait
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))
	require.NoError(t, pool.Submit(testWork{wait: release}))
	<-started

	assert.ErrorIs(t, pool.Stop(10*time.Millisecond), ErrStopTimeout)
	close(release)
}

func TestPool_ContextCancellationStopsWorkers(t *testing.T) {
	pool, err := NewPool(2, 4, noop)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pool.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		pool.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("workers did not exit after context cancellation")
	}
}

func TestPool_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry(metric.WithoutRuntimeCollectors())

	var wg sync.WaitGroup
	pool, err := NewPool(2, 8, func(_ context.Context, w testWork) error {
		defer wg.Done()
		if w.fail {
			return errors.New("boom")
		}
		return nil
	}, WithMetricsRegistry[testWork](registry, "test"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	wg.Add(3)
	require.NoError(t, pool.Submit(testWork{}))
	require.NoError(t, pool.Submit(testWork{}))
	require.NoError(t, pool.Submit(testWork{fail: true}))
	wg.Wait()
	require.NoError(t, pool.Stop(time.Second))

	assert.Equal(t, 3.0, testutil.ToFloat64(pool.metrics.submitted))
	assert.Equal(t, 3.0, testutil.ToFloat64(pool.metrics.processed))
	assert.Equal(t, 1.0, testutil.ToFloat64(pool.metrics.failed))

	// a second pool under the same name cannot register
	_, err = NewPool(1, 1, noop, WithMetricsRegistry[testWork](registry, "test"))
	assert.Error(t, err)
}
