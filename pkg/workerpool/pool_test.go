package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/cafe/pkg/workerpool"
)

func TestSubmitWaitRunsEveryTask(t *testing.T) {
	pool := workerpool.New(4, -1)
	defer pool.Shutdown()

	const n = 100
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, pool.SubmitWait(func() {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int64(n), count.Load())
}

func TestSubmitReportsFull(t *testing.T) {
	pool := workerpool.New(1, 2)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.SubmitWait(func() {
		close(started)
		<-blocker
	}))
	<-started

	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))
	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolFull)
	assert.ErrorIs(t, pool.Do(context.Background(), func() error { return nil }), workerpool.ErrPoolFull)

	close(blocker)
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := workerpool.New(2, -1)
	pool.Shutdown()
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolClosed)
	assert.ErrorIs(t, pool.SubmitWait(func() {}), workerpool.ErrPoolClosed)
}

func TestDoReturnsResultAndPanics(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Shutdown()

	boom := errors.New("boom")
	assert.ErrorIs(t, pool.Do(context.Background(), func() error { return boom }), boom)
	assert.NoError(t, pool.Do(context.Background(), func() error { return nil }))

	err := pool.Do(context.Background(), func() error { panic("bad") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	// The worker survives the panic.
	assert.NoError(t, pool.Do(context.Background(), func() error { return nil }))
}

func TestDoHonoursContext(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Do(ctx, func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
