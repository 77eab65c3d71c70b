package event_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/cafe/pkg/event"
)

func TestFireCallsListenersInOrder(t *testing.T) {
	bus := event.New()
	var got []string
	bus.Listen("x", func(_ context.Context, p interface{}) { got = append(got, "a:"+p.(string)) })
	bus.Listen("x", func(_ context.Context, p interface{}) { got = append(got, "b:"+p.(string)) })
	bus.Listen("y", func(context.Context, interface{}) { got = append(got, "y") })

	bus.Fire(context.Background(), "x", "1")

	assert.Equal(t, []string{"a:1", "b:1"}, got)
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	bus := event.New()
	called := false
	bus.Listen("x", func(context.Context, interface{}) { panic("boom") })
	bus.Listen("x", func(context.Context, interface{}) { called = true })

	assert.NotPanics(t, func() { bus.Fire(context.Background(), "x", nil) })
	assert.True(t, called)
}

func TestFireAsyncSurvivesCancelledContext(t *testing.T) {
	bus := event.New()
	var n int32
	bus.Listen("x", func(ctx context.Context, _ interface{}) {
		if ctx.Err() == nil {
			atomic.AddInt32(&n, 1)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.FireAsync(ctx, "x", nil)
	bus.FireAsync(ctx, "x", nil)
	bus.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&n))
}
