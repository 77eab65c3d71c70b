// Package event dispatches named domain events to registered listeners.
//
//	bus := event.New()
//	bus.Listen(event.OrderStatusChanged, func(ctx context.Context, p interface{}) { ... })
//	bus.Fire(ctx, event.OrderStatusChanged, payload)
package event

import (
	"context"
	"sync"

	"github.com/shashiranjanraj/cafe/pkg/logger"
)

const (
	OrderStatusChanged = "order.status_changed"
	OrderDeleted       = "order.deleted"
	CartItemAdded      = "cart.item_added"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload interface{})

// Dispatcher holds listeners per event name. The zero value is not usable;
// call New.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

func New() *Dispatcher {
	return &Dispatcher{handlers: map[string][]Handler{}}
}

// Listen registers handler for name.
func (d *Dispatcher) Listen(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], handler)
}

func (d *Dispatcher) listeners(name string) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hs := make([]Handler, len(d.handlers[name]))
	copy(hs, d.handlers[name])
	return hs
}

// Fire runs every listener of name synchronously. A panicking listener is
// logged and does not stop the others.
func (d *Dispatcher) Fire(ctx context.Context, name string, payload interface{}) {
	for _, h := range d.listeners(name) {
		d.call(ctx, name, h, payload)
	}
}

// FireAsync runs the listeners on their own goroutines and returns
// immediately. The context passed to listeners is detached from ctx's
// cancellation.
func (d *Dispatcher) FireAsync(ctx context.Context, name string, payload interface{}) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range d.listeners(name) {
		d.wg.Add(1)
		go func(h Handler) {
			defer d.wg.Done()
			d.call(ctx, name, h, payload)
		}(h)
	}
}

// Wait blocks until every FireAsync listener has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) call(ctx context.Context, name string, h Handler, payload interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", name, "panic", rec)
		}
	}()
	h(ctx, payload)
}
