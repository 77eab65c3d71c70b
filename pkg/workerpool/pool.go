// Package workerpool runs report generation on a bounded set of goroutines.
//
// When every worker is busy and the queue is full, Submit and Do fail fast
// with ErrPoolFull so the HTTP layer can answer 429 instead of piling up
// CPU-bound work.
//
//	pool := workerpool.New(2, 4)
//	defer pool.Shutdown()
//
//	err := pool.Do(ctx, func() error { return buildReport() })
//	if errors.Is(err, workerpool.ErrPoolFull) { ... }
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Pool is a bounded goroutine pool.
type Pool struct {
	tasks   chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	closeCh chan struct{}
	once    sync.Once
}

// New starts size workers with room for queue waiting tasks. A queue below
// zero defaults to twice the worker count.
func New(size, queue int) *Pool {
	if size <= 0 {
		size = 1
	}
	if queue < 0 {
		queue = size * 2
	}
	p := &Pool{
		tasks:   make(chan func(), queue),
		closeCh: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued or the pool shuts down.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case <-p.closeCh:
		return ErrPoolClosed
	case p.tasks <- task:
		return nil
	}
}

// Do queues fn without blocking and waits for its result or ctx. A panic in
// fn is returned as an error. If ctx ends first fn still runs to completion.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	err := p.Submit(func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("workerpool: task panicked: %v", rec)
			}
		}()
		done <- fn()
	})
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks, drains the queue and waits for workers.
// Safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.closeCh)
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		safeRun(task)
	}
}

func safeRun(task func()) {
	defer func() { recover() }() //nolint:errcheck
	task()
}
