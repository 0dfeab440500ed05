package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
)

// queueCapacity bounds how many submitted tasks may wait for a worker.
// Registration volume bounds the registry, so the queue is sized generously
// rather than unbounded.
const queueCapacity = 1024

// Pool is a fixed-size worker pool with an explicit lifecycle.
// Workers receive a base context that is cancelled on forced shutdown, so
// cooperative tasks terminate even when the graceful drain window elapses.
type Pool struct {
	tasks  chan func(ctx context.Context)
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewPool creates and starts a pool of size workers.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan func(ctx context.Context), queueCapacity),
		cancel: cancel,
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task(baseCtx)
			}
		}()
	}
	return p
}

// Submit queues a task for execution on a worker.
// Returns domain.ErrPoolClosed after Shutdown.
func (p *Pool) Submit(task func(ctx context.Context)) error {
	// Read lock so concurrent submits proceed while guarding against the
	// channel close in Shutdown.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return domain.ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Shutdown drains the pool: it stops accepting work, waits up to grace for
// in-flight tasks, then cancels the workers' base context and waits for them
// to exit. Tasks that ignore their context may linger in the background; the
// pool's goroutines still terminate once they return.
func (p *Pool) Shutdown(grace time.Duration) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		p.cancel()
		<-done
	}
	p.cancel()
}
