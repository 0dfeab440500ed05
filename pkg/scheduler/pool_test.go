package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	p := scheduler.NewPool(2)
	defer p.Shutdown(time.Second)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := p.Submit(func(ctx context.Context) {
			defer wg.Done()
			now := running.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2), "more tasks ran concurrently than workers")
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := scheduler.NewPool(1)
	p.Shutdown(time.Second)

	err := p.Submit(func(ctx context.Context) {})

	assert.ErrorIs(t, err, domain.ErrPoolClosed)
}

func TestPool_ShutdownDrainsQueuedTasks(t *testing.T) {
	p := scheduler.NewPool(1)

	var done atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
			done.Add(1)
		}))
	}

	p.Shutdown(time.Second)

	assert.Equal(t, int32(5), done.Load())
}

func TestPool_ForcedShutdownCancelsBaseContext(t *testing.T) {
	p := scheduler.NewPool(1)

	interrupted := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		<-ctx.Done()
		close(interrupted)
	}))

	start := time.Now()
	p.Shutdown(20 * time.Millisecond)

	select {
	case <-interrupted:
	case <-time.After(time.Second):
		t.Fatal("forced shutdown did not cancel the base context")
	}
	assert.Less(t, time.Since(start), time.Second)
}
