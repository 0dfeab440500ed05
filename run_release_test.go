package espalier

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A waiter abandoning Run must not release the tree's sub-plan counters
// while the plan is still executing: a later sub-plan id would collide with
// one already in flight.
func TestRun_RootCountersSurviveEarlyWaiterExit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "child", "steps:\n  - tool: echo\n"))
	require.NoError(t, store.Put(ctx, "parent", "steps:\n  - tool: run_child\n  - tool: gate\n"))

	sys := New(WithStore(store))
	t.Cleanup(sys.Close)

	entered := make(chan string, 1)
	release := make(chan struct{})
	sys.RegisterTool("echo", "", ports.ToolFunc(
		func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
			return "ok", nil
		}))
	sys.RegisterTool("gate", "", ports.ToolFunc(
		func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
			entered <- call.RootPlanID
			<-release
			return "done", nil
		}))
	sys.RegisterPlanTool("run_child", "", "child")
	defer close(release)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = sys.Run(runCtx, "parent", nil)
	}()

	// run_child minted <root>.sub-1 before the gate step blocked its worker.
	root := <-entered
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after waiter cancellation")
	}

	// The gate still holds the plan open, so the counter must continue the
	// sequence rather than restart it.
	assert.Equal(t, root+".sub-2", sys.dispatcher.SubPlanID(root))
}
