package espalier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystem(t *testing.T, store *memory.Store, opts ...espalier.Option) *espalier.System {
	t.Helper()
	opts = append([]espalier.Option{espalier.WithStore(store)}, opts...)
	sys := espalier.New(opts...)
	t.Cleanup(sys.Close)
	return sys
}

func TestRun_SubstitutesAndExecutes(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "greet", "steps:\n  - tool: echo\n    args:\n      text: hello <<name>>\n"))

	sys := newSystem(t, store)
	sys.RegisterTool("echo", "repeats its text argument", ports.ToolFunc(
		func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
			return input["text"].(string), nil
		}))

	res, err := sys.Run(ctx, "greet", map[string]any{"name": "world"})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hello world", res.FinalResult)
}

func TestRun_TemplateNotFound(t *testing.T) {
	sys := newSystem(t, memory.NewStore())

	_, err := sys.Run(context.Background(), "ghost", nil)

	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestRun_NestedPlanToolsPropagateDepth(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "leaf", "steps:\n  - tool: probe\n"))
	require.NoError(t, store.Put(ctx, "middle", "steps:\n  - tool: run_leaf\n"))
	require.NoError(t, store.Put(ctx, "top", "steps:\n  - tool: run_middle\n"))

	sys := newSystem(t, store)

	var mu sync.Mutex
	var calls []domain.CallContext
	sys.RegisterTool("probe", "", ports.ToolFunc(
		func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
			mu.Lock()
			calls = append(calls, call)
			mu.Unlock()
			return "leaf reached", nil
		}))
	sys.RegisterPlanTool("run_leaf", "executes the leaf plan", "leaf")
	sys.RegisterPlanTool("run_middle", "executes the middle plan", "middle")

	res, err := sys.Run(ctx, "top", nil)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "leaf reached", res.FinalResult)

	// Root runs at depth 0, middle at 1, leaf at 2; every plan shares the root id.
	require.Len(t, calls, 1)
	assert.Equal(t, 2, calls[0].Depth)
	assert.Contains(t, calls[0].PlanID, calls[0].RootPlanID)
}

func TestRun_NestedFailureDegradesToTextInParent(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "child", "steps:\n  - tool: boom\n"))
	require.NoError(t, store.Put(ctx, "parent", "steps:\n  - tool: run_child\n  - tool: after\n"))

	sys := newSystem(t, store)
	sys.RegisterTool("boom", "", ports.ToolFunc(
		func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
			return "", errors.New("the child plan is unwell")
		}))
	sys.RegisterTool("after", "", ports.ToolFunc(
		func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
			return "after ran", nil
		}))
	sys.RegisterPlanTool("run_child", "", "child")

	res, err := sys.Run(ctx, "parent", nil)

	// The bridge folds the child's failure into text; the parent keeps going.
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "after ran", res.FinalResult)
}

func TestScheduler_BatchFanOutOverPlanTools(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "work", "steps:\n  - tool: emit\n    args:\n      label: <<label>>\n"))

	sys := newSystem(t, store, espalier.WithWorkers(3))
	sys.RegisterTool("emit", "", ports.ToolFunc(
		func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
			return "emitted", nil
		}))
	sys.RegisterPlanTool("run_work", "executes the work plan", "work")

	sched := sys.Scheduler()
	report := sched.RegisterBatch([]scheduler.Entry{
		{Name: "A", Tool: "run_work", CallID: "call-a", Input: map[string]any{"label": "a"}},
		{Name: "B", Tool: "run_work", CallID: "call-b", Input: map[string]any{"label": "b"}},
		{Name: "C", Tool: "run_work", CallID: "call-c", Input: map[string]any{"label": "c"}},
	})
	require.Empty(t, report.Errors)

	started := sched.Start(ctx)
	require.Empty(t, started.Errors)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, id := range report.IDs {
		snap, err := sched.Await(waitCtx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.FunctionCompleted, snap.Status)
		assert.Equal(t, "emitted", snap.Result)
	}
	assert.Empty(t, sched.ListPending())
}

func TestScheduler_NestedPlanFailureSettlesFailed(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "child", "steps:\n  - tool: boom\n"))

	sys := newSystem(t, store)
	sys.RegisterTool("boom", "", ports.ToolFunc(
		func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
			return "", errors.New("boom")
		}))
	sys.RegisterPlanTool("run_child", "", "child")

	sched := sys.Scheduler()
	report := sched.RegisterBatch([]scheduler.Entry{
		{Name: "doomed", Tool: "run_child", CallID: "call-d"},
	})
	require.Len(t, report.IDs, 1)
	sched.Start(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	snap, err := sched.Await(waitCtx, report.IDs[0])
	require.NoError(t, err)

	// The bridge degrades the nested failure to text; the scheduler must
	// still recognize that text as a failure, not a completed result.
	assert.Equal(t, domain.FunctionFailed, snap.Status)
	assert.Contains(t, snap.Result, "Sub-plan execution failed")
	assert.Contains(t, snap.Result, "boom")
}

func TestScheduler_EntryWithoutCallIDFailsAtBridge(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "work", "steps: []\n"))

	sys := newSystem(t, store)
	sys.RegisterPlanTool("run_work", "", "work")

	sched := sys.Scheduler()
	report := sched.RegisterBatch([]scheduler.Entry{{Name: "no-call-id", Tool: "run_work"}})
	require.Len(t, report.IDs, 1)

	sched.Start(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	snap, err := sched.Await(waitCtx, report.IDs[0])
	require.NoError(t, err)
	assert.Equal(t, domain.FunctionFailed, snap.Status)
	assert.Contains(t, snap.Result, "call id is required")
}
