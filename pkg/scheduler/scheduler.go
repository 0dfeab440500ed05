// Package scheduler fans out batches of tool invocations onto a fixed-size
// worker pool.
//
// The registry of Function Execution States is owned by the Scheduler: only
// the Scheduler mutates it, and external code observes snapshots. Entries are
// appended on registration and removed only by Cleanup.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/bridge"
	"github.com/aretw0/espalier/pkg/coordinator"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 4

// DefaultShutdownGrace is how long Close waits for in-flight functions
// before forcing cooperative termination.
const DefaultShutdownGrace = 5 * time.Second

// Entry describes one batch function to register.
// Name and Tool are required; Tool names a registered tool (typically a
// sub-plan bridge).
type Entry struct {
	Name         string         `json:"name" yaml:"name" mapstructure:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Tool         string         `json:"tool" yaml:"tool" mapstructure:"tool"`
	CallID       string         `json:"call_id,omitempty" yaml:"call_id,omitempty" mapstructure:"call_id"`
	RootPlanID   string         `json:"root_plan_id,omitempty" yaml:"root_plan_id,omitempty" mapstructure:"root_plan_id"`
	ParentPlanID string         `json:"parent_plan_id,omitempty" yaml:"parent_plan_id,omitempty" mapstructure:"parent_plan_id"`
	Depth        int            `json:"depth,omitempty" yaml:"depth,omitempty" mapstructure:"depth"`
	Input        map[string]any `json:"input,omitempty" yaml:"input,omitempty" mapstructure:"input"`
}

// Report is the partial-success outcome of RegisterBatch and Start.
type Report struct {
	IDs    []int64
	Errors []string
}

// Scheduler registers, starts, tracks, and cancels concurrent tool invocations.
type Scheduler struct {
	resolver coordinator.ToolResolver
	pool     *Pool
	logger   *slog.Logger
	metrics  *metrics
	grace    time.Duration

	mu        sync.RWMutex
	functions map[int64]*functionState
	nextID    atomic.Int64
}

// Option configures the Scheduler.
type Option func(*options)

type options struct {
	workers    int
	logger     *slog.Logger
	registerer prometheus.Registerer
	grace      time.Duration
}

// WithWorkers sets the fixed worker pool size.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger configures a structured logger for scheduler events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the scheduler's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithShutdownGrace sets the drain window used by Close.
func WithShutdownGrace(grace time.Duration) Option {
	return func(o *options) {
		o.grace = grace
	}
}

// New creates a Scheduler resolving tools through resolver and starts its
// worker pool. Callers own the lifecycle and must Close it.
func New(resolver coordinator.ToolResolver, opts ...Option) *Scheduler {
	o := &options{
		workers: DefaultWorkers,
		logger:  logging.NewNop(),
		grace:   DefaultShutdownGrace,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Scheduler{
		resolver:  resolver,
		pool:      NewPool(o.workers),
		logger:    o.logger,
		metrics:   newMetrics(o.registerer),
		grace:     o.grace,
		functions: make(map[int64]*functionState),
	}
}

// RegisterBatch validates and registers entries, assigning each a fresh
// function id. Invalid entries are skipped and reported individually; the
// batch partially succeeds rather than aborting on the first bad entry.
func (s *Scheduler) RegisterBatch(entries []Entry) Report {
	var report Report
	for i, entry := range entries {
		if entry.Name == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("entry %d: name is required", i+1))
			continue
		}
		if entry.Tool == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("entry %d (%s): tool is required", i+1, entry.Name))
			continue
		}
		invoker, err := s.resolver.Resolve(entry.Tool)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("entry %d (%s): %v", i+1, entry.Name, err))
			continue
		}

		id := s.nextID.Add(1)
		// Own the input map so executions never observe caller mutations
		// made after registration.
		entry.Input = cloneInput(entry.Input)
		st := newFunctionState(id, entry, invoker)

		s.mu.Lock()
		s.functions[id] = st
		s.mu.Unlock()

		s.metrics.registered.Inc()
		s.logger.Debug("function registered", "function_id", id, "name", entry.Name, "tool", entry.Tool)
		report.IDs = append(report.IDs, id)
	}
	return report
}

// Start submits the selected functions to the worker pool. With no ids, every
// currently REGISTERED function is started. A function outside REGISTERED
// status yields a per-item error and is never re-executed.
func (s *Scheduler) Start(ctx context.Context, ids ...int64) Report {
	if len(ids) == 0 {
		ids = s.pendingIDs()
	}

	var report Report
	for _, id := range ids {
		s.mu.RLock()
		st, ok := s.functions[id]
		s.mu.RUnlock()
		if !ok {
			report.Errors = append(report.Errors, fmt.Sprintf("function %d: not found", id))
			continue
		}
		if !st.claim() {
			report.Errors = append(report.Errors, fmt.Sprintf("function %d (%s): not in registered status", id, st.entry.Name))
			continue
		}

		if err := s.pool.Submit(func(poolCtx context.Context) {
			s.execute(ctx, poolCtx, st)
		}); err != nil {
			// The function never ran, so only the finished counter moves;
			// the running gauge never rose for it.
			if st.finish(domain.FunctionFailed, err.Error()) {
				s.metrics.finished.WithLabelValues(string(domain.FunctionFailed)).Inc()
			}
			report.Errors = append(report.Errors, fmt.Sprintf("function %d (%s): %v", id, st.entry.Name, err))
			continue
		}

		s.metrics.started.Inc()
		report.IDs = append(report.IDs, id)
	}
	return report
}

// ListPending returns the functions still in REGISTERED status, with enough
// metadata to decide what to start next.
func (s *Scheduler) ListPending() []Snapshot {
	s.mu.RLock()
	states := make([]*functionState, 0, len(s.functions))
	for _, st := range s.functions {
		states = append(states, st)
	}
	s.mu.RUnlock()

	var pending []Snapshot
	for _, st := range states {
		if snap, ok := st.pendingSnapshot(); ok {
			pending = append(pending, snap)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending
}

// Snapshot returns the current view of one function.
func (s *Scheduler) Snapshot(id int64) (Snapshot, bool) {
	s.mu.RLock()
	st, ok := s.functions[id]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return st.snapshot(), true
}

// Await blocks until the function reaches a terminal status or ctx is done.
func (s *Scheduler) Await(ctx context.Context, id int64) (Snapshot, error) {
	s.mu.RLock()
	st, ok := s.functions[id]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("function %d: not found", id)
	}
	select {
	case <-st.done:
		return st.snapshot(), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Cleanup cancels every running function (best-effort cooperative
// interruption), forces non-terminal functions to CANCELLED, and clears the
// registry. It is the only operation that removes entries.
func (s *Scheduler) Cleanup() {
	s.mu.Lock()
	states := make([]*functionState, 0, len(s.functions))
	for _, st := range s.functions {
		states = append(states, st)
	}
	s.functions = make(map[int64]*functionState)
	s.mu.Unlock()

	for _, st := range states {
		prev := st.interrupt()
		if !prev.Terminal() {
			if prev == domain.FunctionRunning {
				s.metrics.running.Dec()
			}
			s.metrics.finished.WithLabelValues(string(domain.FunctionCancelled)).Inc()
			s.logger.Debug("function cancelled", "function_id", st.id, "name", st.entry.Name, "previous_status", string(prev))
		}
	}
}

// Close drains the worker pool: graceful wait for the configured grace
// period, then forced cooperative termination.
func (s *Scheduler) Close() {
	s.pool.Shutdown(s.grace)
}

// execute runs one claimed function on a worker. Errors raised by the tool
// are converted into FAILED results; nothing propagates out of the worker.
func (s *Scheduler) execute(ctx, poolCtx context.Context, st *functionState) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Forced pool shutdown interrupts the invocation too.
	stop := context.AfterFunc(poolCtx, cancel)
	defer stop()

	if !st.begin(cancel) {
		// Cleanup won the race before the worker picked the function up.
		return
	}
	s.metrics.running.Inc()
	s.logger.Debug("function running", "function_id", st.id, "name", st.entry.Name)

	defer func() {
		if r := recover(); r != nil {
			s.settle(st, domain.FunctionFailed, fmt.Sprintf("tool panicked: %v", r))
		}
	}()

	call := domain.CallContext{
		CallID:     st.entry.CallID,
		RootPlanID: st.entry.RootPlanID,
		PlanID:     st.entry.ParentPlanID,
		Depth:      st.entry.Depth,
	}
	out, err := st.invoker.Invoke(runCtx, call, st.entry.Input)

	switch {
	case err != nil && isInterruption(err):
		// Cleanup already forced CANCELLED; settling is a no-op then.
		s.settle(st, domain.FunctionCancelled, domain.ErrInterrupted.Error())
	case err != nil:
		s.settle(st, domain.FunctionFailed, err.Error())
	case looksLikeFailure(out):
		s.settle(st, domain.FunctionFailed, out)
	default:
		s.settle(st, domain.FunctionCompleted, out)
	}
}

func (s *Scheduler) settle(st *functionState, status domain.FunctionStatus, result string) {
	if !st.finish(status, result) {
		return
	}
	s.metrics.running.Dec()
	s.metrics.finished.WithLabelValues(string(status)).Inc()
	s.logger.Debug("function finished", "function_id", st.id, "name", st.entry.Name, "status", string(status))
}

func (s *Scheduler) pendingIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.functions))
	for id, st := range s.functions {
		if _, ok := st.pendingSnapshot(); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// looksLikeFailure scans tool output for failure markers: the generic
// Error/Failed markers plus the text the sub-plan bridge synthesizes for a
// failed nested execution. This mirrors how the surrounding agent layer
// reports tool errors as text, and it is knowingly heuristic: legitimate
// output mentioning these words is misclassified as a failure.
func looksLikeFailure(output string) bool {
	return strings.Contains(output, "Error") ||
		strings.Contains(output, "Failed") ||
		strings.Contains(output, bridge.FailurePrefix)
}

func cloneInput(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = v
	}
	return out
}

func isInterruption(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrInterrupted)
}
