// Package coordinator executes single plans asynchronously.
//
// The coordinator is the only place that advances a plan's status through
// PREPARING -> RUNNING -> {COMPLETED|FAILED}, with CANCELLED reachable from
// the two non-terminal states via cooperative cancellation. Submission is
// non-blocking: Execute returns a Handle immediately and the plan runs on
// its own goroutine.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// ToolResolver resolves a step's tool name to its invoker.
// *registry.Registry satisfies this.
type ToolResolver interface {
	Resolve(name string) (ports.ToolInvoker, error)
}

// Request carries everything needed to execute one plan.
// The definition and params are treated as immutable once submitted.
type Request struct {
	Definition     string
	Identity       domain.Identity
	CallID         string
	Source         string
	PriorContext   string
	ConversationID string
}

// Coordinator runs plans against a tool resolver.
type Coordinator struct {
	resolver ToolResolver
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]*Handle
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithLogger configures a structured logger for execution events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// New creates a Coordinator resolving step tools through resolver.
func New(resolver ToolResolver, opts ...Option) *Coordinator {
	c := &Coordinator{
		resolver: resolver,
		logger:   logging.NewNop(),
		inflight: make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute submits a plan for execution and returns immediately.
//
// At most one execution per plan id is ever in flight; a duplicate
// submission resolves to a failed result without running. All internal
// failures resolve the handle to {Success:false, ErrorMessage} rather than
// crossing the asynchronous boundary; interruption is surfaced distinctly
// through the handle's error return.
func (c *Coordinator) Execute(ctx context.Context, req Request) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := newHandle(req.Identity, cancel)

	c.mu.Lock()
	if _, dup := c.inflight[req.Identity.PlanID]; dup {
		c.mu.Unlock()
		cancel()
		h.complete(domain.PlanFailed, domain.Failure(
			fmt.Sprintf("%v: %s", domain.ErrPlanInFlight, req.Identity.PlanID)), nil)
		return h
	}
	c.inflight[req.Identity.PlanID] = h
	c.mu.Unlock()

	go c.run(runCtx, req, h)
	return h
}

// InFlight returns the number of executions that have not yet resolved.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

func (c *Coordinator) run(ctx context.Context, req Request, h *Handle) {
	defer func() {
		c.mu.Lock()
		delete(c.inflight, req.Identity.PlanID)
		c.mu.Unlock()
	}()
	// Execution errors must never escape the goroutine.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("plan execution panicked",
				"plan_id", req.Identity.PlanID, "panic", r)
			h.complete(domain.PlanFailed, domain.Failure(fmt.Sprintf("plan execution panicked: %v", r)), nil)
		}
	}()

	c.logger.Debug("plan execution started",
		"plan_id", req.Identity.PlanID,
		"root_plan_id", req.Identity.RootPlanID,
		"parent_plan_id", req.Identity.ParentPlanID,
		"depth", req.Identity.Depth,
		"source", req.Source,
		"conversation_id", req.ConversationID,
	)

	doc, err := parseDefinition(req.Definition)
	if err != nil {
		c.finish(h, req, domain.PlanFailed, domain.Failure(err.Error()), nil)
		return
	}

	if !h.advance(domain.PlanRunning) {
		// Cancelled before the first step ran.
		return
	}

	final, err := c.runSteps(ctx, req, doc)
	switch {
	case err == nil:
		c.finish(h, req, domain.PlanCompleted, domain.Result{Success: true, FinalResult: final}, nil)
	case isInterruption(err):
		c.finish(h, req, domain.PlanCancelled,
			domain.Failure(domain.ErrInterrupted.Error()),
			fmt.Errorf("%w: %s", domain.ErrInterrupted, req.Identity.PlanID))
	default:
		c.finish(h, req, domain.PlanFailed, domain.Failure(err.Error()), nil)
	}
}

// runSteps walks the plan's steps in order and returns the last step's output.
func (c *Coordinator) runSteps(ctx context.Context, req Request, doc *planDoc) (string, error) {
	var final string
	for i, s := range doc.Steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		invoker, err := c.resolver.Resolve(s.Tool)
		if err != nil {
			return "", err
		}

		call := domain.CallContext{
			CallID:     stepCallID(req.Identity.PlanID, i),
			RootPlanID: req.Identity.RootPlanID,
			PlanID:     req.Identity.PlanID,
			Depth:      req.Identity.Depth,
		}

		out, err := invoker.Invoke(ctx, call, cloneArgs(s.Args))
		if err != nil {
			if isInterruption(err) {
				return "", err
			}
			return "", fmt.Errorf("step %d (%s) failed: %w", i+1, s.Tool, err)
		}

		c.logger.Debug("plan step completed",
			"plan_id", req.Identity.PlanID, "step", i+1, "tool", s.Tool)
		final = out
	}
	return final, nil
}

func (c *Coordinator) finish(h *Handle, req Request, status domain.PlanStatus, result domain.Result, err error) {
	h.complete(status, result, err)
	c.logger.Debug("plan execution finished",
		"plan_id", req.Identity.PlanID, "status", string(status), "success", result.Success)
}

// stepCallID derives a call correlation token for a step the coordinator
// itself dispatches. Nested bridges require one and never invent their own.
func stepCallID(planID string, stepIndex int) string {
	return fmt.Sprintf("%s#%d", planID, stepIndex+1)
}

func isInterruption(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrInterrupted)
}
