// Package bridge wraps a plan template as an invocable tool.
//
// Invoking the bridge triggers a full nested plan execution: a fresh plan id
// is allocated, input parameters are substituted into the template's latest
// definition, and the coordinator runs the child plan while the bridge
// blocks its own worker on the asynchronous handle. Nested execution is
// logically synchronous from the parent step's perspective.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/coordinator"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/identity"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/template"
)

// EmptyResultPlaceholder is returned when a nested plan succeeds without
// producing output, so the parent step always sees a non-empty tool result.
const EmptyResultPlaceholder = "Sub-plan completed with no output."

// FailurePrefix starts every tool output the bridge synthesizes for a failed
// nested execution. The batch scheduler recognizes it as a failure marker.
const FailurePrefix = "Sub-plan execution failed"

// Bridge turns one plan template into a ports.ToolInvoker.
type Bridge struct {
	templateID     string
	conversationID string

	store       ports.TemplateStore
	dispatcher  *identity.Dispatcher
	coordinator *coordinator.Coordinator
	logger      *slog.Logger
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithLogger configures a structured logger for bridge events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithConversationID attaches a conversation id to nested executions.
func WithConversationID(conversationID string) Option {
	return func(b *Bridge) {
		b.conversationID = conversationID
	}
}

// New creates a bridge for templateID. The execution tree the nested plan
// joins is taken from each invocation's CallContext.
func New(templateID string, store ports.TemplateStore, dispatcher *identity.Dispatcher, coord *coordinator.Coordinator, opts ...Option) *Bridge {
	b := &Bridge{
		templateID:  templateID,
		store:       store,
		dispatcher:  dispatcher,
		coordinator: coord,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Invoke executes the bridged template as a nested plan and adapts its
// result into tool output text.
//
// A missing call id is a caller contract violation and returns
// domain.ErrMissingCallID. Interruption propagates as an error so the
// surrounding worker can account for it. Every other failure mode —
// template lookup, substitution, nested execution — degrades to failure
// text so sibling work continues.
func (b *Bridge) Invoke(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
	if call.CallID == "" {
		return "", fmt.Errorf("%w: sub-plan invocation of %q", domain.ErrMissingCallID, b.templateID)
	}

	root := call.RootPlanID
	if root == "" {
		// No surrounding tree: this invocation anchors a fresh one.
		root = domain.NewRootIdentity().RootPlanID
	}
	child := domain.Identity{
		RootPlanID:   root,
		PlanID:       b.dispatcher.SubPlanID(root),
		ParentPlanID: call.PlanID,
		Depth:        call.Depth + 1,
	}

	definition, err := b.store.GetLatestDefinition(ctx, b.templateID)
	if err != nil {
		return failureText(fmt.Sprintf("template %q: %v", b.templateID, err)), nil
	}

	params := make(map[string]any, len(input)+1)
	for k, v := range input {
		params[k] = v
	}
	params["plan_id"] = child.PlanID

	substituted, err := template.Substitute(definition, params)
	if err != nil {
		return failureText(err.Error()), nil
	}

	b.logger.Debug("sub-plan invocation",
		"template_id", b.templateID,
		"plan_id", child.PlanID,
		"parent_plan_id", child.ParentPlanID,
		"depth", child.Depth,
		"call_id", call.CallID,
	)

	handle := b.coordinator.Execute(ctx, coordinator.Request{
		Definition:     substituted,
		Identity:       child,
		CallID:         call.CallID,
		Source:         "subplan",
		ConversationID: b.conversationID,
	})

	result, err := handle.Wait(ctx)
	if err != nil {
		// Interruption is surfaced distinctly, not folded into result text.
		return "", err
	}

	if !result.Success {
		return failureText(result.ErrorMessage), nil
	}
	if result.FinalResult == "" {
		return EmptyResultPlaceholder, nil
	}
	return result.FinalResult, nil
}

func failureText(message string) string {
	return fmt.Sprintf("%s: %s", FailurePrefix, message)
}
