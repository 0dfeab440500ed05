package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// ToolInvoker defines how a single tool is executed.
// Implementations range from plain functions to bridges that trigger a full
// nested plan execution. The returned string is the tool's output text.
//
// Errors cross this boundary only for contract violations (e.g. a missing
// call id) and cooperative interruption; runtime failures are expected to be
// folded into the output text so sibling work can continue.
type ToolInvoker interface {
	Invoke(ctx context.Context, call domain.CallContext, input map[string]any) (string, error)
}

// ToolFunc adapts a plain function to the ToolInvoker interface.
type ToolFunc func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error)

// Invoke implements ToolInvoker.
func (f ToolFunc) Invoke(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
	return f(ctx, call, input)
}
