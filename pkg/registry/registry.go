// Package registry manages the tools available to plan executions.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

type entry struct {
	invoker ports.ToolInvoker
	tool    domain.Tool
}

// Registry maps tool names to their invokers.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(name, description string, invoker ports.ToolInvoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = entry{
		invoker: invoker,
		tool:    domain.Tool{Name: name, Description: description},
	}
}

// Resolve looks up a tool's invoker by name.
// Returns domain.ErrUnknownTool if the tool is not registered.
func (r *Registry) Resolve(name string) (ports.ToolInvoker, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	return e.invoker, nil
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]domain.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		tools = append(tools, e.tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}
