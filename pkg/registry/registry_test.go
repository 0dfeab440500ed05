package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() ports.ToolInvoker {
	return ports.ToolFunc(func(ctx context.Context, call domain.CallContext, input map[string]any) (string, error) {
		return "echo", nil
	})
}

func TestRegistry_ResolveRegistered(t *testing.T) {
	r := registry.NewRegistry()
	r.Register("echo", "repeats its input", echoTool())

	invoker, err := r.Resolve("echo")

	require.NoError(t, err)
	out, err := invoker.Invoke(context.Background(), domain.CallContext{CallID: "c1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "echo", out)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := registry.NewRegistry()

	_, err := r.Resolve("nope")

	assert.ErrorIs(t, err, domain.ErrUnknownTool)
}

func TestRegistry_ListSorted(t *testing.T) {
	r := registry.NewRegistry()
	r.Register("zeta", "", echoTool())
	r.Register("alpha", "first", echoTool())

	tools := r.List()

	require.Len(t, tools, 2)
	assert.Equal(t, "alpha", tools[0].Name)
	assert.Equal(t, "zeta", tools[1].Name)
}
