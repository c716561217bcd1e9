package client

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgate/mcpgate/pkg/audit"
	"github.com/mcpgate/mcpgate/pkg/router"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

type echoAdapter struct{}

func (echoAdapter) Domain() string { return "hr" }

func (echoAdapter) Execute(_ context.Context, action string, params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	return map[string]interface{}{"action": action, "params": params}, nil
}

func newLocal(t *testing.T) *Local {
	t.Helper()

	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.Definition{
		Name:          "get_employee",
		Domain:        "hr",
		Description:   "Look up an employee",
		ExecutionType: tool.ExecutionRead,
		Permissions:   tool.Permission{Level: tool.LevelPublic},
	}))
	require.NoError(t, registry.Register(tool.Definition{
		Name:          "list_pods",
		Domain:        "devops",
		Description:   "List pods",
		ExecutionType: tool.ExecutionRead,
		Permissions:   tool.Permission{Level: tool.LevelPublic},
	}))

	auditor, err := audit.NewLogger(filepath.Join(t.TempDir(), "audit.jsonl"), 100, zerolog.Nop())
	require.NoError(t, err)

	r := router.New(registry, tool.NewAuthorizer(), auditor, zerolog.Nop())
	r.RegisterAdapter(echoAdapter{})

	return NewLocal(r, registry, zerolog.Nop())
}

func TestLocalExecute(t *testing.T) {
	local := newLocal(t)

	t.Run("forwards to the router", func(t *testing.T) {
		result := local.Execute(context.Background(), tool.Call{
			ToolName:   "hr.get_employee",
			Parameters: map[string]interface{}{"employee_id": "E1"},
		})
		assert.Equal(t, tool.StatusSuccess, result.Status)
	})

	t.Run("cancelled context becomes a connection error result", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := local.Execute(ctx, tool.Call{ToolName: "hr.get_employee"})
		assert.Equal(t, tool.StatusError, result.Status)
		assert.Equal(t, CodeConnectionError, result.ErrorCode)
	})
}

func TestDiscovery(t *testing.T) {
	local := newLocal(t)

	t.Run("groups descriptors by domain", func(t *testing.T) {
		disc := NewDiscovery(local, time.Minute)
		grouped := disc.ByDomain(context.Background())

		require.Len(t, grouped, 2)
		assert.Len(t, grouped["hr"], 1)
		assert.Len(t, grouped["devops"], 1)
	})

	t.Run("serves from cache until invalidated", func(t *testing.T) {
		counting := &countingClient{Client: local}
		disc := NewDiscovery(counting, time.Minute)

		disc.ByDomain(context.Background())
		disc.ByDomain(context.Background())
		assert.Equal(t, 1, counting.listCalls)

		disc.Invalidate()
		disc.ByDomain(context.Background())
		assert.Equal(t, 2, counting.listCalls)
	})

	t.Run("stale cache refetches", func(t *testing.T) {
		counting := &countingClient{Client: local}
		disc := NewDiscovery(counting, time.Millisecond)

		disc.ByDomain(context.Background())
		time.Sleep(5 * time.Millisecond)
		disc.ByDomain(context.Background())
		assert.Equal(t, 2, counting.listCalls)
	})

	t.Run("find locates a tool by qualified name", func(t *testing.T) {
		disc := NewDiscovery(local, time.Minute)

		desc, ok := disc.Find(context.Background(), "devops.list_pods")
		require.True(t, ok)
		assert.Equal(t, "devops.list_pods", desc.Function.Name)

		_, ok = disc.Find(context.Background(), "devops.nope")
		assert.False(t, ok)
	})
}

type countingClient struct {
	Client
	listCalls int
}

func (c *countingClient) ListTools(ctx context.Context, domains []string, roles []string) []tool.Descriptor {
	c.listCalls++
	return c.Client.ListTools(ctx, domains, roles)
}
