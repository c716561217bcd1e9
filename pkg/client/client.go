package client

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mcpgate/mcpgate/pkg/router"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

// CodeConnectionError marks a transport-class failure between the
// client and the execution pipeline.
const CodeConnectionError = "CONNECTION_ERROR"

// Client is the gateway's view of the execution pipeline. Execute
// never returns an error; transport failures surface as error-status
// results so the agent loop always has something to report back to
// the model.
type Client interface {
	Execute(ctx context.Context, call tool.Call) tool.Result
	ListTools(ctx context.Context, domains []string, roles []string) []tool.Descriptor
}

// Local is a Client backed by an in-process router. It is the only
// transport today; a remote client would implement the same interface.
type Local struct {
	router   *router.Router
	registry *tool.Registry
	log      zerolog.Logger
}

// NewLocal creates a Local client.
func NewLocal(r *router.Router, registry *tool.Registry, log zerolog.Logger) *Local {
	return &Local{router: r, registry: registry, log: log}
}

// Execute forwards the call to the router. A cancelled context is the
// local transport's only failure mode and maps to a connection error
// result.
func (c *Local) Execute(ctx context.Context, call tool.Call) tool.Result {
	if err := ctx.Err(); err != nil {
		c.log.Warn().Err(err).Str("tool", call.ToolName).Msg("Call aborted before dispatch")
		return tool.Failure(call.ToolName, tool.StatusError, CodeConnectionError, err.Error())
	}
	return c.router.Execute(ctx, call)
}

// ListTools returns the model-facing descriptors for the given domains
// and caller roles.
func (c *Local) ListTools(_ context.Context, domains []string, roles []string) []tool.Descriptor {
	return c.registry.ForLLM(domains, roles)
}
