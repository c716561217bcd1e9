package gateway

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgate/mcpgate/pkg/audit"
	"github.com/mcpgate/mcpgate/pkg/client"
	"github.com/mcpgate/mcpgate/pkg/conversation"
	"github.com/mcpgate/mcpgate/pkg/domains/hr"
	"github.com/mcpgate/mcpgate/pkg/router"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

// scriptedProvider replays a fixed sequence of responses.
type scriptedProvider struct {
	responses []*Response
	err       error
	calls     int
	requests  []Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, request Request) (*Response, error) {
	p.requests = append(p.requests, request)
	if p.err != nil {
		return nil, p.err
	}
	idx := p.calls
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	p.calls++
	return p.responses[idx], nil
}

type recordingClient struct {
	client.Client
	executed []string
	calls    []tool.Call
}

func (c *recordingClient) Execute(ctx context.Context, call tool.Call) tool.Result {
	c.executed = append(c.executed, call.ToolName)
	c.calls = append(c.calls, call)
	return c.Client.Execute(ctx, call)
}

func newTestGateway(t *testing.T, provider Provider) (*Gateway, *recordingClient, *conversation.Store) {
	t.Helper()

	registry := tool.NewRegistry()
	hrAdapter := hr.New()
	require.NoError(t, registry.RegisterAll(hrAdapter.Tools()))

	auditor, err := audit.NewLogger(filepath.Join(t.TempDir(), "audit.jsonl"), 100, zerolog.Nop())
	require.NoError(t, err)

	r := router.New(registry, tool.NewAuthorizer(), auditor, zerolog.Nop())
	r.RegisterAdapter(hrAdapter)

	recorder := &recordingClient{Client: client.NewLocal(r, registry, zerolog.Nop())}
	store := conversation.NewStore(50, time.Hour, zerolog.Nop())

	g := New(provider, recorder, store, Config{Model: "test-model"}, zerolog.Nop())
	return g, recorder, store
}

func identity() tool.Identity {
	return tool.Identity{ID: "u1", Username: "alice", Roles: []string{"employee"}}
}

func TestProcessMessage(t *testing.T) {
	t.Run("plain answer without tool calls", func(t *testing.T) {
		provider := &scriptedProvider{responses: []*Response{
			{Content: "Hello! How can I help?"},
		}}
		g, recorder, store := newTestGateway(t, provider)

		reply, err := g.ProcessMessage(context.Background(), "", "hi", identity(), nil)
		require.NoError(t, err)
		assert.Equal(t, "Hello! How can I help?", reply.Response)
		assert.NotEmpty(t, reply.ConversationID)
		assert.NotEmpty(t, reply.RequestID)
		assert.Empty(t, recorder.executed)

		conv := store.Get(reply.ConversationID)
		require.NotNil(t, conv)
		assert.Equal(t, "u1", conv.UserID)
		// system + user + assistant
		require.Len(t, conv.Messages, 3)
		assert.Equal(t, "system", conv.Messages[0].Role)
		assert.Equal(t, "assistant", conv.Messages[2].Role)
	})

	t.Run("tool round trip feeds the result back to the model", func(t *testing.T) {
		provider := &scriptedProvider{responses: []*Response{
			{
				Content: "Let me look that up.",
				ToolCalls: []conversation.ToolCall{
					{ID: "call_1", Name: "hr.get_employee", Arguments: `{"employee_id": "E001"}`},
				},
			},
			{Content: "Alice works in Engineering."},
		}}
		g, recorder, store := newTestGateway(t, provider)

		reply, err := g.ProcessMessage(context.Background(), "", "Where does Alice work?", identity(), []string{"hr"})
		require.NoError(t, err)
		assert.Equal(t, "Alice works in Engineering.", reply.Response)
		assert.Equal(t, []string{"hr.get_employee"}, recorder.executed)
		assert.Equal(t, 2, provider.calls)

		conv := store.Get(reply.ConversationID)
		require.NotNil(t, conv)
		// system, user, assistant(tool_calls), tool, assistant
		require.Len(t, conv.Messages, 5)

		toolMsg := conv.Messages[3]
		assert.Equal(t, "tool", toolMsg.Role)
		assert.Equal(t, "call_1", toolMsg.ToolCallID)
		assert.Contains(t, toolMsg.Content, "Alice Johnson")
		assert.Contains(t, toolMsg.Content, "Engineering")

		// Second model call saw the tool result in context.
		lastRequest := provider.requests[1]
		assert.Equal(t, "tool", lastRequest.Messages[len(lastRequest.Messages)-1].Role)
	})

	t.Run("allowed domains narrow the tool menu", func(t *testing.T) {
		provider := &scriptedProvider{responses: []*Response{{Content: "ok"}}}
		g, _, _ := newTestGateway(t, provider)

		_, err := g.ProcessMessage(context.Background(), "", "hi", identity(), []string{"devops"})
		require.NoError(t, err)
		assert.Empty(t, provider.requests[0].Tools)
	})

	t.Run("malformed tool arguments become a validation error result", func(t *testing.T) {
		provider := &scriptedProvider{responses: []*Response{
			{
				ToolCalls: []conversation.ToolCall{
					{ID: "call_1", Name: "hr.get_employee", Arguments: `{"employee_id": `},
				},
			},
			{Content: "Sorry, something went wrong with that lookup."},
		}}
		g, recorder, store := newTestGateway(t, provider)

		reply, err := g.ProcessMessage(context.Background(), "", "look up E001", identity(), nil)
		require.NoError(t, err)
		assert.Empty(t, recorder.executed)

		conv := store.Get(reply.ConversationID)
		toolMsg := conv.Messages[3]
		assert.Equal(t, "Tool error (validation_error): Invalid tool call arguments", toolMsg.Content)
	})

	t.Run("multiple tool calls execute sequentially in order", func(t *testing.T) {
		provider := &scriptedProvider{responses: []*Response{
			{
				ToolCalls: []conversation.ToolCall{
					{ID: "call_1", Name: "hr.get_employee", Arguments: `{"employee_id": "E001"}`},
					{ID: "call_2", Name: "hr.list_departments", Arguments: `{}`},
				},
			},
			{Content: "Done."},
		}}
		g, recorder, _ := newTestGateway(t, provider)

		_, err := g.ProcessMessage(context.Background(), "", "two things please", identity(), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"hr.get_employee", "hr.list_departments"}, recorder.executed)
	})

	t.Run("tool calls share a correlation id with unique request ids", func(t *testing.T) {
		provider := &scriptedProvider{responses: []*Response{
			{
				ToolCalls: []conversation.ToolCall{
					{ID: "call_1", Name: "hr.get_employee", Arguments: `{"employee_id": "E001"}`},
					{ID: "call_2", Name: "hr.list_departments", Arguments: `{}`},
				},
			},
			{Content: "Done."},
		}}
		g, recorder, _ := newTestGateway(t, provider)

		reply, err := g.ProcessMessage(context.Background(), "", "two things please", identity(), nil)
		require.NoError(t, err)
		require.Len(t, recorder.calls, 2)

		first := recorder.calls[0].Context
		second := recorder.calls[1].Context
		assert.Equal(t, reply.RequestID, first.CorrelationID)
		assert.Equal(t, reply.RequestID, second.CorrelationID)
		assert.NotEmpty(t, first.RequestID)
		assert.NotEmpty(t, second.RequestID)
		assert.NotEqual(t, first.RequestID, second.RequestID)
	})

	t.Run("iteration budget exhaustion yields the apology", func(t *testing.T) {
		provider := &scriptedProvider{responses: []*Response{
			{
				ToolCalls: []conversation.ToolCall{
					{ID: "call_x", Name: "hr.list_departments", Arguments: `{}`},
				},
			},
		}}
		g, recorder, _ := newTestGateway(t, provider)

		reply, err := g.ProcessMessage(context.Background(), "", "loop forever", identity(), nil)
		require.NoError(t, err)
		assert.Equal(t, exhaustedLoopApology, reply.Response)
		assert.Equal(t, DefaultMaxIterations, provider.calls)
		assert.Len(t, recorder.executed, DefaultMaxIterations)
	})

	t.Run("empty model answer becomes the canned apology", func(t *testing.T) {
		provider := &scriptedProvider{responses: []*Response{{Content: ""}}}
		g, _, _ := newTestGateway(t, provider)

		reply, err := g.ProcessMessage(context.Background(), "", "hi", identity(), nil)
		require.NoError(t, err)
		assert.Equal(t, emptyResponseApology, reply.Response)
	})

	t.Run("unreachable model is the only hard failure", func(t *testing.T) {
		provider := &scriptedProvider{err: errors.New("connection refused")}
		g, _, _ := newTestGateway(t, provider)

		_, err := g.ProcessMessage(context.Background(), "", "hi", identity(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model call failed")
	})

	t.Run("reuses an existing conversation", func(t *testing.T) {
		provider := &scriptedProvider{responses: []*Response{{Content: "first"}, {Content: "second"}}}
		g, _, store := newTestGateway(t, provider)

		first, err := g.ProcessMessage(context.Background(), "", "one", identity(), nil)
		require.NoError(t, err)
		second, err := g.ProcessMessage(context.Background(), first.ConversationID, "two", identity(), nil)
		require.NoError(t, err)

		assert.Equal(t, first.ConversationID, second.ConversationID)
		conv := store.Get(first.ConversationID)
		// system + 2x(user+assistant)
		assert.Len(t, conv.Messages, 5)
	})
}

func TestFormatResult(t *testing.T) {
	t.Run("structured data is pretty printed", func(t *testing.T) {
		out := formatResult(tool.Success("hr.get_employee", map[string]interface{}{"name": "Alice"}))
		assert.Equal(t, "{\n  \"name\": \"Alice\"\n}", out)
	})

	t.Run("string data passes through raw", func(t *testing.T) {
		out := formatResult(tool.Success("hr.ping", "pong"))
		assert.Equal(t, "pong", out)
	})

	t.Run("nil data gets the generic confirmation", func(t *testing.T) {
		out := formatResult(tool.Success("hr.ping", nil))
		assert.Equal(t, successWithoutPayload, out)
	})

	t.Run("failures carry status and message", func(t *testing.T) {
		out := formatResult(tool.Failure("hr.x", tool.StatusUnauthorized, "UNAUTHORIZED", "Admin access required"))
		assert.Equal(t, "Tool error (unauthorized): Admin access required", out)
	})

	t.Run("failure without message says unknown", func(t *testing.T) {
		out := formatResult(tool.Failure("hr.x", tool.StatusError, "EXECUTION_ERROR", ""))
		assert.Equal(t, "Tool error (error): Unknown error", out)
	})
}

func TestGatewayAccessors(t *testing.T) {
	provider := &scriptedProvider{responses: []*Response{{Content: "hi"}}}
	g, _, _ := newTestGateway(t, provider)

	reply, err := g.ProcessMessage(context.Background(), "", "hello", identity(), nil)
	require.NoError(t, err)

	t.Run("history excludes system messages", func(t *testing.T) {
		history := g.History(reply.ConversationID)
		require.Len(t, history, 2)
		assert.Equal(t, "user", history[0].Role)
		assert.Equal(t, "assistant", history[1].Role)
	})

	t.Run("health reports tools and conversations", func(t *testing.T) {
		health := g.Health(context.Background())
		assert.Equal(t, "healthy", health["gateway"])
		assert.Equal(t, "scripted", health["provider"])
		assert.Equal(t, 5, health["tool_count"])
	})

	t.Run("end conversation deletes it", func(t *testing.T) {
		assert.True(t, g.EndConversation(reply.ConversationID))
		assert.Nil(t, g.History(reply.ConversationID))
		assert.False(t, g.EndConversation(reply.ConversationID))
	})
}
