// Package gateway runs the agent loop: it feeds conversation history
// and the caller's tool menu to the model, executes requested tool
// calls through the execution client, and loops until the model
// produces a final answer or the iteration budget runs out.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mcpgate/mcpgate/pkg/client"
	"github.com/mcpgate/mcpgate/pkg/conversation"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

// DefaultMaxIterations bounds tool-call rounds per user message.
const DefaultMaxIterations = 10

// DefaultSystemPrompt seeds new conversations.
const DefaultSystemPrompt = `You are a helpful AI assistant that can use tools to help users accomplish tasks.

When you need to perform an action, use the available tools. Each tool has a specific purpose described in its definition.

Guidelines:
- Always explain what you're doing before using a tool
- If a tool returns an error, explain the issue to the user
- If you're unsure which tool to use, ask the user for clarification
- Never make up information - use tools to get accurate data
`

const (
	emptyResponseApology  = "I apologize, but I couldn't generate a response."
	exhaustedLoopApology  = "I apologize, but I wasn't able to complete the task within the allowed number of steps."
	malformedArgsMessage  = "Invalid tool call arguments"
	successWithoutPayload = "Tool executed successfully."
)

// Config tunes a Gateway.
type Config struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	SystemPrompt  string
	MaxIterations int
}

// Reply is the outcome of one processed user message.
type Reply struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
	RequestID      string `json:"request_id"`
}

// Gateway orchestrates provider, execution client, and conversation
// store.
type Gateway struct {
	provider      Provider
	client        client.Client
	store         *conversation.Store
	log           zerolog.Logger
	model         string
	temperature   float64
	maxTokens     int
	systemPrompt  string
	maxIterations int
}

// New creates a Gateway. Zero config fields fall back to defaults.
func New(provider Provider, execClient client.Client, store *conversation.Store, cfg Config, log zerolog.Logger) *Gateway {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Gateway{
		provider:      provider,
		client:        execClient,
		store:         store,
		log:           log,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		systemPrompt:  cfg.SystemPrompt,
		maxIterations: cfg.MaxIterations,
	}
}

// ProcessMessage handles one user message end to end. It returns an
// error only when the model itself is unreachable; every tool-level
// failure is folded into the conversation and the model's answer.
func (g *Gateway) ProcessMessage(ctx context.Context, conversationID, userMessage string, identity tool.Identity, allowedDomains []string) (*Reply, error) {
	requestID := uuid.NewString()
	g.log.Info().
		Str("request_id", requestID).
		Str("user_id", identity.ID).
		Str("conversation_id", conversationID).
		Msg("Processing message")

	conv := g.store.GetOrCreate(conversationID, identity.ID, g.systemPrompt)
	g.store.Append(conv.ID, conversation.Message{Role: "user", Content: userMessage})

	tools := g.client.ListTools(ctx, allowedDomains, identity.Roles)

	response, err := g.runToolLoop(ctx, conv.ID, tools, identity, requestID)
	if err != nil {
		return nil, err
	}

	g.store.Append(conv.ID, conversation.Message{Role: "assistant", Content: response})

	return &Reply{
		ConversationID: conv.ID,
		Response:       response,
		RequestID:      requestID,
	}, nil
}

// runToolLoop calls the model repeatedly, executing any requested
// tools in order, until the model answers in plain text or the
// iteration budget is spent.
func (g *Gateway) runToolLoop(ctx context.Context, conversationID string, tools []tool.Descriptor, identity tool.Identity, correlationID string) (string, error) {
	for iteration := 1; iteration <= g.maxIterations; iteration++ {
		conv := g.store.Get(conversationID)
		if conv == nil {
			return "", fmt.Errorf("conversation %s disappeared mid-loop", conversationID)
		}

		response, err := g.provider.Complete(ctx, Request{
			Model:        g.model,
			Messages:     conv.Messages,
			Tools:        tools,
			Temperature:  g.temperature,
			MaxTokens:    g.maxTokens,
			SystemPrompt: g.systemPrompt,
		})
		if err != nil {
			return "", fmt.Errorf("model call failed: %w", err)
		}

		if len(response.ToolCalls) == 0 {
			if response.Content == "" {
				return emptyResponseApology, nil
			}
			return response.Content, nil
		}

		g.log.Debug().
			Int("count", len(response.ToolCalls)).
			Int("iteration", iteration).
			Msg("Model requested tool calls")

		g.store.Append(conversationID, conversation.Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		for _, tc := range response.ToolCalls {
			result := g.executeToolCall(ctx, tc, identity, correlationID)
			g.store.Append(conversationID, conversation.Message{
				Role:       "tool",
				Content:    formatResult(result),
				ToolCallID: tc.ID,
			})
		}
	}

	g.log.Warn().
		Str("conversation_id", conversationID).
		Int("iterations", g.maxIterations).
		Msg("Max tool iterations reached")
	return exhaustedLoopApology, nil
}

// executeToolCall parses one tool call and runs it through the
// execution client. Malformed argument JSON never reaches the
// pipeline; it becomes a validation error the model can react to.
// Every call gets its own request id; correlationID ties together all
// calls spawned by one user message.
func (g *Gateway) executeToolCall(ctx context.Context, tc conversation.ToolCall, identity tool.Identity, correlationID string) tool.Result {
	var params map[string]interface{}
	args := tc.Arguments
	if args == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		g.log.Warn().Str("tool", tc.Name).Msg("Malformed tool call arguments")
		return tool.Failure(tc.Name, tool.StatusValidationError, "VALIDATION_ERROR", malformedArgsMessage)
	}

	requestID := uuid.NewString()
	g.log.Info().
		Str("tool", tc.Name).
		Str("request_id", requestID).
		Str("correlation_id", correlationID).
		Msg("Executing tool")

	result := g.client.Execute(ctx, tool.Call{
		ToolName:   tc.Name,
		Parameters: params,
		Context: tool.ExecutionContext{
			RequestID:     requestID,
			Identity:      identity,
			Timestamp:     time.Now(),
			Source:        "gateway",
			CorrelationID: correlationID,
		},
	})

	g.log.Info().
		Str("tool", tc.Name).
		Str("status", string(result.Status)).
		Float64("execution_time_ms", result.ExecutionTimeMS).
		Msg("Tool executed")

	return result
}

// formatResult renders a tool result for the model's context window.
func formatResult(result tool.Result) string {
	if result.Status == tool.StatusSuccess {
		if result.Data == nil {
			return successWithoutPayload
		}
		if s, ok := result.Data.(string); ok {
			return s
		}
		pretty, err := json.MarshalIndent(result.Data, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", result.Data)
		}
		return string(pretty)
	}

	errMsg := result.Error
	if errMsg == "" {
		errMsg = "Unknown error"
	}
	return fmt.Sprintf("Tool error (%s): %s", result.Status, errMsg)
}

// History returns the conversation's non-system messages.
func (g *Gateway) History(conversationID string) []conversation.Message {
	conv := g.store.Get(conversationID)
	if conv == nil {
		return nil
	}

	messages := make([]conversation.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		if m.Role == "system" {
			continue
		}
		messages = append(messages, m)
	}
	return messages
}

// EndConversation deletes a conversation. Returns false if absent.
func (g *Gateway) EndConversation(conversationID string) bool {
	return g.store.Delete(conversationID)
}

// Health reports gateway status with tool and conversation counters.
func (g *Gateway) Health(ctx context.Context) map[string]interface{} {
	tools := g.client.ListTools(ctx, nil, nil)

	domainSet := map[string]struct{}{}
	for _, desc := range tools {
		domainSet[tool.DomainOf(desc.Function.Name)] = struct{}{}
	}
	domains := make([]string, 0, len(domainSet))
	for d := range domainSet {
		domains = append(domains, d)
	}

	return map[string]interface{}{
		"gateway":       "healthy",
		"provider":      g.provider.Name(),
		"tool_count":    len(tools),
		"domains":       domains,
		"conversations": g.store.Stats(),
	}
}
