package gateway

import (
	"context"
	"fmt"

	"github.com/mcpgate/mcpgate/pkg/conversation"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

// Provider is an LLM chat-completion backend.
type Provider interface {
	// Complete makes one model call.
	Complete(ctx context.Context, request Request) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// Request contains the parameters for one model call.
type Request struct {
	Model        string
	Messages     []conversation.Message
	Tools        []tool.Descriptor
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Response is the model's reply. ToolCalls carry their arguments as
// raw JSON strings; parsing is the agent loop's job so malformed
// payloads become reportable results instead of provider errors.
type Response struct {
	Content   string
	ToolCalls []conversation.ToolCall
	Usage     *TokenUsage
}

// TokenUsage reports model token consumption.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// NewProvider creates a provider by name.
func NewProvider(name, apiKey string) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
