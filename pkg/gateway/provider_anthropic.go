package gateway

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mcpgate/mcpgate/pkg/conversation"
)

// AnthropicProvider implements Provider for Anthropic Claude.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete makes an API call to Anthropic Claude.
func (p *AnthropicProvider) Complete(ctx context.Context, request Request) (*Response, error) {
	anthropicMessages := []anthropic.MessageParam{}

	for _, msg := range request.Messages {
		if msg.Role == "system" {
			continue // System prompt handled separately
		}

		// Tool results go back as user-role tool result blocks
		if msg.Role == "tool" {
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
			continue
		}

		// Assistant messages with tool calls replay the tool use blocks
		if msg.Role == "assistant" && len(msg.ToolCalls) > 0 {
			blocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, decodeArguments(tc.Arguments), tc.Name))
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
			continue
		}

		if msg.Role == "user" {
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		} else if msg.Role == "assistant" {
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})
		}
	}

	reqParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		Messages:  anthropicMessages,
		MaxTokens: int64(request.MaxTokens),
	}

	if request.SystemPrompt != "" {
		reqParams.System = []anthropic.TextBlockParam{
			{Text: request.SystemPrompt},
		}
	}

	if request.Temperature > 0 {
		reqParams.Temperature = anthropic.Float(request.Temperature)
	}

	if len(request.Tools) > 0 {
		tools := []anthropic.ToolUnionParam{}
		for _, desc := range request.Tools {
			toolParam := anthropic.ToolParam{
				Name:        desc.Function.Name,
				Description: anthropic.String(desc.Function.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: desc.Function.Parameters["properties"],
				},
			}

			if required, ok := desc.Function.Parameters["required"]; ok {
				switch req := required.(type) {
				case []string:
					toolParam.InputSchema.Required = req
				case []interface{}:
					strs := make([]string, 0, len(req))
					for _, v := range req {
						if s, ok := v.(string); ok {
							strs = append(strs, s)
						}
					}
					toolParam.InputSchema.Required = strs
				}
			}

			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		reqParams.Tools = tools
	}

	response, err := p.client.Messages.New(ctx, reqParams)
	if err != nil {
		return nil, err
	}

	content := ""
	toolCalls := []conversation.ToolCall{}

	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += b.Text
		case anthropic.ToolUseBlock:
			id := b.ID
			if id == "" {
				id = newToolCallID()
			}
			toolCalls = append(toolCalls, conversation.ToolCall{
				ID:        id,
				Name:      b.Name,
				Arguments: b.JSON.Input.Raw(),
			})
		}
	}

	return &Response{
		Content:   content,
		ToolCalls: toolCalls,
		Usage: &TokenUsage{
			InputTokens:  int(response.Usage.InputTokens),
			OutputTokens: int(response.Usage.OutputTokens),
		},
	}, nil
}

// decodeArguments parses a tool call's raw arguments for replay to
// the API. Malformed JSON degrades to an empty object; the loop has
// already reported the parse failure to the model as a result.
func decodeArguments(raw string) map[string]interface{} {
	var params map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &params); err != nil || params == nil {
		return map[string]interface{}{}
	}
	return params
}

// newToolCallID mints a local id for providers that omit one.
func newToolCallID() string {
	return "call_" + gonanoid.Must(12)
}
