package conversation

import (
	"time"
)

// ToolCall is a tool invocation requested by the model inside an
// assistant message. Arguments stays a raw JSON string so malformed
// payloads survive until the agent loop can report them properly.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one turn in a conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Conversation is an ordered message history for one session. UserID
// is the owning identity; it is fixed at creation.
type Conversation struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// Summary is a lightweight view of a conversation for listings.
type Summary struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}

// systemCount returns the number of system messages in the history.
func systemCount(messages []Message) int {
	n := 0
	for _, m := range messages {
		if m.Role == "system" {
			n++
		}
	}
	return n
}

// prune caps the history at maxLength, keeping every system message
// plus the most recent non-system messages, all in original order.
func prune(messages []Message, maxLength int) []Message {
	if maxLength <= 0 || len(messages) <= maxLength {
		return messages
	}

	sysCount := systemCount(messages)
	keepRecent := maxLength - sysCount
	if keepRecent < 0 {
		keepRecent = 0
	}

	nonSystem := len(messages) - sysCount
	dropRemaining := nonSystem - keepRecent

	pruned := make([]Message, 0, maxLength)
	for _, m := range messages {
		if m.Role == "system" {
			pruned = append(pruned, m)
			continue
		}
		if dropRemaining > 0 {
			dropRemaining--
			continue
		}
		pruned = append(pruned, m)
	}
	return pruned
}
