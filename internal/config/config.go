package config

import (
	"encoding/json"
	"fmt"
)

// Config is the main mcpgate configuration.
type Config struct {
	// AI provider
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Gateway (agent loop)
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Conversation store
	Conversations ConversationsConfig `json:"conversations" mapstructure:"conversations"`

	// Audit trail
	Audit AuditConfig `json:"audit" mapstructure:"audit"`

	// Execution router
	Router RouterConfig `json:"router" mapstructure:"router"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // anthropic, openai
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// GatewayConfig holds agent loop configuration
type GatewayConfig struct {
	SystemPrompt  string `json:"system_prompt" mapstructure:"system_prompt"`
	MaxIterations int    `json:"max_iterations" mapstructure:"max_iterations"`
}

// ConversationsConfig holds conversation store configuration
type ConversationsConfig struct {
	MaxLength     int    `json:"max_length" mapstructure:"max_length"`
	TTLMinutes    int    `json:"ttl_minutes" mapstructure:"ttl_minutes"`
	SweepSchedule string `json:"sweep_schedule" mapstructure:"sweep_schedule"`
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	File       string `json:"file" mapstructure:"file"`
	BufferSize int    `json:"buffer_size" mapstructure:"buffer_size"`
}

// RouterConfig holds execution pipeline configuration
type RouterConfig struct {
	// DefaultTimeoutSeconds bounds adapter execution.
	DefaultTimeoutSeconds int `json:"default_timeout_seconds" mapstructure:"default_timeout_seconds"`
	// DomainTimeoutSeconds overrides the timeout per domain.
	DomainTimeoutSeconds map[string]int `json:"domain_timeout_seconds" mapstructure:"domain_timeout_seconds"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Gateway: GatewayConfig{
			MaxIterations: 10,
		},
		Conversations: ConversationsConfig{
			MaxLength:     50,
			TTLMinutes:    60,
			SweepSchedule: "@every 5m",
		},
		Audit: AuditConfig{
			BufferSize: 100,
		},
		Router: RouterConfig{
			DefaultTimeoutSeconds: 30,
			DomainTimeoutSeconds:  map[string]int{},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AI.Provider != "anthropic" && c.AI.Provider != "openai" {
		return fmt.Errorf("invalid provider %s (must be: anthropic, openai)", c.AI.Provider)
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if c.Gateway.MaxIterations < 1 {
		return fmt.Errorf("gateway.max_iterations must be at least 1")
	}
	if c.Conversations.MaxLength < 2 {
		return fmt.Errorf("conversations.max_length must be at least 2")
	}
	if c.Conversations.TTLMinutes < 1 {
		return fmt.Errorf("conversations.ttl_minutes must be at least 1")
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("audit.buffer_size must be at least 1")
	}
	if c.Router.DefaultTimeoutSeconds < 1 {
		return fmt.Errorf("router.default_timeout_seconds must be at least 1")
	}
	for domain, seconds := range c.Router.DomainTimeoutSeconds {
		if seconds < 1 {
			return fmt.Errorf("router.domain_timeout_seconds[%s] must be at least 1", domain)
		}
	}
	return nil
}
