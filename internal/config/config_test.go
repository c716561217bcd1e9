package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.AI.APIKey = "test-key"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, 10, cfg.Gateway.MaxIterations)
	assert.Equal(t, 50, cfg.Conversations.MaxLength)
	assert.Equal(t, 60, cfg.Conversations.TTLMinutes)
	assert.Equal(t, 100, cfg.Audit.BufferSize)
	assert.Equal(t, 30, cfg.Router.DefaultTimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("missing api key fails", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_key")
	})

	t.Run("unknown provider fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.AI.Provider = "gemini"
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing model fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.AI.Model = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad iteration budget fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Gateway.MaxIterations = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad conversation cap fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Conversations.MaxLength = 1
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad domain timeout fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Router.DomainTimeoutSeconds = map[string]int{"hr": 0}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hr")
	})
}

func TestConfigString(t *testing.T) {
	s := validConfig().String()
	assert.Contains(t, s, `"provider": "anthropic"`)
}
