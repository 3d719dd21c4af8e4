package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenRouter, cfg.Provider)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "crazegpt_chat_history", cfg.HistoryKey)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, DefaultModel, cfg.ActiveModel())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadRequiresProviderKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "OPENROUTER_API_KEY")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Provider:      ProviderOpenRouter,
			OpenRouterKey: "sk-test",
			StorageDriver: StorageMemory,
			HTTPEnabled:   true,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"gemini without key", func(c *Config) { c.Provider = ProviderGemini }, "GEMINI_API_KEY"},
		{"unknown provider", func(c *Config) { c.Provider = "claude" }, "unknown AI_PROVIDER"},
		{"postgres without url", func(c *Config) { c.StorageDriver = StoragePostgres }, "DATABASE_URL"},
		{"unknown storage", func(c *Config) { c.StorageDriver = "sqlite" }, "unknown STORAGE_DRIVER"},
		{"nothing to run", func(c *Config) { c.HTTPEnabled = false }, "nothing to run"},
		{"bot only", func(c *Config) { c.HTTPEnabled = false; c.BotToken = "123:abc" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestActiveModel(t *testing.T) {
	cfg := Config{Provider: ProviderGemini, GeminiModel: "gemini-1.5-flash"}
	assert.Equal(t, "gemini-1.5-flash", cfg.ActiveModel())

	cfg.Model = "gemini-2.0-pro"
	assert.Equal(t, "gemini-2.0-pro", cfg.ActiveModel())
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	} {
		cfg := Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}
