package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

type Config struct {
	// AI provider
	Provider          string  `env:"AI_PROVIDER" envDefault:"openrouter"`
	Model             string  `env:"AI_MODEL"`
	OpenRouterKey     string  `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string  `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	GeminiKey         string  `env:"GEMINI_API_KEY"`
	GeminiBaseURL     string  `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel       string  `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	Temperature       float64 `env:"AI_TEMPERATURE" envDefault:"0.8"`
	TopP              float64 `env:"AI_TOP_P" envDefault:"0.95"`
	MaxTokens         int     `env:"AI_MAX_TOKENS" envDefault:"4096"`

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	HistoryKey    string `env:"HISTORY_KEY" envDefault:"crazegpt_chat_history"`

	// HTTP server
	HTTPEnabled        bool     `env:"HTTP_ENABLED" envDefault:"true"`
	Port               int      `env:"PORT" envDefault:"3000"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	AllowedOrigins     []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// Telegram
	BotToken          string `env:"BOT_TOKEN"`
	LogTelegramChatID int64  `env:"LOG_TELEGRAM_CHAT_ID"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenRouter:
		if c.OpenRouterKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required for provider %q", c.Provider)
		}
	case ProviderGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.Provider)
	}

	switch c.StorageDriver {
	case StorageMemory, StorageRedis:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if !c.HTTPEnabled && c.BotToken == "" {
		return fmt.Errorf("nothing to run: enable HTTP_ENABLED or set BOT_TOKEN")
	}
	return nil
}

// ActiveModel returns the model identifier sent to the configured provider.
func (c *Config) ActiveModel() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderGemini {
		return c.GeminiModel
	}
	return DefaultModel
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
