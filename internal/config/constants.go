package config

import "time"

const (
	// Session store
	MaxSessions = 50
	TitleWords  = 4

	// Completion context window (messages)
	ContextWindow = 10

	// Retry on HTTP 429: up to MaxRetries retries, waiting RetryBaseDelay * 2^attempt.
	MaxRetries     = 3
	RetryBaseDelay = 1 * time.Second

	// AI request timeout
	RequestTimeout = 90 * time.Second

	// Model cache duration
	ModelCacheDuration = 1 * time.Hour

	// Default AI model (OpenRouter)
	DefaultModel = "deepseek/deepseek-chat"

	// Gemini topK
	GeminiTopK = 40

	// Image generator
	DefaultImageWidth  = 512
	DefaultImageHeight = 512
	ImageDelayMin      = 1500 * time.Millisecond
	ImageDelayMax      = 2000 * time.Millisecond

	// Blob store: unfetched files expire, and the store is capped
	BlobTTL  = 1 * time.Hour
	MaxBlobs = 256

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Sessions per page
	SessionsPerPage = 5

	// Bot rate limit: messages per minute per chat
	BotRateLimitPerMinute = 6

	// HTTP server
	ShutdownTimeout = 10 * time.Second
)
