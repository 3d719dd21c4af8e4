package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	crazegpt "github.com/set-night/crazegpt"
	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/handler"
	"github.com/set-night/crazegpt/internal/httpapi"
	"github.com/set-night/crazegpt/internal/middleware"
	"github.com/set-night/crazegpt/internal/repository"
	"github.com/set-night/crazegpt/internal/service"
	"github.com/set-night/crazegpt/internal/telegram"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	// Initialize services
	params := service.GenerationParams{
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
	}

	var provider service.Provider
	var remoteModels service.ModelLister
	switch cfg.Provider {
	case config.ProviderGemini:
		provider = service.NewGeminiService(cfg.GeminiKey, cfg.GeminiBaseURL, cfg.ActiveModel(), params)
	default:
		openRouter := service.NewOpenRouterService(cfg.OpenRouterKey, cfg.OpenRouterBaseURL, cfg.ActiveModel(), params)
		provider = openRouter
		remoteModels = openRouter
	}

	ids := service.NewIDSource()
	blobs := service.NewBlobStore()
	meter := &service.CostMeter{}
	deps := service.ChatDeps{
		Completion: service.NewCompletionClient(provider),
		Images:     service.NewImageService(ids),
		Files:      service.NewFileService(blobs),
		Catalog:    service.NewModelCatalog(service.BuiltinModels(cfg.Provider, cfg.ActiveModel()), remoteModels),
		IDs:        ids,
		Meter:      meter,
	}

	slog.Info("completion provider ready",
		"provider", provider.Name(),
		"model", provider.Model(),
		"storage", cfg.StorageDriver,
	)

	errCh := make(chan error, 2)

	if cfg.HTTPEnabled {
		webDeps := deps
		webDeps.Store = service.NewSessionStore(kv, cfg.HistoryKey)
		chat := service.NewChatService(webDeps)

		events := httpapi.NewBroadcaster()
		chat.OnSessionUpdate(events.Publish)

		api := httpapi.New(chat, deps.Files, deps.Images, events)
		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.Port),
			Handler: httpapi.NewRouter(api, httpapi.RouterConfig{
				RateLimitPerMinute: cfg.RateLimitPerMinute,
				AllowedOrigins:     cfg.AllowedOrigins,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			slog.Info("starting http server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("http server shutdown", "error", err)
			}
		}()
	}

	if cfg.BotToken != "" {
		b, err := startBot(ctx, cfg, kv, deps, blobs)
		if err != nil {
			slog.Error("failed to start bot", "error", err)
			os.Exit(1)
		}
		go func() {
			b.Start(ctx)
			slog.Info("bot stopped gracefully")
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		slog.Error("server failed", "error", err)
		stop()
	}

	slog.Info("stopped", "spent", meter.Total().String())
}

func openStorage(ctx context.Context, cfg *config.Config) (repository.KV, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		// Run migrations
		migrationsFS, err := fs.Sub(crazegpt.MigrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("load embedded migrations: %w", err)
		}
		if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
			pool.Close()
			return nil, err
		}
		return repository.NewPostgresKV(pool), nil
	case config.StorageRedis:
		return repository.NewRedisKV(ctx, cfg.RedisURL)
	default:
		return repository.NewMemoryKV(), nil
	}
}

func startBot(ctx context.Context, cfg *config.Config, kv repository.KV, deps service.ChatDeps, blobs *service.BlobStore) (*bot.Bot, error) {
	chats := service.NewChatRegistry(kv, cfg.HistoryKey, deps)

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.RateLimit(middleware.NewChatLimiter(config.BotRateLimitPerMinute)),
			middleware.ChatLoader(chats),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleMessage(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("get bot info: %w", err)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	h = handler.New(handler.Deps{
		Bot:      b,
		Chats:    chats,
		Files:    deps.Files,
		Blobs:    blobs,
		TgLogger: telegram.NewTelegramLogger(b, cfg.LogTelegramChatID),
	})
	h.Register()

	return b, nil
}
