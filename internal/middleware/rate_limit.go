package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

// ChatLimiter hands out one token bucket per Telegram chat.
type ChatLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewChatLimiter(perMinute int) *ChatLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &ChatLimiter{
		limiters: make(map[int64]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *ChatLimiter) Allow(chatID int64) bool {
	l.mu.Lock()
	lim, ok := l.limiters[chatID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[chatID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit returns middleware that enforces a per-chat message rate.
func RateLimit(limiter *ChatLimiter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Only rate limit messages (not callbacks or other updates)
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			if !limiter.Allow(chatID) {
				slog.Debug("rate limited", "chat_id", chatID)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   "⏳ Too many requests. Please wait a moment.",
				})
				return
			}

			next(ctx, b, update)
		}
	}
}
