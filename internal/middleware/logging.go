package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs each update with its chat, the
// command or callback it carried and how long it took.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			attrs := updateAttrs(update)

			next(ctx, b, update)

			slog.Info("update processed", append(attrs, "duration", time.Since(start))...)
		}
	}
}

func updateAttrs(update *models.Update) []any {
	switch {
	case update.Message != nil:
		attrs := []any{"type", "message", "chat_id", update.Message.Chat.ID}
		if cmd, _, _ := strings.Cut(update.Message.Text, " "); strings.HasPrefix(cmd, "/") {
			attrs = append(attrs, "command", cmd)
		}
		if update.Message.Document != nil || len(update.Message.Photo) > 0 {
			attrs = append(attrs, "attachment", true)
		}
		return attrs
	case update.CallbackQuery != nil:
		attrs := []any{"type", "callback_query", "data", update.CallbackQuery.Data}
		if msg := update.CallbackQuery.Message.Message; msg != nil {
			attrs = append(attrs, "chat_id", msg.Chat.ID)
		}
		return attrs
	default:
		return []any{"type", "unknown", "update_id", update.ID}
	}
}
