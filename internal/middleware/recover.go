package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover returns middleware that recovers from handler panics and tells
// the chat something went wrong.
func Recover() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				slog.Error("panic recovered in handler",
					"panic", r,
					"update_id", update.ID,
					"stack", string(debug.Stack()),
				)
				if update.Message != nil {
					b.SendMessage(ctx, &bot.SendMessageParams{
						ChatID: update.Message.Chat.ID,
						Text:   "Sorry, I encountered an error. Please try again.",
					})
				}
			}()
			next(ctx, b, update)
		}
	}
}
