package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/crazegpt/internal/service"
)

type ctxKey string

const ChatKey ctxKey = "chat"

// GetChat extracts the chat's conversation service from context.
func GetChat(ctx context.Context) *service.ChatService {
	c, ok := ctx.Value(ChatKey).(*service.ChatService)
	if !ok {
		return nil
	}
	return c
}

// ChatLoader returns middleware that attaches the per-chat ChatService.
func ChatLoader(chats *service.ChatRegistry) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var chatID int64
			switch {
			case update.Message != nil:
				chatID = update.Message.Chat.ID
			case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
				chatID = update.CallbackQuery.Message.Message.Chat.ID
			default:
				next(ctx, b, update)
				return
			}

			ctx = context.WithValue(ctx, ChatKey, chats.ForChat(chatID))
			next(ctx, b, update)
		}
	}
}
