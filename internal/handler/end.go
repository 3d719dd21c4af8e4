package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/crazegpt/internal/middleware"
)

func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	chat.NewSession()
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "🔄 Context cleared. Started a new conversation.",
	})
}
