package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tg "github.com/set-night/crazegpt/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
// Plain messages reach HandleMessage through the bot's default handler.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/new", bot.MatchTypePrefix, h.handleNew)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/end", bot.MatchTypePrefix, h.handleNew)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/sessions", bot.MatchTypePrefix, h.handleSessions)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/models", bot.MatchTypePrefix, h.handleModels)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/image", bot.MatchTypePrefix, h.handleImage)

	// Sessions callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackSessionOpen, bot.MatchTypePrefix, h.handleSessionOpen)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackSessionDelete, bot.MatchTypePrefix, h.handleSessionDelete)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackSessionsPage+"_", bot.MatchTypePrefix, h.handleSessionsPage)

	// Models callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackModel, bot.MatchTypePrefix, h.handleModelSelect)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackNoop, bot.MatchTypeExact, h.handleNoop)
}

// handleNoop is a no-op callback handler used for pagination indicators and other
// non-interactive inline buttons. It simply acknowledges the callback query.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}

// callbackTarget returns the chat and message an inline button belongs to.
func callbackTarget(update *models.Update) (int64, int) {
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		return msg.Chat.ID, msg.ID
	}
	return 0, 0
}
