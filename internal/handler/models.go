package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/set-night/crazegpt/internal/middleware"
	tg "github.com/set-night/crazegpt/internal/telegram"
)

func (h *Handler) handleModels(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	current := chat.Model()
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: fmt.Sprintf("🤖 <b>Model:</b> <code>%s</code>\n💰 <b>Spent:</b> $%s\n\nChoose a model:",
			html.EscapeString(current), chat.Spent().StringFixed(4)),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: tg.ModelsKeyboard(chat.Models(ctx), current),
	})
}

func (h *Handler) handleModelSelect(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	id := strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackModel)
	if err := chat.SetModel(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrModelNotFound) {
			slog.Error("set model", "model", id, "error", err)
		}
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            "❌ Model not available.",
		})
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            "✅ Model selected",
	})

	chatID, messageID := callbackTarget(update)
	if messageID == 0 {
		return
	}
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        fmt.Sprintf("🤖 <b>Model:</b> <code>%s</code>\n\nChoose a model:", html.EscapeString(id)),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: tg.ModelsKeyboard(chat.Models(ctx), id),
	})
}
