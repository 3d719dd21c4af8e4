package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/set-night/crazegpt/internal/middleware"
	"github.com/set-night/crazegpt/internal/service"
	tg "github.com/set-night/crazegpt/internal/telegram"
)

func (h *Handler) handleSessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	h.sendSessionsPage(ctx, b, update.Message.Chat.ID, chat, 0, false, 0)
}

func (h *Handler) sendSessionsPage(ctx context.Context, b *bot.Bot, chatID int64, chat *service.ChatService, page int, edit bool, messageID int) {
	sessions := chat.Sessions(ctx)
	active := chat.Active()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📂 <b>Conversations</b> (%d)\n\n", len(sessions)))
	if len(sessions) == 0 {
		sb.WriteString("No saved conversations yet. Send a message to start one.")
	} else {
		sb.WriteString("Current: ")
		if active.Title != "" {
			sb.WriteString(html.EscapeString(active.Title))
		} else {
			sb.WriteString("<i>new conversation</i>")
		}
	}

	keyboard := tg.SessionsKeyboard(sessions, page, config.SessionsPerPage, active.ID)
	text := sb.String()

	if edit && messageID != 0 {
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: keyboard,
		})
	} else {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: keyboard,
		})
	}
}

func (h *Handler) handleSessionOpen(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	id := strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackSessionOpen)
	session, err := chat.SelectSession(ctx, id)
	if err != nil {
		text := "❌ Could not open the conversation."
		if errors.Is(err, domain.ErrSessionNotFound) {
			text = "❌ This conversation no longer exists."
		}
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            text,
		})
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            fmt.Sprintf("✅ Switched to %q (%d messages)", session.Title, len(session.Messages)),
	})

	chatID, messageID := callbackTarget(update)
	h.sendSessionsPage(ctx, b, chatID, chat, 0, true, messageID)
}

func (h *Handler) handleSessionDelete(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	id := strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackSessionDelete)
	if err := chat.DeleteSession(ctx, id); err != nil {
		slog.Error("delete session", "session", id, "error", err)
		return
	}

	chatID, messageID := callbackTarget(update)
	h.sendSessionsPage(ctx, b, chatID, chat, 0, true, messageID)
}

func (h *Handler) handleSessionsPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	page, _ := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackSessionsPage+"_"))

	chatID, messageID := callbackTarget(update)
	h.sendSessionsPage(ctx, b, chatID, chat, page, true, messageID)
}
