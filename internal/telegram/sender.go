package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/crazegpt/internal/config"
)

// SendReply renders a markdown reply as Telegram HTML, splitting it into
// parts if needed. A part Telegram rejects is resent as plain text.
func SendReply(ctx context.Context, b *bot.Bot, chatID int64, text string, replyMarkup models.ReplyMarkup) error {
	parts := FormatHTML(text, config.MaxTelegramMessageLen)

	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeHTML,
		}
		if i == len(parts)-1 && replyMarkup != nil {
			params.ReplyMarkup = replyMarkup
		}

		_, err := b.SendMessage(ctx, params)
		if err != nil {
			slog.Warn("html send failed, falling back to plain text", "chat_id", chatID, "error", err)
			params.ParseMode = ""
			params.Text = PlainText(part)
			if _, err = b.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}

	return nil
}

// StartTyping sends "typing..." action every 4 seconds until the returned cancel function is called.
func StartTyping(ctx context.Context, b *bot.Bot, chatID int64, action models.ChatAction) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: action})
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: action})
			}
		}
	}()
	return cancel
}

// SendPhotoURL sends a remote image by URL with a caption.
func SendPhotoURL(ctx context.Context, b *bot.Bot, chatID int64, url, caption string) error {
	_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     &models.InputFileString{Data: url},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// SendDocument uploads data as a file named filename.
func SendDocument(ctx context.Context, b *bot.Bot, chatID int64, filename string, data []byte, caption string) error {
	_, err := b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		Caption:  caption,
	})
	if err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}
