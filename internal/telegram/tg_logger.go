package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/crazegpt/internal/config"
)

// TelegramLogger reports failures to an operator chat. It is a no-op when
// no log chat is configured.
type TelegramLogger struct {
	bot    *bot.Bot
	chatID int64
}

func NewTelegramLogger(b *bot.Bot, chatID int64) *TelegramLogger {
	return &TelegramLogger{bot: b, chatID: chatID}
}

func (l *TelegramLogger) Log(message string) {
	if l == nil || l.chatID == 0 {
		return
	}

	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    l.chatID,
		Text:      message,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "error", err)
	}
}

// LogError reports err with the chat it happened in.
func (l *TelegramLogger) LogError(err error, chatID int64, where string) {
	msg := fmt.Sprintf("❌ <b>Error</b>\n\n<b>Context:</b> %s\n<b>Chat:</b> <code>%d</code>\n<b>Error:</b> <code>%s</code>\n<b>Time:</b> %s",
		html.EscapeString(where), chatID, html.EscapeString(err.Error()), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(msg)
}
