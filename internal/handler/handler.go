package handler

import (
	"github.com/go-telegram/bot"
	"github.com/set-night/crazegpt/internal/service"
	"github.com/set-night/crazegpt/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot      *bot.Bot
	files    *service.FileService
	blobs    *service.BlobStore
	tgLogger *telegram.TelegramLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot      *bot.Bot
	Chats    *service.ChatRegistry
	Files    *service.FileService
	Blobs    *service.BlobStore
	TgLogger *telegram.TelegramLogger
}

// New creates a new Handler from the provided dependencies. Failures that
// end up in a chat transcript are also reported to the log chat.
func New(deps Deps) *Handler {
	if deps.Chats != nil && deps.TgLogger != nil {
		deps.Chats.OnFailure(func(chatID int64, err error) {
			deps.TgLogger.LogError(err, chatID, "chat turn")
		})
	}
	return &Handler{
		bot:      deps.Bot,
		files:    deps.Files,
		blobs:    deps.Blobs,
		tgLogger: deps.TgLogger,
	}
}
