package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/set-night/crazegpt/internal/middleware"
	"github.com/set-night/crazegpt/internal/render"
	"github.com/set-night/crazegpt/internal/service"
	tg "github.com/set-night/crazegpt/internal/telegram"
)

// HandleMessage sends a text, photo or document message through the chat's
// conversation and delivers the reply.
func (h *Handler) HandleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	msg := update.Message
	if strings.HasPrefix(msg.Text, "/") {
		return
	}

	text := msg.Text
	if msg.Caption != "" {
		text = msg.Caption
	}

	attachment, err := h.stageAttachment(ctx, b, msg)
	if err != nil {
		slog.Error("stage attachment", "chat_id", msg.Chat.ID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "❌ Could not download your file. Please try again.",
		})
		return
	}

	h.send(ctx, b, msg.Chat.ID, service.SendInput{Text: text, Attachment: attachment}, models.ChatActionTyping)
}

func (h *Handler) handleImage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	_, prompt, _ := strings.Cut(update.Message.Text, " ")
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Usage: /image <prompt>",
		})
		return
	}

	h.send(ctx, b, chatID, service.SendInput{Text: "generate image of " + prompt}, models.ChatActionUploadPhoto)
}

func (h *Handler) send(ctx context.Context, b *bot.Bot, chatID int64, in service.SendInput, action models.ChatAction) {
	// A staged upload is only needed for the turn it was sent with.
	if in.Attachment != nil {
		defer h.blobs.Revoke(in.Attachment.URL)
	}

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	stopTyping := tg.StartTyping(ctx, b, chatID, action)
	defer stopTyping()

	reqCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	res, err := chat.Send(reqCtx, in)
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		return
	case errors.Is(err, domain.ErrActiveRequest):
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⏳ Please wait for the answer to your previous message.",
		})
		return
	case err != nil:
		slog.Error("send message", "chat_id", chatID, "error", err)
		h.tgLogger.LogError(err, chatID, "send message")
		return
	}

	stopTyping()
	h.deliver(ctx, b, chatID, res.Reply)
}

// deliver sends an AI message: images as photos, generated files as
// documents, everything else as rendered text.
func (h *Handler) deliver(ctx context.Context, b *bot.Bot, chatID int64, reply domain.ChatMessage) {
	switch {
	case reply.ImageURL != "":
		caption := render.ToTelegramHTML(render.Render(reply.Text))
		err := tg.SendPhotoURL(ctx, b, chatID, reply.ImageURL, caption)
		if err == nil {
			return
		}
		slog.Warn("send photo, falling back to link", "chat_id", chatID, "error", err)
		reply.Text += "\n" + reply.ImageURL
	case reply.FileURL != "":
		err := tg.SendGeneratedFile(ctx, b, chatID, h.files, reply.FileURL, reply.FileName)
		if err == nil {
			return
		}
		slog.Error("send generated file", "chat_id", chatID, "error", err)
		h.tgLogger.LogError(err, chatID, "send generated file")
	}

	if err := tg.SendReply(ctx, b, chatID, reply.Text, nil); err != nil {
		slog.Error("send reply", "chat_id", chatID, "error", err)
		h.tgLogger.LogError(err, chatID, "send reply")
	}
}

func (h *Handler) stageAttachment(ctx context.Context, b *bot.Bot, msg *models.Message) (*domain.Attachment, error) {
	switch {
	case len(msg.Photo) > 0:
		// Highest resolution is last.
		photo := msg.Photo[len(msg.Photo)-1]
		return tg.StageAttachment(ctx, b, h.blobs, photo.FileID, "photo.jpg", "image/jpeg", true)
	case msg.Document != nil:
		doc := msg.Document
		return tg.StageAttachment(ctx, b, h.blobs, doc.FileID, doc.FileName, doc.MimeType, strings.HasPrefix(doc.MimeType, "image/"))
	default:
		return nil, nil
	}
}
