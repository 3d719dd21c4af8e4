package handler

import (
	"context"
	"fmt"
	"html"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	name := "there"
	if from := update.Message.From; from != nil && from.FirstName != "" {
		name = from.FirstName
	}

	welcomeText := fmt.Sprintf(
		"👋 Hi, <b>%s</b>!\n\n"+
			"I am <b>CrazeGPT</b>, an AI assistant by CraftingCrazeGaming. "+
			"Just write to me and I will answer with memory of our conversation.\n\n"+
			"📋 <b>Commands:</b>\n"+
			"/new — Start a new conversation\n"+
			"/sessions — Switch or delete conversations\n"+
			"/models — Choose the AI model\n"+
			"/image &lt;prompt&gt; — Generate an image\n\n"+
			"💡 Ask me to <i>create a json file</i> or <i>make a file</i> and I will send it as a document.",
		html.EscapeString(name),
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      welcomeText,
		ParseMode: models.ParseModeHTML,
	})
}
