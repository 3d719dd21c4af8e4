package service

import (
	"strings"

	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
)

// Prompt is the provider-neutral request: a persona description plus the
// user turn with recent conversation folded in.
type Prompt struct {
	System string
	User   string
}

func systemPrompt(poweredBy string) string {
	return "You are CrazeGPT, an advanced AI assistant created by CraftingCrazeGaming. You are powered by " + poweredBy +
		` and have great capabilities and can remember conversations.

Key capabilities:
- Good conversation memory and context understanding
- Code generation with copy functionality
- Image analysis and generation
- File creation in various formats
- Rich text formatting with markdown
- Helpful problem-solving abilities
- Professional and helpful responses

Respond with detailed, helpful information. Use markdown formatting for better readability (**bold**, *italic*, ` + "`code`" + `, etc). Remember and reference previous conversation context when relevant.`
}

// BuildPrompt folds the last config.ContextWindow history messages into
// "Sender: text" lines ahead of the current message.
func BuildPrompt(poweredBy string, history []domain.ChatMessage, text string) Prompt {
	start := 0
	if len(history) > config.ContextWindow {
		start = len(history) - config.ContextWindow
	}

	var sb strings.Builder
	window := history[start:]
	if len(window) > 0 {
		sb.WriteString("Previous conversation:\n")
		for _, m := range window {
			sb.WriteString(senderLabel(m.Sender))
			sb.WriteString(": ")
			sb.WriteString(m.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\nCurrent message:\n")
	}
	sb.WriteString(text)

	return Prompt{System: systemPrompt(poweredBy), User: sb.String()}
}

func senderLabel(s domain.Sender) string {
	if s == domain.SenderAI {
		return "AI"
	}
	return "User"
}
