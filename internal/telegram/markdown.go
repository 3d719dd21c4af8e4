package telegram

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/set-night/crazegpt/internal/render"
)

// codeBlockOverhead leaves room for the pre/code wrapper around split code.
const codeBlockOverhead = 64

// SplitMessage splits a message into chunks of maxLen characters,
// trying to split at newlines when possible.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if utf8.RuneCountInString(text) <= maxLen {
			parts = append(parts, text)
			break
		}

		runes := []rune(text)
		splitAt := maxLen

		chunk := string(runes[:maxLen])
		if lastNewline := strings.LastIndex(chunk, "\n"); lastNewline > 0 {
			if at := utf8.RuneCountInString(chunk[:lastNewline]) + 1; at > maxLen/2 {
				splitAt = at
			}
		}

		parts = append(parts, string(runes[:splitAt]))
		text = string(runes[splitAt:])
	}

	return parts
}

// FixMarkdown closes an unterminated code fence or inline code span so the
// reply renders as the model most likely intended.
func FixMarkdown(text string) string {
	if strings.Count(text, "```")%2 != 0 {
		text += "\n```"
	}
	return fixInlineCode(text)
}

func fixInlineCode(text string) string {
	var builder strings.Builder
	inCodeBlock := false
	inlineOpen := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && string(runes[i:i+3]) == "```" {
			if inlineOpen {
				builder.WriteRune('`')
				inlineOpen = false
			}
			inCodeBlock = !inCodeBlock
			builder.WriteString("```")
			i += 2
			continue
		}

		if !inCodeBlock && runes[i] == '`' {
			inlineOpen = !inlineOpen
		}

		builder.WriteRune(runes[i])
	}

	if inlineOpen {
		builder.WriteRune('`')
	}

	return builder.String()
}

// FormatHTML renders a reply to Telegram HTML chunks of at most maxLen runes.
// Chunks break between segments where possible; an oversized code block is
// split into several pre blocks.
func FormatHTML(text string, maxLen int) []string {
	segments := render.Render(FixMarkdown(text))

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, piece := range segmentPieces(segments, maxLen) {
		if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(piece) > maxLen {
			flush()
		}
		current.WriteString(piece)
	}
	flush()

	if len(chunks) == 0 {
		return []string{""}
	}
	return chunks
}

func segmentPieces(segments []domain.Segment, maxLen int) []string {
	var pieces []string
	for _, seg := range segments {
		piece := render.SegmentTelegramHTML(seg)
		if utf8.RuneCountInString(piece) <= maxLen {
			pieces = append(pieces, piece)
			continue
		}

		if seg.Kind == domain.SegmentCode {
			for _, part := range SplitMessage(seg.Code, maxLen-codeBlockOverhead) {
				pieces = append(pieces, render.SegmentTelegramHTML(domain.Segment{
					Kind:     domain.SegmentCode,
					Code:     part,
					Language: seg.Language,
				}))
			}
			continue
		}
		pieces = append(pieces, inlineChunks(seg.Source, maxLen, maxLen)...)
	}
	return pieces
}

// inlineChunks splits markdown text before converting it, so no cut lands
// inside a tag or an entity. A part that grows past maxLen once escaped is
// split again at half its size.
func inlineChunks(src string, size, maxLen int) []string {
	var out []string
	for _, part := range SplitMessage(src, size) {
		converted := render.Inline(part)
		n := utf8.RuneCountInString(part)
		if utf8.RuneCountInString(converted) <= maxLen || n <= 1 {
			out = append(out, converted)
			continue
		}
		out = append(out, inlineChunks(part, max(n/2, 1), maxLen)...)
	}
	return out
}

// PlainText strips markup from a rendered chunk for the plain-text fallback.
func PlainText(htmlChunk string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlChunk))
	if err != nil {
		return htmlChunk
	}
	return doc.Text()
}
