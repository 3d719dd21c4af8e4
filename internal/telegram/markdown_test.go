package telegram

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	parts := SplitMessage(strings.Repeat("ab\n", 10), 10)
	for _, p := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 10)
	}
	assert.Equal(t, strings.Repeat("ab\n", 10), strings.Join(parts, ""))
}

func TestSplitMessageRunes(t *testing.T) {
	text := strings.Repeat("п", 25)
	parts := SplitMessage(text, 10)
	require.Len(t, parts, 3)
	assert.Equal(t, 10, utf8.RuneCountInString(parts[0]))
}

func TestFixMarkdown(t *testing.T) {
	assert.Equal(t, "```go\nx\n```", FixMarkdown("```go\nx"))
	assert.Equal(t, "use `x`", FixMarkdown("use `x"))
}

func TestFormatHTML(t *testing.T) {
	chunks := FormatHTML("**Note** & more\n```sh\nls -la\n```", 4096)
	require.Len(t, chunks, 1)
	assert.Equal(t, "<strong>Note</strong> &amp; more\n<pre><code class=\"language-sh\">ls -la</code></pre>", chunks[0])

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(chunks[0]))
	require.NoError(t, err)
	assert.Equal(t, "ls -la", doc.Find("pre code").Text())
}

func TestFormatHTMLSplitsLongCode(t *testing.T) {
	code := strings.Repeat("line of code\n", 40)
	chunks := FormatHTML("intro\n```\n"+code+"```", 200)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 200)
		if strings.Contains(c, "<pre>") {
			assert.Equal(t, strings.Count(c, "<pre>"), strings.Count(c, "</pre>"))
		}
	}
}

func TestFormatHTMLSplitsLongTextOnSource(t *testing.T) {
	text := strings.Repeat("**bold** Tom & Jerry <3 ", 30)
	chunks := FormatHTML(text, 100)

	entities := regexp.MustCompile(`&(?:amp|lt|gt|quot|#34|#39);`)
	tags := regexp.MustCompile(`</?(?:strong|em|code)>`)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		assert.Equal(t, strings.Count(c, "<strong>"), strings.Count(c, "</strong>"), c)
		rest := tags.ReplaceAllString(entities.ReplaceAllString(c, ""), "")
		assert.NotContains(t, rest, "&", c)
		assert.NotContains(t, rest, "<", c)
		assert.NotContains(t, rest, ">", c)
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a & b code", PlainText("<strong>a</strong> &amp; b <code>code</code>"))
}

func TestSessionsKeyboard(t *testing.T) {
	var sessions []domain.ChatSession
	for i := 0; i < 7; i++ {
		sessions = append(sessions, domain.ChatSession{ID: string(rune('a' + i)), Title: "chat"})
	}

	kb := SessionsKeyboard(sessions, 1, 5, "f")
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, "✅ chat", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, CallbackSessionOpen+"f", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, CallbackSessionDelete+"g", kb.InlineKeyboard[1][1].CallbackData)
	assert.Equal(t, "sess_page_0", kb.InlineKeyboard[2][0].CallbackData)
}

func TestModelsKeyboardSkipsLongIDs(t *testing.T) {
	kb := ModelsKeyboard([]domain.AIModel{
		{ID: "deepseek/deepseek-chat", Name: "DeepSeek Chat"},
		{ID: strings.Repeat("x", 80)},
	}, "deepseek/deepseek-chat")

	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "✅ DeepSeek Chat", kb.InlineKeyboard[0][0].Text)
}
