package render_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/set-night/crazegpt/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderInlineMarkup(t *testing.T) {
	segments := render.Render("**a** *b* `c`")

	require.Len(t, segments, 1)
	assert.Equal(t, domain.SegmentText, segments[0].Kind)
	assert.Equal(t, "<strong>a</strong> <em>b</em> <code>c</code>", segments[0].HTML)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(segments[0].HTML))
	require.NoError(t, err)
	assert.Equal(t, "a", doc.Find("strong").Text())
	assert.Equal(t, "b", doc.Find("em").Text())
	assert.Equal(t, "c", doc.Find("code").Text())
}

func TestRenderFencedBlock(t *testing.T) {
	segments := render.Render("pre ```js\ncode()\n``` post")

	require.Len(t, segments, 3)
	assert.Equal(t, domain.Segment{Kind: domain.SegmentText, HTML: "pre ", Source: "pre "}, segments[0])
	assert.Equal(t, domain.Segment{Kind: domain.SegmentCode, Code: "code()", Language: "js"}, segments[1])
	assert.Equal(t, domain.Segment{Kind: domain.SegmentText, HTML: " post", Source: " post"}, segments[2])
}

func TestRenderFenceWithoutLanguage(t *testing.T) {
	segments := render.Render("```\nx := 1\n```")

	require.Len(t, segments, 1)
	assert.Equal(t, "text", segments[0].Language)
	assert.Equal(t, "x := 1", segments[0].Code)
}

func TestRenderMultipleFencesKeepOrder(t *testing.T) {
	segments := render.Render("a```go\n1\n```b```py\n2\n```c")

	require.Len(t, segments, 5)
	kinds := make([]domain.SegmentKind, len(segments))
	for i, s := range segments {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []domain.SegmentKind{
		domain.SegmentText, domain.SegmentCode, domain.SegmentText, domain.SegmentCode, domain.SegmentText,
	}, kinds)
	assert.Equal(t, "go", segments[1].Language)
	assert.Equal(t, "py", segments[3].Language)
}

func TestRenderCodeIsNotFormatted(t *testing.T) {
	segments := render.Render("```md\n**not bold**\n```")

	require.Len(t, segments, 1)
	assert.Equal(t, "**not bold**", segments[0].Code)
}

func TestRenderUnclosedFenceStaysText(t *testing.T) {
	segments := render.Render("open ```js\nfoo")

	require.Len(t, segments, 1)
	assert.Equal(t, domain.SegmentText, segments[0].Kind)
}

func TestInlineEscapesHTML(t *testing.T) {
	assert.Equal(t, "&lt;script&gt; <strong>x</strong>", render.Inline("<script> **x**"))
}

func TestInlineUnderscoreVariants(t *testing.T) {
	assert.Equal(t, "<strong>bold</strong> and <em>it</em>", render.Inline("__bold__ and _it_"))
	assert.Equal(t, "snake_case_name", render.Inline("snake_case_name"))
}

func TestInlineBoldBeforeItalic(t *testing.T) {
	assert.Equal(t, "<strong>a</strong>*", render.Inline("**a***"))
	assert.Equal(t, "*a<strong>b*c</strong>", render.Inline("*a**b*c**"))
}

func TestPlainText(t *testing.T) {
	segments := render.Render("**Hi** &amp; ```sh\nls\n```")

	assert.Equal(t, "Hi &amp; ls", render.PlainText(segments))
}

func TestToTelegramHTML(t *testing.T) {
	got := render.ToTelegramHTML(render.Render("see **this**\n```go\nif a < b {}\n```"))

	assert.Equal(t, "see <strong>this</strong>\n<pre><code class=\"language-go\">if a &lt; b {}</code></pre>", got)
}
