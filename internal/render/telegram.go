package render

import (
	"html"
	"strings"

	"github.com/set-night/crazegpt/internal/domain"
)

// ToTelegramHTML joins segments into the HTML subset Telegram accepts.
func ToTelegramHTML(segments []domain.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(SegmentTelegramHTML(seg))
	}
	return sb.String()
}

// SegmentTelegramHTML renders one segment; code becomes a pre block tagged
// with its language.
func SegmentTelegramHTML(seg domain.Segment) string {
	if seg.Kind != domain.SegmentCode {
		return seg.HTML
	}
	return `<pre><code class="language-` + html.EscapeString(seg.Language) + `">` +
		html.EscapeString(seg.Code) + "</code></pre>"
}
