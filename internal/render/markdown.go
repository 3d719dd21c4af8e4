// Package render converts the constrained markdown subset used in chat replies
// into display segments: fenced code blocks plus inline bold, italic and code.
package render

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/set-night/crazegpt/internal/domain"
)

const defaultLanguage = "text"

var (
	fenceRe = regexp.MustCompile("(?s)```(?:([\\w+#.-]+)?[ \\t]*\\n)?(.*?)```")

	boldStarRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderscoreRe = regexp.MustCompile(`__(.+?)__`)
	italicStarRe     = regexp.MustCompile(`\*([^*\n<>]+)\*`)
	italicUnderRe    = regexp.MustCompile(`_([^_\n<>]+)_`)
	inlineCodeRe     = regexp.MustCompile("`([^`\\n]+)`")
)

// Render splits text into ordered segments. Fenced blocks become code
// segments; everything between them becomes text segments with inline markup
// converted to HTML. Empty text segments are dropped.
func Render(text string) []domain.Segment {
	var segments []domain.Segment

	pos := 0
	for _, m := range fenceRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > pos {
			segments = append(segments, textSegment(text[pos:m[0]]))
		}

		lang := defaultLanguage
		if m[2] >= 0 {
			lang = text[m[2]:m[3]]
		}
		segments = append(segments, domain.Segment{
			Kind:     domain.SegmentCode,
			Code:     trimOneNewline(text[m[4]:m[5]]),
			Language: lang,
		})
		pos = m[1]
	}
	if pos < len(text) {
		segments = append(segments, textSegment(text[pos:]))
	}

	return segments
}

// Inline applies the inline substitutions to a text fragment: bold first,
// then italic, then inline code.
func Inline(text string) string {
	out := html.EscapeString(text)

	out = boldStarRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = boldUnderscoreRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = replaceItalic(out, italicStarRe, '*', false)
	out = replaceItalic(out, italicUnderRe, '_', true)
	out = inlineCodeRe.ReplaceAllString(out, "<code>$1</code>")

	return out
}

// PlainText flattens segments back into unformatted text.
func PlainText(segments []domain.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		switch seg.Kind {
		case domain.SegmentCode:
			sb.WriteString(seg.Code)
		default:
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(seg.HTML))
			if err != nil {
				sb.WriteString(html.UnescapeString(seg.HTML))
				continue
			}
			sb.WriteString(doc.Text())
		}
	}
	return sb.String()
}

func textSegment(s string) domain.Segment {
	return domain.Segment{Kind: domain.SegmentText, HTML: Inline(s), Source: s}
}

// replaceItalic wraps single-marker spans in <em>. Spans never cross a tag
// inserted by the bold pass. A span touching another
// marker character is left alone; for underscores a span touching a letter or
// digit is left alone too, so snake_case identifiers survive.
func replaceItalic(s string, re *regexp.Regexp, marker byte, wordGuard bool) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var sb strings.Builder
	pos := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if !italicBoundary(s, start, end, marker, wordGuard) {
			continue
		}
		sb.WriteString(s[pos:start])
		sb.WriteString("<em>")
		sb.WriteString(s[m[2]:m[3]])
		sb.WriteString("</em>")
		pos = end
	}
	sb.WriteString(s[pos:])
	return sb.String()
}

func italicBoundary(s string, start, end int, marker byte, wordGuard bool) bool {
	if start > 0 {
		prev := s[start-1]
		if prev == marker || (wordGuard && isWordByte(prev)) {
			return false
		}
	}
	if end < len(s) {
		next := s[end]
		if next == marker || (wordGuard && isWordByte(next)) {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func trimOneNewline(s string) string {
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, "\n")
	return s
}
