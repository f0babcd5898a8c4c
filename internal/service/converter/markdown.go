package converter

import (
	"context"
	"regexp"
	"strings"

	storySvc "yarny/internal/domain/services/story"
)

// markdownConverter reduces markdown to the plain prose stored in snippets.
// Paragraph breaks survive; emphasis, headings, list markers, links and
// code fences do not.
type markdownConverter struct{}

func NewMarkdownConverter() storySvc.ContentConverter {
	return &markdownConverter{}
}

var (
	fenceLine   = regexp.MustCompile("^\\s*(```|~~~)")
	ruleLine    = regexp.MustCompile(`^\s*([-*_])(\s*([-*_])){2,}\s*$`)
	headingMark = regexp.MustCompile(`^\s{0,3}#{1,6}\s+`)
	headingTail = regexp.MustCompile(`\s+#+\s*$`)
	quoteMark   = regexp.MustCompile(`^\s{0,3}(>\s?)+`)
	bulletMark  = regexp.MustCompile(`^\s*[-*+]\s+`)
	orderedMark = regexp.MustCompile(`^\s*\d+[.)]\s+`)

	image      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	link       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	inlineCode = regexp.MustCompile("`([^`]*)`")
	strongStar = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	strongLine = regexp.MustCompile(`__([^_]+)__`)
	emStar     = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
	emLine     = regexp.MustCompile(`(^|[^\w])_([^_\s][^_]*)_([^\w]|$)`)
	strike     = regexp.MustCompile(`~~([^~]+)~~`)
	escaped    = regexp.MustCompile(`\\([\\` + "`" + `*_{}\[\]()#+\-.!>~])`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

const privateUse = 0xE000

func (c *markdownConverter) Convert(ctx context.Context, input []byte) (string, error) {
	lines := strings.Split(normalizeNewlines(string(input)), "\n")
	out := make([]string, 0, len(lines))
	inFence := false

	for _, line := range lines {
		if fenceLine.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		if ruleLine.MatchString(line) {
			out = append(out, "")
			continue
		}
		if headingMark.MatchString(line) {
			line = headingMark.ReplaceAllString(line, "")
			line = headingTail.ReplaceAllString(line, "")
		}
		line = quoteMark.ReplaceAllString(line, "")
		line = bulletMark.ReplaceAllString(line, "")
		line = orderedMark.ReplaceAllString(line, "")
		out = append(out, stripInline(line))
	}

	text := strings.Join(out, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

// stripInline removes inline markup. Escaped characters are parked in the
// private-use area first so the emphasis patterns cannot see them.
func stripInline(line string) string {
	line = escaped.ReplaceAllStringFunc(line, func(m string) string {
		return string(rune(privateUse + int(m[1])))
	})
	line = image.ReplaceAllString(line, "$1")
	line = link.ReplaceAllString(line, "$1")
	line = inlineCode.ReplaceAllString(line, "$1")
	line = strongStar.ReplaceAllString(line, "$1")
	line = strongLine.ReplaceAllString(line, "$1")
	line = emStar.ReplaceAllString(line, "$1")
	line = emLine.ReplaceAllString(line, "$1$2$3")
	line = strike.ReplaceAllString(line, "$1")
	line = strings.Map(func(r rune) rune {
		if r >= privateUse && r < privateUse+128 {
			return r - privateUse
		}
		return r
	}, line)
	return strings.TrimRight(line, " \t")
}

func (c *markdownConverter) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

func (c *markdownConverter) Name() string {
	return "markdown"
}
