package converter

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"

	storySvc "yarny/internal/domain/services/story"
)

// htmlConverter turns HTML into plain text in three stages: sanitize,
// convert to markdown, strip the markdown.
type htmlConverter struct {
	policy    *bluemonday.Policy
	converter *md.Converter
	markdown  *markdownConverter
}

// NewHTMLConverter creates an HTML converter. Scripts, styles and event
// handlers are dropped before conversion.
func NewHTMLConverter() storySvc.ContentConverter {
	return &htmlConverter{
		policy:    bluemonday.UGCPolicy(),
		converter: md.NewConverter("", true, nil),
		markdown:  &markdownConverter{},
	}
}

func (c *htmlConverter) Convert(ctx context.Context, input []byte) (string, error) {
	sanitized := c.policy.SanitizeBytes(input)

	markdown, err := c.converter.ConvertBytes(sanitized)
	if err != nil {
		return "", fmt.Errorf("convert HTML to markdown: %w", err)
	}
	return c.markdown.Convert(ctx, markdown)
}

func (c *htmlConverter) SupportedExtensions() []string {
	return []string{".html", ".htm"}
}

func (c *htmlConverter) Name() string {
	return "html"
}
