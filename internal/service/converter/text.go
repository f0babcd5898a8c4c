package converter

import (
	"context"
	"strings"

	storySvc "yarny/internal/domain/services/story"
)

// textConverter passes plain text through, normalizing line endings.
type textConverter struct{}

func NewTextConverter() storySvc.ContentConverter {
	return &textConverter{}
}

func (c *textConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return normalizeNewlines(string(input)), nil
}

func (c *textConverter) SupportedExtensions() []string {
	return []string{".txt", ".text"}
}

func (c *textConverter) Name() string {
	return "plaintext"
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
