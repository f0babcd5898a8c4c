package story

import "context"

// ContentConverter converts file content to plain text.
// Each converter handles a specific file type (md, txt, html)
// and produces the plain text stored in snippets and notes.
//
// Implementations should be stateless and thread-safe.
type ContentConverter interface {
	// Convert transforms input content to plain text.
	// Returns an error if conversion fails.
	Convert(ctx context.Context, input []byte) (text string, err error)

	// SupportedExtensions returns file extensions this converter handles.
	// Extensions should include the leading dot (e.g., [".html", ".htm"]).
	SupportedExtensions() []string

	// Name returns a human-readable converter name for logging/debugging.
	Name() string
}
