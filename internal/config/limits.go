package config

const (
	// MaxTitleLength bounds chapter, snippet and story titles.
	MaxTitleLength = 255

	// MaxSnippetContentLength bounds a single snippet's plain text (1 MiB).
	MaxSnippetContentLength = 1 << 20

	// DefaultMaxListPages is how many pages of a remote folder listing are
	// fetched before the result is accepted as partial.
	DefaultMaxListPages = 10

	// ImportConcurrency bounds parallel file reads during a directory import.
	ImportConcurrency = 8
)

// ChapterPalette is cycled by chapter index to give chapters their accent
// color. Changing its length changes every imported chapter's color.
var ChapterPalette = []string{
	"#E57373", // red
	"#F06292", // pink
	"#BA68C8", // purple
	"#7986CB", // indigo
	"#4FC3F7", // light blue
	"#4DB6AC", // teal
	"#81C784", // green
	"#FFD54F", // amber
	"#FF8A65", // deep orange
	"#A1887F", // brown
	"#90A4AE", // blue grey
	"#DCE775", // lime
}
