package story

// Names of the Yarny-managed metadata caches written into an imported root.
const (
	LocalProjectFile = "yarny-project.json"
	LocalStoryFile   = "yarny-story.json"
)

// LocalProjectMetadata is the content of yarny-project.json.
type LocalProjectMetadata struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	StorageType StorageType `json:"storageType"`
	StoryIDs    []string    `json:"storyIds"`
	UpdatedAt   string      `json:"updatedAt"`
}

// LocalStoryMetadata is the content of yarny-story.json.
type LocalStoryMetadata struct {
	ID        string                 `json:"id"`
	ProjectID string                 `json:"projectId"`
	Title     string                 `json:"title"`
	Chapters  []LocalChapterMetadata `json:"chapters"`
	UpdatedAt string                 `json:"updatedAt"`
}

// LocalChapterMetadata describes one chapter folder.
type LocalChapterMetadata struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Order      int      `json:"order"`
	SnippetIDs []string `json:"snippetIds"`
	Color      string   `json:"color"`
}
