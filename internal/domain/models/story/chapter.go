package story

// Chapter groups snippets inside a story. Order is the authoritative
// position; SnippetIDs[i] must be the snippet whose Order is i once a
// mutation settles.
type Chapter struct {
	ID            string   `json:"id"`
	StoryID       string   `json:"storyId"`
	Title         string   `json:"title"`
	Color         string   `json:"color,omitempty"`
	Order         int      `json:"order"`
	SnippetIDs    []string `json:"snippetIds"`
	DriveFolderID string   `json:"driveFolderId"`
	UpdatedAt     string   `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with c.
func (c Chapter) Clone() Chapter {
	c.SnippetIDs = cloneIDs(c.SnippetIDs)
	return c
}

// Snippet is a unit of plain-text prose inside a chapter.
type Snippet struct {
	ID              string `json:"id"`
	StoryID         string `json:"storyId"`
	ChapterID       string `json:"chapterId"`
	Order           int    `json:"order"`
	Title           string `json:"title,omitempty"`
	Content         string `json:"content"`
	DriveFileID     string `json:"driveFileId,omitempty"`
	DriveRevisionID string `json:"driveRevisionId,omitempty"`
	UpdatedAt       string `json:"updatedAt"`
}
