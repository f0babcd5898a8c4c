package story

// DataDocument is the wire format of a story's data.json, the remote
// story-of-record for chapter and snippet structure.
type DataDocument struct {
	Groups   map[string]DataGroup   `json:"groups"`
	Snippets map[string]DataSnippet `json:"snippets"`
}

// DataGroup is a chapter as stored in data.json.
type DataGroup struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Color         string   `json:"color"`
	Position      int      `json:"position"`
	SnippetIDs    []string `json:"snippetIds"`
	DriveFolderID string   `json:"driveFolderId"`
	UpdatedAt     string   `json:"updatedAt"`
}

// DataSnippet is a snippet as stored in data.json.
type DataSnippet struct {
	ID          string `json:"id"`
	GroupID     string `json:"groupId"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Order       int    `json:"order"`
	DriveFileID string `json:"driveFileId,omitempty"`
	UpdatedAt   string `json:"updatedAt"`
}

// ProjectDocument is the wire format of a story's project.json.
type ProjectDocument struct {
	Name        string   `json:"name"`
	ProjectID   string   `json:"projectId"`
	Description string   `json:"description,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	WordGoal    int      `json:"wordGoal,omitempty"`
	GroupIDs    []string `json:"groupIds"`
	UpdatedAt   string   `json:"updatedAt"`
}

// NotesDocument is the wire format of a story's notes.json. Notes are not
// part of data.json.
type NotesDocument struct {
	Notes map[string]DataNote `json:"notes"`
}

// DataNote is a note as stored in notes.json.
type DataNote struct {
	ID        string   `json:"id"`
	Kind      NoteKind `json:"kind"`
	Title     string   `json:"title,omitempty"`
	Body      string   `json:"body"`
	Order     int      `json:"order"`
	UpdatedAt string   `json:"updatedAt"`
}

// RemoteFile is one entry of a remote folder listing.
type RemoteFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ParentID     string `json:"parentId"`
	ModifiedTime string `json:"modifiedTime"`
}

// FileList is one page of a remote folder listing.
type FileList struct {
	Files         []RemoteFile `json:"files"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
}

// FileContent is the result of reading a remote file.
type FileContent struct {
	Content      string `json:"content"`
	ModifiedTime string `json:"modifiedTime"`
}

// WriteFileRequest creates (empty FileID) or overwrites a remote file.
type WriteFileRequest struct {
	FileID         string `json:"fileId,omitempty"`
	FileName       string `json:"fileName"`
	Content        string `json:"content"`
	ParentFolderID string `json:"parentFolderId"`
	MimeType       string `json:"mimeType,omitempty"`
}

// WriteFileResult identifies the written file and its new stamp.
type WriteFileResult struct {
	ID           string `json:"id"`
	ModifiedTime string `json:"modifiedTime"`
}

// Remote MIME types.
const (
	MimeFolder = "application/vnd.google-apps.folder"
	MimeJSON   = "application/json"
	MimeText   = "text/plain"
)
