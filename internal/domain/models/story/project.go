package story

// StorageType selects the authoritative write path for a project and all of
// its descendants. It never changes after the project is created.
type StorageType string

const (
	StorageDrive StorageType = "drive"
	StorageLocal StorageType = "local"
)

// Project owns an ordered list of stories.
type Project struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	DriveFolderID string      `json:"driveFolderId"`
	StoryIDs      []string    `json:"storyIds"`
	UpdatedAt     string      `json:"updatedAt"`
	StorageType   StorageType `json:"storageType"`
	LocalPath     string      `json:"localPath,omitempty"`
}

// Clone returns a copy that shares no slices with p.
func (p Project) Clone() Project {
	p.StoryIDs = cloneIDs(p.StoryIDs)
	return p
}

// Story belongs to exactly one project. The project holds the forward list;
// ProjectID is only a back-reference.
type Story struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"projectId"`
	Title       string   `json:"title"`
	DriveFileID string   `json:"driveFileId"`
	ChapterIDs  []string `json:"chapterIds"`
	UpdatedAt   string   `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with s.
func (s Story) Clone() Story {
	s.ChapterIDs = cloneIDs(s.ChapterIDs)
	return s
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
