package story

// Conflict is produced when the remote copy of a snippet is newer than the
// last save this client made and its content differs.
type Conflict struct {
	SnippetID         string `json:"snippetId"`
	LocalModifiedTime string `json:"localModifiedTime"`
	DriveModifiedTime string `json:"driveModifiedTime"`
	LocalContent      string `json:"localContent"`
	DriveContent      string `json:"driveContent"`
}

// Resolution is the binary choice made on a conflict.
type Resolution string

const (
	ResolveKeepLocal    Resolution = "local"
	ResolveAcceptRemote Resolution = "remote"
)
