package story

import (
	"context"

	models "yarny/internal/domain/models/story"
)

// RemoteFileService is the opaque remote storage API (Drive-like). Folder
// listings are paged; callers own the page loop.
type RemoteFileService interface {
	// ListFiles returns one page of the folder's children
	ListFiles(ctx context.Context, folderID, pageToken string) (*models.FileList, error)

	// ReadFile returns the file content and its modification stamp
	ReadFile(ctx context.Context, fileID string) (*models.FileContent, error)

	// WriteFile creates the file when req.FileID is empty, otherwise overwrites it
	WriteFile(ctx context.Context, req *models.WriteFileRequest) (*models.WriteFileResult, error)

	// DeleteFile removes a file or folder
	DeleteFile(ctx context.Context, fileID string) error

	// CreateFolder creates a folder under parentFolderID and returns its ID
	CreateFolder(ctx context.Context, name, parentFolderID string) (string, error)

	// RenameFile renames a file or folder in place
	RenameFile(ctx context.Context, fileID, newName string) error
}
