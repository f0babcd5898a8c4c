// Package memory provides an in-process remote file service. The server
// uses it when no database is configured, and tests use it as the remote.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"yarny/internal/domain"
	models "yarny/internal/domain/models/story"
	storyRepo "yarny/internal/domain/repositories/story"
	"yarny/internal/utils"
)

const defaultPageSize = 100

type file struct {
	id       string
	name     string
	mimeType string
	parentID string
	content  string
	modified time.Time
}

// RemoteFiles is a thread-safe in-memory RemoteFileService.
type RemoteFiles struct {
	mu       sync.Mutex
	files    map[string]*file
	pageSize int
	now      func() time.Time
	last     time.Time
}

var _ storyRepo.RemoteFileService = (*RemoteFiles)(nil)

// NewRemoteFiles creates an empty store. pageSize <= 0 uses 100.
func NewRemoteFiles(pageSize int) *RemoteFiles {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &RemoteFiles{
		files:    map[string]*file{},
		pageSize: pageSize,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (r *RemoteFiles) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// stamp returns a modification time strictly after the previous one, so
// two writes are always ordered at millisecond precision.
func (r *RemoteFiles) stamp() time.Time {
	t := r.now().UTC().Truncate(time.Millisecond)
	if !t.After(r.last) {
		t = r.last.Add(time.Millisecond)
	}
	r.last = t
	return t
}

func (r *RemoteFiles) ListFiles(ctx context.Context, folderID, pageToken string) (*models.FileList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid page token %q", pageToken)}
		}
		offset = n
	}

	var children []*file
	for _, f := range r.files {
		if f.parentID == folderID {
			children = append(children, f)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].name != children[j].name {
			return children[i].name < children[j].name
		}
		return children[i].id < children[j].id
	})

	list := &models.FileList{Files: []models.RemoteFile{}}
	if offset >= len(children) {
		return list, nil
	}
	end := min(offset+r.pageSize, len(children))
	for _, f := range children[offset:end] {
		list.Files = append(list.Files, toRemote(f))
	}
	if end < len(children) {
		list.NextPageToken = strconv.Itoa(end)
	}
	return list, nil
}

func (r *RemoteFiles) ReadFile(ctx context.Context, fileID string) (*models.FileContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[fileID]
	if !ok || f.mimeType == models.MimeFolder {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
	}
	return &models.FileContent{Content: f.content, ModifiedTime: models.Timestamp(f.modified)}, nil
}

func (r *RemoteFiles) WriteFile(ctx context.Context, req *models.WriteFileRequest) (*models.WriteFileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.FileID != "" {
		f, ok := r.files[req.FileID]
		if !ok {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", req.FileID)}
		}
		if req.FileName != "" {
			f.name = req.FileName
		}
		if req.MimeType != "" {
			f.mimeType = req.MimeType
		}
		f.content = req.Content
		f.modified = r.stamp()
		return &models.WriteFileResult{ID: f.id, ModifiedTime: models.Timestamp(f.modified)}, nil
	}

	if req.FileName == "" {
		return nil, &domain.ValidationError{Message: "file name is required"}
	}
	if err := r.checkParent(req.ParentFolderID); err != nil {
		return nil, err
	}
	mime := req.MimeType
	if mime == "" {
		mime = models.MimeText
	}
	f := &file{
		id:       utils.NewID("file"),
		name:     req.FileName,
		mimeType: mime,
		parentID: req.ParentFolderID,
		content:  req.Content,
		modified: r.stamp(),
	}
	r.files[f.id] = f
	return &models.WriteFileResult{ID: f.id, ModifiedTime: models.Timestamp(f.modified)}, nil
}

// DeleteFile removes the file and, for folders, everything below it.
func (r *RemoteFiles) DeleteFile(ctx context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[fileID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
	}
	r.deleteTree(fileID)
	return nil
}

func (r *RemoteFiles) deleteTree(id string) {
	for childID, f := range r.files {
		if f.parentID == id {
			r.deleteTree(childID)
		}
	}
	delete(r.files, id)
}

func (r *RemoteFiles) CreateFolder(ctx context.Context, name, parentFolderID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return "", &domain.ValidationError{Message: "folder name is required"}
	}
	if err := r.checkParent(parentFolderID); err != nil {
		return "", err
	}
	f := &file{
		id:       utils.NewID("folder"),
		name:     name,
		mimeType: models.MimeFolder,
		parentID: parentFolderID,
		modified: r.stamp(),
	}
	r.files[f.id] = f
	return f.id, nil
}

func (r *RemoteFiles) RenameFile(ctx context.Context, fileID, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[fileID]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
	}
	if newName == "" {
		return &domain.ValidationError{Message: "new name is required"}
	}
	f.name = newName
	f.modified = r.stamp()
	return nil
}

// checkParent accepts the root ("") or an existing folder.
func (r *RemoteFiles) checkParent(id string) error {
	if id == "" {
		return nil
	}
	parent, ok := r.files[id]
	if !ok || parent.mimeType != models.MimeFolder {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", id)}
	}
	return nil
}

func toRemote(f *file) models.RemoteFile {
	return models.RemoteFile{
		ID:           f.id,
		Name:         f.name,
		MimeType:     f.mimeType,
		ParentID:     f.parentID,
		ModifiedTime: models.Timestamp(f.modified),
	}
}
