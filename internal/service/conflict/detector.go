// Package conflict detects when a snippet's remote document changed after
// this client last saved it.
package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	models "yarny/internal/domain/models/story"
	storyRepo "yarny/internal/domain/repositories/story"
)

// Detector remembers the remote stamp of every save this client made and
// compares it against the remote document on demand.
type Detector struct {
	files  storyRepo.RemoteFileService
	logger *slog.Logger

	mu    sync.Mutex
	saved map[string]string
}

// New creates a detector over the remote file service.
func New(files storyRepo.RemoteFileService, logger *slog.Logger) *Detector {
	return &Detector{
		files:  files,
		logger: logger,
		saved:  map[string]string{},
	}
}

// RecordSave stores the remote modification stamp returned by a save.
func (d *Detector) RecordSave(snippetID, modifiedTime string) {
	if snippetID == "" || modifiedTime == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved[snippetID] = modifiedTime
}

// LastSaved returns the stamp of the last recorded save, or "".
func (d *Detector) LastSaved(snippetID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saved[snippetID]
}

// Forget drops the recorded stamp, e.g. after the snippet is deleted.
func (d *Detector) Forget(snippetID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.saved, snippetID)
}

// Check reads the snippet's remote document and returns a conflict when the
// remote stamp is strictly newer than the last known save and the content
// differs. Snippets without a remote document never conflict.
//
// Without a recorded save the snippet's own UpdatedAt is the baseline; with
// neither, any remote revision counts as newer.
func (d *Detector) Check(ctx context.Context, snippet *models.Snippet) (*models.Conflict, error) {
	if snippet.DriveFileID == "" {
		return nil, nil
	}
	remote, err := d.files.ReadFile(ctx, snippet.DriveFileID)
	if err != nil {
		return nil, fmt.Errorf("read remote snippet %s: %w", snippet.ID, err)
	}

	local := d.LastSaved(snippet.ID)
	if local == "" {
		local = snippet.UpdatedAt
	}
	newer, err := isStrictlyNewer(local, remote.ModifiedTime)
	if err != nil {
		d.logger.Warn("conflict check skipped, unreadable timestamp",
			"snippet_id", snippet.ID,
			"local_modified_time", local,
			"drive_modified_time", remote.ModifiedTime,
			"error", err,
		)
		return nil, nil
	}
	if !newer || remote.Content == snippet.Content {
		return nil, nil
	}

	d.logger.Info("snippet conflict detected",
		"snippet_id", snippet.ID,
		"local_modified_time", local,
		"drive_modified_time", remote.ModifiedTime,
	)
	return &models.Conflict{
		SnippetID:         snippet.ID,
		LocalModifiedTime: local,
		DriveModifiedTime: remote.ModifiedTime,
		LocalContent:      snippet.Content,
		DriveContent:      remote.Content,
	}, nil
}

// KeepLocal pushes the local content over the remote document, which bumps
// the remote stamp, and returns the snippet carrying that stamp.
func (d *Detector) KeepLocal(ctx context.Context, snippet *models.Snippet) (*models.Snippet, error) {
	if snippet.DriveFileID == "" {
		return nil, fmt.Errorf("snippet %s has no remote document", snippet.ID)
	}
	res, err := d.files.WriteFile(ctx, &models.WriteFileRequest{
		FileID:   snippet.DriveFileID,
		Content:  snippet.Content,
		MimeType: models.MimeText,
	})
	if err != nil {
		return nil, fmt.Errorf("push local snippet %s: %w", snippet.ID, err)
	}
	d.RecordSave(snippet.ID, res.ModifiedTime)

	resolved := *snippet
	resolved.UpdatedAt = res.ModifiedTime
	d.logger.Info("conflict resolved",
		"snippet_id", snippet.ID,
		"resolution", models.ResolveKeepLocal,
	)
	return &resolved, nil
}

// AcceptRemote returns the snippet with the remote content and stamp, and
// records that stamp as the new baseline.
func (d *Detector) AcceptRemote(snippet *models.Snippet, c *models.Conflict) *models.Snippet {
	resolved := *snippet
	resolved.Content = c.DriveContent
	resolved.UpdatedAt = c.DriveModifiedTime
	d.RecordSave(snippet.ID, c.DriveModifiedTime)
	d.logger.Info("conflict resolved",
		"snippet_id", snippet.ID,
		"resolution", models.ResolveAcceptRemote,
	)
	return &resolved
}

func isStrictlyNewer(local, remote string) (bool, error) {
	remoteAt, err := models.ParseTimestamp(remote)
	if err != nil {
		return false, err
	}
	if local == "" {
		return true, nil
	}
	localAt, err := models.ParseTimestamp(local)
	if err != nil {
		return false, err
	}
	return remoteAt.UnixMilli() > localAt.UnixMilli(), nil
}
