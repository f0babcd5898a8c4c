package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"yarny/internal/domain"
	models "yarny/internal/domain/models/story"
	"yarny/internal/domain/repositories"
	storyRepo "yarny/internal/domain/repositories/story"
	"yarny/internal/utils"
)

const defaultPageSize = 100

// DriveFilesRepository implements RemoteFileService on a single table.
// Root-level entries have a NULL parent_id.
type DriveFilesRepository struct {
	pool     repositories.Pool
	tx       repositories.TransactionManager
	tables   *TableNames
	logger   *slog.Logger
	pageSize int
	now      func() time.Time
}

var _ storyRepo.RemoteFileService = (*DriveFilesRepository)(nil)

// NewDriveFilesRepository creates the repository. pageSize <= 0 uses 100.
func NewDriveFilesRepository(config *RepositoryConfig, pageSize int) *DriveFilesRepository {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &DriveFilesRepository{
		pool:     config.Pool,
		tx:       NewTransactionManager(config.Pool, config.Logger),
		tables:   config.Tables,
		logger:   config.Logger,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// EnsureSchema creates the table and its listing index when missing.
func (r *DriveFilesRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id          TEXT PRIMARY KEY,
				parent_id   TEXT REFERENCES %[1]s (id) ON DELETE CASCADE,
				name        TEXT NOT NULL,
				mime_type   TEXT NOT NULL,
				content     TEXT NOT NULL DEFAULT '',
				modified_at TIMESTAMPTZ NOT NULL
			)
		`, r.tables.DriveFiles),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_parent_name_idx ON %[1]s (parent_id, name, id)`, r.tables.DriveFiles),
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", r.tables.DriveFiles, err)
		}
	}
	r.logger.Debug("schema ready", "table", r.tables.DriveFiles)
	return nil
}

// ListFiles returns one page of a folder's children ordered by name. The
// page token is the offset of the next page.
func (r *DriveFilesRepository) ListFiles(ctx context.Context, folderID, pageToken string) (*models.FileList, error) {
	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid page token %q", pageToken)}
		}
		offset = n
	}

	query := fmt.Sprintf(`
		SELECT id, COALESCE(parent_id, ''), name, mime_type, modified_at
		FROM %s
		WHERE parent_id IS NOT DISTINCT FROM $1
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`, r.tables.DriveFiles)

	// One extra row tells whether another page follows.
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, parentArg(folderID), r.pageSize+1, offset)
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}
	defer rows.Close()

	list := &models.FileList{Files: []models.RemoteFile{}}
	for rows.Next() {
		var f models.RemoteFile
		var modified time.Time
		if err := rows.Scan(&f.ID, &f.ParentID, &f.Name, &f.MimeType, &modified); err != nil {
			return nil, fmt.Errorf("scan folder entry: %w", err)
		}
		f.ModifiedTime = models.Timestamp(modified)
		list.Files = append(list.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}

	if len(list.Files) > r.pageSize {
		list.Files = list.Files[:r.pageSize]
		list.NextPageToken = strconv.Itoa(offset + r.pageSize)
	}
	return list, nil
}

// ReadFile returns a document's content. Folders have no content and are
// reported as not found.
func (r *DriveFilesRepository) ReadFile(ctx context.Context, fileID string) (*models.FileContent, error) {
	query := fmt.Sprintf(`
		SELECT content, modified_at
		FROM %s
		WHERE id = $1 AND mime_type <> $2
	`, r.tables.DriveFiles)

	var content string
	var modified time.Time
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, fileID, models.MimeFolder).Scan(&content, &modified)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
		}
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return &models.FileContent{Content: content, ModifiedTime: models.Timestamp(modified)}, nil
}

// WriteFile overwrites req.FileID in place, or creates a document under
// req.ParentFolderID when FileID is empty.
func (r *DriveFilesRepository) WriteFile(ctx context.Context, req *models.WriteFileRequest) (*models.WriteFileResult, error) {
	if req.FileID != "" {
		return r.overwrite(ctx, req)
	}
	if req.FileName == "" {
		return nil, &domain.ValidationError{Message: "file name is required"}
	}
	mime := req.MimeType
	if mime == "" {
		mime = models.MimeText
	}
	id := utils.NewID("file")
	modified, err := r.insert(ctx, id, req.ParentFolderID, req.FileName, mime, req.Content)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("remote file created",
		"file_id", id,
		"parent_id", req.ParentFolderID,
		"name", req.FileName,
	)
	return &models.WriteFileResult{ID: id, ModifiedTime: models.Timestamp(modified)}, nil
}

func (r *DriveFilesRepository) overwrite(ctx context.Context, req *models.WriteFileRequest) (*models.WriteFileResult, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET
			content = $2,
			name = COALESCE(NULLIF($3, ''), name),
			mime_type = COALESCE(NULLIF($4, ''), mime_type),
			modified_at = GREATEST($5, modified_at + INTERVAL '1 millisecond')
		WHERE id = $1
		RETURNING modified_at
	`, r.tables.DriveFiles)

	var modified time.Time
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		req.FileID,
		req.Content,
		req.FileName,
		req.MimeType,
		r.stamp(),
	).Scan(&modified)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", req.FileID)}
		}
		return nil, fmt.Errorf("write file %s: %w", req.FileID, err)
	}
	return &models.WriteFileResult{ID: req.FileID, ModifiedTime: models.Timestamp(modified)}, nil
}

// DeleteFile removes the entry; the foreign key cascades to a folder's
// descendants.
func (r *DriveFilesRepository) DeleteFile(ctx context.Context, fileID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.DriveFiles)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
	}
	return nil
}

func (r *DriveFilesRepository) CreateFolder(ctx context.Context, name, parentFolderID string) (string, error) {
	if name == "" {
		return "", &domain.ValidationError{Message: "folder name is required"}
	}
	id := utils.NewID("folder")
	if _, err := r.insert(ctx, id, parentFolderID, name, models.MimeFolder, ""); err != nil {
		return "", err
	}
	return id, nil
}

func (r *DriveFilesRepository) RenameFile(ctx context.Context, fileID, newName string) error {
	if newName == "" {
		return &domain.ValidationError{Message: "new name is required"}
	}
	query := fmt.Sprintf(`
		UPDATE %s SET name = $2, modified_at = GREATEST($3, modified_at + INTERVAL '1 millisecond')
		WHERE id = $1
	`, r.tables.DriveFiles)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query, fileID, newName, r.stamp())
	if err != nil {
		return fmt.Errorf("rename file %s: %w", fileID, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
	}
	return nil
}

// insert checks the parent and adds the row in one transaction.
func (r *DriveFilesRepository) insert(ctx context.Context, id, parentID, name, mime, content string) (time.Time, error) {
	modified := r.stamp()
	err := r.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := r.checkParent(ctx, parentID); err != nil {
			return err
		}
		query := fmt.Sprintf(`
			INSERT INTO %s (id, parent_id, name, mime_type, content, modified_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, r.tables.DriveFiles)
		_, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id, parentArg(parentID), name, mime, content, modified)
		return translateInsertError(err, id, name, parentID)
	})
	return modified, err
}

// checkParent accepts the root ("") or an existing folder.
func (r *DriveFilesRepository) checkParent(ctx context.Context, parentID string) error {
	if parentID == "" {
		return nil
	}
	query := fmt.Sprintf(`SELECT mime_type FROM %s WHERE id = $1`, r.tables.DriveFiles)

	var mime string
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, parentID).Scan(&mime)
	if err != nil && !IsPgNoRowsError(err) {
		return fmt.Errorf("check folder %s: %w", parentID, err)
	}
	if err != nil || mime != models.MimeFolder {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", parentID)}
	}
	return nil
}

func (r *DriveFilesRepository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func parentArg(parentID string) *string {
	if parentID == "" {
		return nil
	}
	return &parentID
}
