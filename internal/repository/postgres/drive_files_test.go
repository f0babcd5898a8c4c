package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yarny/internal/domain"
	models "yarny/internal/domain/models/story"
)

var fixedStamp = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newMockRepo(t *testing.T, pageSize int) (*DriveFilesRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewDriveFilesRepository(&RepositoryConfig{
		Pool:   mock,
		Tables: NewTableNames("test_"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, pageSize)
	repo.now = func() time.Time { return fixedStamp }
	return repo, mock
}

func TestDriveFiles_ReadFile(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT content, modified_at\s+FROM test_drive_files`).
					WithArgs("file_1", models.MimeFolder).
					WillReturnRows(pgxmock.NewRows([]string{"content", "modified_at"}).AddRow("hello", fixedStamp))
			},
		},
		{
			name: "missing",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT content, modified_at`).
					WithArgs("file_1", models.MimeFolder).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t, 0)
			tt.setup(mock)

			got, err := repo.ReadFile(context.Background(), "file_1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "hello", got.Content)
				assert.Equal(t, models.Timestamp(fixedStamp), got.ModifiedTime)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDriveFiles_ListFilesPaging(t *testing.T) {
	repo, mock := newMockRepo(t, 2)
	cols := []string{"id", "parent_id", "name", "mime_type", "modified_at"}

	mock.ExpectQuery(`SELECT id, COALESCE\(parent_id, ''\)`).
		WithArgs(pgxmock.AnyArg(), 3, 0).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("a", "folder_1", "a.txt", models.MimeText, fixedStamp).
			AddRow("b", "folder_1", "b.txt", models.MimeText, fixedStamp).
			AddRow("c", "folder_1", "c.txt", models.MimeText, fixedStamp))
	mock.ExpectQuery(`SELECT id, COALESCE\(parent_id, ''\)`).
		WithArgs(pgxmock.AnyArg(), 3, 2).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("c", "folder_1", "c.txt", models.MimeText, fixedStamp))

	ctx := context.Background()
	first, err := repo.ListFiles(ctx, "folder_1", "")
	require.NoError(t, err)
	require.Len(t, first.Files, 2)
	assert.Equal(t, "2", first.NextPageToken)
	assert.Equal(t, "folder_1", first.Files[0].ParentID)

	second, err := repo.ListFiles(ctx, "folder_1", first.NextPageToken)
	require.NoError(t, err)
	require.Len(t, second.Files, 1)
	assert.Empty(t, second.NextPageToken)

	_, err = repo.ListFiles(ctx, "folder_1", "next")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriveFiles_CreateInsideFolder(t *testing.T) {
	repo, mock := newMockRepo(t, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT mime_type FROM test_drive_files`).
		WithArgs("folder_1").
		WillReturnRows(pgxmock.NewRows([]string{"mime_type"}).AddRow(models.MimeFolder))
	mock.ExpectExec(`INSERT INTO test_drive_files`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "data.json", models.MimeJSON, "{}", fixedStamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	res, err := repo.WriteFile(context.Background(), &models.WriteFileRequest{
		FileName:       "data.json",
		Content:        "{}",
		ParentFolderID: "folder_1",
		MimeType:       models.MimeJSON,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, models.Timestamp(fixedStamp), res.ModifiedTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriveFiles_CreateUnderMissingFolderRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT mime_type FROM test_drive_files`).
		WithArgs("folder_x").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.CreateFolder(context.Background(), "Chapter 1", "folder_x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriveFiles_Overwrite(t *testing.T) {
	repo, mock := newMockRepo(t, 0)
	later := fixedStamp.Add(time.Millisecond)

	mock.ExpectQuery(`UPDATE test_drive_files SET`).
		WithArgs("file_1", "new body", "", "", fixedStamp).
		WillReturnRows(pgxmock.NewRows([]string{"modified_at"}).AddRow(later))
	mock.ExpectQuery(`UPDATE test_drive_files SET`).
		WithArgs("file_2", "x", "", "", fixedStamp).
		WillReturnError(pgx.ErrNoRows)

	ctx := context.Background()
	res, err := repo.WriteFile(ctx, &models.WriteFileRequest{FileID: "file_1", Content: "new body"})
	require.NoError(t, err)
	assert.Equal(t, "file_1", res.ID)
	assert.Equal(t, models.Timestamp(later), res.ModifiedTime)

	_, err = repo.WriteFile(ctx, &models.WriteFileRequest{FileID: "file_2", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriveFiles_DeleteAndRename(t *testing.T) {
	repo, mock := newMockRepo(t, 0)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM test_drive_files`).
		WithArgs("folder_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(`DELETE FROM test_drive_files`).
		WithArgs("folder_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`UPDATE test_drive_files SET name`).
		WithArgs("file_1", "Renamed", fixedStamp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.DeleteFile(ctx, "folder_1"))
	assert.ErrorIs(t, repo.DeleteFile(ctx, "folder_1"), domain.ErrNotFound)
	require.NoError(t, repo.RenameFile(ctx, "file_1", "Renamed"))
	assert.ErrorIs(t, repo.RenameFile(ctx, "file_1", ""), domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriveFiles_EnsureSchema(t *testing.T) {
	repo, mock := newMockRepo(t, 0)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS test_drive_files`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS test_drive_files_parent_name_idx`).
		WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateInsertError(t *testing.T) {
	assert.NoError(t, translateInsertError(nil, "f", "a.txt", ""))

	err := translateInsertError(&pgconn.PgError{Code: "23505"}, "f", "a.txt", "")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "f", conflict.ResourceID)

	err = translateInsertError(&pgconn.PgError{Code: "23503"}, "f", "a.txt", "folder_9")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = translateInsertError(pgx.ErrTxClosed, "f", "a.txt", "")
	assert.ErrorIs(t, err, pgx.ErrTxClosed)
}
