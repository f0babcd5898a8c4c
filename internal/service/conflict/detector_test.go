package conflict

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "yarny/internal/domain/models/story"
	"yarny/internal/repository/memory"
)

type fixture struct {
	files    *memory.RemoteFiles
	detector *Detector
	snippet  *models.Snippet
	saved    string
}

// newFixture saves "local text" remotely and records that save.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	files := memory.NewRemoteFiles(0)
	files.SetClock(func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) })
	d := New(files, slog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := files.WriteFile(context.Background(), &models.WriteFileRequest{FileName: "snippet", Content: "local text"})
	require.NoError(t, err)
	d.RecordSave("snp_1", res.ModifiedTime)

	return &fixture{
		files:    files,
		detector: d,
		snippet:  &models.Snippet{ID: "snp_1", Content: "local text", DriveFileID: res.ID, UpdatedAt: res.ModifiedTime},
		saved:    res.ModifiedTime,
	}
}

func (f *fixture) remoteEdit(t *testing.T, content string) string {
	t.Helper()
	res, err := f.files.WriteFile(context.Background(), &models.WriteFileRequest{FileID: f.snippet.DriveFileID, Content: content})
	require.NoError(t, err)
	return res.ModifiedTime
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("no remote change", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.detector.Check(ctx, f.snippet)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("remote newer with different content", func(t *testing.T) {
		f := newFixture(t)
		stamp := f.remoteEdit(t, "remote text")

		c, err := f.detector.Check(ctx, f.snippet)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, models.Conflict{
			SnippetID:         "snp_1",
			LocalModifiedTime: f.saved,
			DriveModifiedTime: stamp,
			LocalContent:      "local text",
			DriveContent:      "remote text",
		}, *c)
	})

	t.Run("remote newer with same content", func(t *testing.T) {
		f := newFixture(t)
		f.remoteEdit(t, "local text")
		c, err := f.detector.Check(ctx, f.snippet)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("our own later save is not a conflict", func(t *testing.T) {
		f := newFixture(t)
		stamp := f.remoteEdit(t, "edited here")
		f.detector.RecordSave("snp_1", stamp)
		c, err := f.detector.Check(ctx, f.snippet)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("falls back to snippet stamp", func(t *testing.T) {
		f := newFixture(t)
		f.detector.Forget("snp_1")
		f.remoteEdit(t, "remote text")
		c, err := f.detector.Check(ctx, f.snippet)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, f.saved, c.LocalModifiedTime)
	})

	t.Run("snippet without remote document", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.detector.Check(ctx, &models.Snippet{ID: "snp_2", Content: "x"})
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("unreadable local stamp", func(t *testing.T) {
		f := newFixture(t)
		f.detector.RecordSave("snp_1", "yesterday")
		f.remoteEdit(t, "remote text")
		c, err := f.detector.Check(ctx, f.snippet)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("missing remote file", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.detector.Check(ctx, &models.Snippet{ID: "snp_3", DriveFileID: "gone"})
		assert.Error(t, err)
	})
}

func TestKeepLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remoteStamp := f.remoteEdit(t, "remote text")

	resolved, err := f.detector.KeepLocal(ctx, f.snippet)
	require.NoError(t, err)
	assert.Equal(t, "local text", resolved.Content)
	assert.Greater(t, resolved.UpdatedAt, remoteStamp)
	assert.Equal(t, resolved.UpdatedAt, f.detector.LastSaved("snp_1"))

	got, err := f.files.ReadFile(ctx, f.snippet.DriveFileID)
	require.NoError(t, err)
	assert.Equal(t, "local text", got.Content)

	c, err := f.detector.Check(ctx, resolved)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestAcceptRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remoteEdit(t, "remote text")

	c, err := f.detector.Check(ctx, f.snippet)
	require.NoError(t, err)
	require.NotNil(t, c)

	resolved := f.detector.AcceptRemote(f.snippet, c)
	assert.Equal(t, "remote text", resolved.Content)
	assert.Equal(t, c.DriveModifiedTime, resolved.UpdatedAt)
	assert.Equal(t, "local text", f.snippet.Content, "input is not modified")

	again, err := f.detector.Check(ctx, resolved)
	require.NoError(t, err)
	assert.Nil(t, again)
}
