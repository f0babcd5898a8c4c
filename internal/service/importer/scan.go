package importer

import (
	"context"
	"fmt"
	"os"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"

	"yarny/internal/config"
	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
	"yarny/internal/service/converter"
	"yarny/internal/service/ignore"
)

const chapterPrefix = "chapter-"

type chapterDir struct {
	name   string
	number int
	parsed bool
}

// scanDrafts enumerates drafts/chapter-<N> folders and their markdown files.
// Chapters come back in numeric order; each chapter's SnippetIDs follow the
// lexical order of its filenames.
func (im *Importer) scanDrafts(ctx context.Context, h *localfs.Handle, storyID string, matcher *ignore.Matcher) ([]models.Chapter, []models.Snippet, error) {
	dirs, err := chapterDirs(h, matcher)
	if err != nil {
		return nil, nil, err
	}

	chapters := make([]models.Chapter, 0, len(dirs))
	var jobs []snippetJob
	seen := make(map[string]string)
	for i, dir := range dirs {
		number := dir.number
		if !dir.parsed {
			number = i + 1
		}
		chapter := models.Chapter{
			ID:         dir.name,
			StoryID:    storyID,
			Title:      "Chapter " + strconv.Itoa(number),
			Color:      config.ChapterPalette[i%len(config.ChapterPalette)],
			Order:      i,
			SnippetIDs: []string{},
		}

		files, err := snippetFiles(h, dir.name, matcher)
		if err != nil {
			return nil, nil, err
		}
		for _, file := range files {
			rel := path.Join(draftsDir, dir.name, file)
			id := fileID(rel)
			if first, dup := seen[id]; dup {
				var ok bool
				if rel, ok = im.renameDuplicate(h, dir.name, rel, first, seen); !ok {
					continue
				}
				id = fileID(rel)
			}
			seen[id] = rel
			jobs = append(jobs, snippetJob{chapter: i, path: rel})
		}
		chapters = append(chapters, chapter)
	}

	results, err := im.readSnippets(ctx, h, jobs)
	if err != nil {
		return nil, nil, err
	}

	snippets := make([]models.Snippet, 0, len(results))
	for i, res := range results {
		if res == nil {
			continue
		}
		chapter := &chapters[jobs[i].chapter]
		res.StoryID = storyID
		res.ChapterID = chapter.ID
		res.Order = len(chapter.SnippetIDs)
		chapter.SnippetIDs = append(chapter.SnippetIDs, res.ID)
		snippets = append(snippets, *res)
	}
	return chapters, snippets, nil
}

// renameDuplicate moves a snippet file whose name is already used by an
// earlier chapter to <chapter>-<name>.md, so the two keep distinct ids and
// saves land back in the renamed file. When the new name is taken or the
// rename fails, the file is left alone and skipped.
func (im *Importer) renameDuplicate(h *localfs.Handle, chapter, rel, first string, seen map[string]string) (string, bool) {
	target := path.Join(path.Dir(rel), chapter+"-"+path.Base(rel))
	_, taken := seen[fileID(target)]
	if !taken {
		if _, err := h.FS.Stat(target); err == nil || !localfs.IsNotFound(err) {
			taken = true
		}
	}
	if taken {
		im.logger.Warn("skipping snippet with duplicate file name",
			"path", rel,
			"conflicts_with", first,
		)
		return "", false
	}
	if err := h.FS.Rename(rel, target); err != nil {
		im.logger.Warn("skipping snippet with duplicate file name",
			"path", rel,
			"conflicts_with", first,
			"error", err,
		)
		return "", false
	}
	im.logger.Warn("renamed snippet with duplicate file name",
		"from", rel,
		"to", target,
		"conflicts_with", first,
	)
	return target, true
}

// fileID is the snippet id for a markdown file: its name without extension.
func fileID(rel string) string {
	return strings.TrimSuffix(path.Base(rel), path.Ext(rel))
}

// chapterDirs lists drafts/chapter-* directories sorted by their numeric
// suffix. A suffix that is not a number sorts as 0.
func chapterDirs(h *localfs.Handle, matcher *ignore.Matcher) ([]chapterDir, error) {
	entries, err := h.FS.ReadDir(draftsDir)
	if err != nil {
		if localfs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", draftsDir, err)
	}

	var dirs []chapterDir
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, chapterPrefix) {
			continue
		}
		rel := path.Join(draftsDir, name)
		if matcher.Ignored(rel) || matcher.Ignored(rel+"/") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, chapterPrefix))
		dirs = append(dirs, chapterDir{name: name, number: n, parsed: err == nil})
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		return dirs[i].number < dirs[j].number
	})
	return dirs, nil
}

// snippetFiles lists the chapter's .md files in lexical order.
func snippetFiles(h *localfs.Handle, chapter string, matcher *ignore.Matcher) ([]string, error) {
	dir := path.Join(draftsDir, chapter)
	entries, err := h.FS.ReadDir(dir)
	if err != nil {
		if localfs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(path.Ext(name), ".md") {
			continue
		}
		if matcher.Ignored(path.Join(dir, name)) {
			continue
		}
		files = append(files, name)
	}
	slices.Sort(files)
	return files, nil
}

type snippetJob struct {
	chapter int
	path    string
}

// readSnippets reads and converts files with bounded concurrency. The result
// slice is index-aligned with jobs; skipped files leave a nil entry.
func (im *Importer) readSnippets(ctx context.Context, h *localfs.Handle, jobs []snippetJob) ([]*models.Snippet, error) {
	results := make([]*models.Snippet, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			snippet, err := im.readSnippet(ctx, h, job.path)
			if err != nil {
				return err
			}
			results[i] = snippet
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// readSnippet returns nil, nil for a file that vanished or could not be
// converted.
func (im *Importer) readSnippet(ctx context.Context, h *localfs.Handle, rel string) (*models.Snippet, error) {
	info, err := h.FS.Stat(rel)
	if err != nil {
		if localfs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	data, err := util.ReadFile(h.FS, rel)
	if err != nil {
		if localfs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}

	id := fileID(rel)
	title, content, ok := im.convert(ctx, rel, data)
	if !ok {
		return nil, nil
	}
	if title == "" {
		title = id
	}

	im.logger.Debug("snippet imported",
		"path", rel,
		"snippet_id", id,
		"bytes", len(data),
	)
	return &models.Snippet{
		ID:        id,
		Title:     title,
		Content:   content,
		UpdatedAt: models.Timestamp(modTime(info, im.now)),
	}, nil
}

// convert strips front matter and converts the body to plain text. A file
// that cannot be converted is reported and skipped.
func (im *Importer) convert(ctx context.Context, rel string, data []byte) (title, content string, ok bool) {
	fm, body, err := converter.SplitFrontMatter(data)
	if err != nil {
		im.logger.Warn("malformed front matter, header ignored",
			"path", rel,
			"error", err,
		)
	}
	content, err = im.converters.Convert(ctx, rel, body)
	if err != nil {
		im.logger.Warn("skipping file that failed to convert",
			"path", rel,
			"error", err,
		)
		return "", "", false
	}
	return fm.Title, content, true
}

func modTime(info os.FileInfo, now func() time.Time) time.Time {
	if t := info.ModTime(); !t.IsZero() {
		return t
	}
	return now()
}
