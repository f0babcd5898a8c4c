// Package importer turns a user-granted directory laid out as
//
//	<root>/drafts/chapter-<N>/<NN>-<slug>.md
//	<root>/README.md
//	<root>/.yarnyignore
//	<root>/Characters/, <root>/Worldbuilding/ (or People/, Places/, Things/)
//
// into a normalized payload for the entity store, and writes Yarny's
// project and story metadata caches back into the root.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-git/go-billy/v5/util"

	"yarny/internal/config"
	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
	"yarny/internal/service/converter"
	"yarny/internal/service/ignore"
)

const (
	draftsDir  = "drafts"
	readmeFile = "README.md"
)

var readmeTitle = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// Importer scans local directories. It holds no per-import state and may be
// shared.
type Importer struct {
	converters  *converter.Registry
	logger      *slog.Logger
	now         func() time.Time
	concurrency int
}

// New creates an importer. A nil registry gets the standard converters.
func New(converters *converter.Registry, logger *slog.Logger) *Importer {
	if converters == nil {
		converters = converter.NewRegistry()
	}
	return &Importer{
		converters:  converters,
		logger:      logger,
		now:         time.Now,
		concurrency: config.ImportConcurrency,
	}
}

// Import derives a complete payload from the directory tree. A missing
// drafts folder yields one empty project and story. Filesystem errors other
// than not-found are returned; individual files that cannot be converted are
// skipped with a warning.
func (im *Importer) Import(ctx context.Context, h *localfs.Handle) (*models.Payload, error) {
	ids := deriveIDs(h.Name)
	now := models.Timestamp(im.now())

	project := models.Project{
		ID:          ids.project,
		Name:        h.Name,
		StoryIDs:    []string{ids.story},
		UpdatedAt:   now,
		StorageType: models.StorageLocal,
		LocalPath:   h.Path,
	}
	story := models.Story{
		ID:         ids.story,
		ProjectID:  ids.project,
		Title:      h.Name,
		ChapterIDs: []string{},
		UpdatedAt:  now,
	}

	if _, err := h.FS.Stat(draftsDir); err != nil {
		if localfs.IsNotFound(err) {
			im.logger.Info("no drafts folder, importing empty project",
				"project", h.Name,
			)
			return &models.Payload{Projects: []models.Project{project}, Stories: []models.Story{story}}, nil
		}
		return nil, fmt.Errorf("open %s: %w", draftsDir, err)
	}

	matcher := im.ignoreMatcher(h)

	chapters, snippets, err := im.scanDrafts(ctx, h, ids.story, matcher)
	if err != nil {
		return nil, err
	}
	for i := range chapters {
		chapters[i].UpdatedAt = now
		story.ChapterIDs = append(story.ChapterIDs, chapters[i].ID)
	}

	title, err := storyTitle(h)
	if err != nil {
		return nil, err
	}
	if title != "" {
		story.Title = title
	}

	notes, err := im.loadNotes(ctx, h, ids.story)
	if err != nil {
		return nil, err
	}

	im.writeMetadata(h, &project, &story, chapters)

	im.logger.Info("local project imported",
		"project", h.Name,
		"project_id", project.ID,
		"chapters", len(chapters),
		"snippets", len(snippets),
		"notes", len(notes),
		"ignore_patterns", matcher.Len(),
	)

	return &models.Payload{
		Projects: []models.Project{project},
		Stories:  []models.Story{story},
		Chapters: chapters,
		Snippets: snippets,
		Notes:    notes,
	}, nil
}

// ignoreMatcher never fails the import: a malformed ignore file is logged
// and treated as empty.
func (im *Importer) ignoreMatcher(h *localfs.Handle) *ignore.Matcher {
	m, err := ignore.Parse(h.FS)
	if err != nil {
		im.logger.Warn("ignoring unreadable ignore file",
			"file", ignore.FileName,
			"error", err,
		)
		return ignore.Nothing()
	}
	return m
}

// storyTitle returns the first H1 of README.md, or "" when there is none.
func storyTitle(h *localfs.Handle) (string, error) {
	data, err := util.ReadFile(h.FS, readmeFile)
	if err != nil {
		if localfs.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", readmeFile, err)
	}
	m := readmeTitle.FindSubmatch(data)
	if m == nil {
		return "", nil
	}
	return strings.TrimSpace(string(m[1])), nil
}

type derivedIDs struct {
	project string
	story   string
}

// deriveIDs makes stable ids from the directory name so that re-importing
// the same folder reproduces them.
func deriveIDs(name string) derivedIDs {
	base := Slug(name)
	if base == "" {
		base = "project"
	}
	project := "local_" + base
	return derivedIDs{project: project, story: project + "_story"}
}

// Slug lowercases name and joins its letter and digit runs with "-". It
// returns "" when name has neither.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
