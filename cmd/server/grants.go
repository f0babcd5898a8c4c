package main

import (
	"context"
	"log/slog"
	"time"

	"yarny/internal/config"
	storyRepo "yarny/internal/domain/repositories/story"
	"yarny/internal/localfs"
	"yarny/internal/service/mirror"
	"yarny/internal/service/story"
)

// restoreGrants rebinds the directories granted before the last restart.
// A directory that has gone away is forgotten rather than failing start-up.
func restoreGrants(
	ctx context.Context,
	cfg *config.Config,
	storyService *story.Service,
	orchestrator *mirror.Orchestrator,
	localHandles, mirrorHandles storyRepo.HandleStore,
	logger *slog.Logger,
) {
	if dir := reopen(ctx, localHandles, logger); dir != nil {
		if _, err := storyService.LoadLocal(ctx, dir); err != nil {
			logger.Warn("failed to reload local project", "path", dir.Path, "error", err)
		} else {
			logger.Info("local project restored", "path", dir.Path)
		}
	}

	if cfg.MirrorDir != "" {
		dir, err := localfs.OpenOS(cfg.MirrorDir)
		if err != nil {
			logger.Warn("MIRROR_DIR unusable, mirroring stays off", "path", cfg.MirrorDir, "error", err)
			return
		}
		orchestrator.Enable(dir)
		record := &storyRepo.HandleRecord{Path: dir.Path, Name: dir.Name, MirrorEnabled: true, GrantedAt: time.Now().UTC()}
		if err := mirrorHandles.Save(ctx, record); err != nil {
			logger.Warn("failed to persist mirror handle", "path", dir.Path, "error", err)
		}
		return
	}

	if dir := reopen(ctx, mirrorHandles, logger); dir != nil {
		orchestrator.Enable(dir)
	}
}

func reopen(ctx context.Context, handles storyRepo.HandleStore, logger *slog.Logger) *localfs.Handle {
	record, err := handles.Load(ctx)
	if err != nil {
		logger.Warn("failed to load saved handle", "error", err)
		return nil
	}
	if record == nil {
		return nil
	}
	dir, err := localfs.OpenOS(record.Path)
	if err != nil {
		logger.Warn("saved directory is no longer available", "path", record.Path, "error", err)
		if err := handles.Clear(ctx); err != nil {
			logger.Warn("failed to clear saved handle", "error", err)
		}
		return nil
	}
	return dir
}
