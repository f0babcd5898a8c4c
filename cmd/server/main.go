package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"yarny/internal/config"
	storyRepo "yarny/internal/domain/repositories/story"
	"yarny/internal/handler"
	"yarny/internal/localfs"
	"yarny/internal/middleware"
	"yarny/internal/repository/memory"
	"yarny/internal/repository/postgres"
	"yarny/internal/repository/redis"
	"yarny/internal/service/conflict"
	"yarny/internal/service/converter"
	"yarny/internal/service/importer"
	"yarny/internal/service/mirror"
	"yarny/internal/service/remote"
	"yarny/internal/service/story"
	"yarny/internal/store"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging, optionally teeing into a rotated file
	var logFile *os.File
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logFile = f
	}
	var logger *slog.Logger
	if logFile != nil {
		logger = config.NewLogger(cfg, logFile)
	} else {
		logger = config.NewLogger(cfg, nil)
	}
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx := context.Background()

	// Remote story-of-record files
	var files storyRepo.RemoteFileService
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		driveFiles := postgres.NewDriveFilesRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}, 0)
		if err := driveFiles.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare schema: %v", err)
		}
		files = driveFiles
		logger.Info("database connected")
	} else {
		files = memory.NewRemoteFiles(0)
		logger.Warn("DATABASE_URL not set, remote files are kept in memory")
	}

	// Persisted directory grants
	var localHandles, mirrorHandles storyRepo.HandleStore
	if cfg.RedisURL != "" {
		l, err := redis.NewHandleStore(cfg.RedisURL, "yarny:handle:local")
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer l.Close()
		m, err := redis.NewHandleStore(cfg.RedisURL, "yarny:handle:mirror")
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer m.Close()
		localHandles, mirrorHandles = l, m
	} else {
		localHandles, mirrorHandles = memory.NewHandleStore(), memory.NewHandleStore()
	}

	// Services
	st := store.New()
	orchestrator := mirror.NewOrchestrator(logger)
	storyService := story.NewService(
		st,
		remote.New(files, cfg.RemoteMaxListPages, logger),
		orchestrator,
		conflict.New(files, logger),
		importer.New(converter.NewRegistry(), logger),
		logger,
	)

	restoreGrants(ctx, cfg, storyService, orchestrator, localHandles, mirrorHandles, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, &handler.Handlers{
		State:  handler.NewStateHandler(st, logger),
		Story:  handler.NewStoryHandler(storyService, logger),
		Local:  handler.NewLocalHandler(storyService, localfs.OpenOS, localHandles, logger),
		Mirror: handler.NewMirrorHandler(orchestrator, st, localfs.OpenOS, mirrorHandles, logger),
		Debug:  cfg.Debug,
	})
	if cfg.Debug {
		logger.Warn("Debug route registered: GET /debug/api/outline")
	}

	// Build middleware chain
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
