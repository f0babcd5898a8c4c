package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"yarny/internal/config"
	"yarny/internal/localfs"
	"yarny/internal/repository/memory"
	"yarny/internal/service/conflict"
	"yarny/internal/service/converter"
	"yarny/internal/service/importer"
	"yarny/internal/service/mirror"
	"yarny/internal/service/outline"
	"yarny/internal/service/remote"
	"yarny/internal/service/story"
	"yarny/internal/store"
)

func main() {
	// Parse command-line flags
	dir := flag.String("dir", "", "Novel directory to scan (prompted for when empty)")
	load := flag.Bool("load", false, "Prefer the yarny metadata caches over a full scan")
	mirrorDir := flag.String("mirror", "", "Also write a backup mirror into this directory")
	verbose := flag.Bool("v", false, "Log to stderr")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx := context.Background()
	picker := localfs.PickerFunc(func(ctx context.Context) (string, error) {
		if *dir != "" {
			return *dir, nil
		}
		return prompt(os.Stdin, os.Stderr)
	})
	h, err := localfs.Request(ctx, picker)
	if err != nil {
		log.Fatalf("Failed to open directory: %v", err)
	}
	if h == nil {
		fmt.Fprintln(os.Stderr, "no directory chosen")
		return
	}

	files := memory.NewRemoteFiles(0)
	st := store.New()
	orchestrator := mirror.NewOrchestrator(logger)
	svc := story.NewService(
		st,
		remote.New(files, cfg.RemoteMaxListPages, logger),
		orchestrator,
		conflict.New(files, logger),
		importer.New(converter.NewRegistry(), logger),
		logger,
	)

	run := svc.ImportLocal
	if *load {
		run = svc.LoadLocal
	}
	snapshot, err := run(ctx, h)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", h.Path, err)
	}
	fmt.Print(outline.Render(snapshot))

	if *mirrorDir != "" {
		target, err := localfs.OpenOS(*mirrorDir)
		if err != nil {
			log.Fatalf("Failed to open mirror directory: %v", err)
		}
		orchestrator.Enable(target)
		res := orchestrator.RefreshAll(ctx, snapshot)
		if !res.Success {
			log.Fatalf("%s", res.Message)
		}
		fmt.Fprintln(os.Stderr, res.Message)
	}
}

// prompt reads a directory from in. An empty answer cancels.
func prompt(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Novel directory: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", localfs.ErrPickerCanceled
	}
	return line, nil
}
