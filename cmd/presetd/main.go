// Command presetd runs the development preset device server.
//
// Environment:
//
//	PRESETD_ADDR  listen address (default :8080)
//	PRESETD_DB    SQLite database path; presets are kept in memory when empty
//	PRESETD_SEED  JSON file of {"<id>": preset} loaded at startup, existing ids are kept
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/server"
	"github.com/asaidimu/go-presets/sqlite"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("presetd stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := env("PRESETD_ADDR", ":8080")
	dbPath := env("PRESETD_DB", "")
	seedPath := env("PRESETD_SEED", "")

	repo, closeRepo, err := openRepository(ctx, dbPath, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	if seedPath != "" {
		if err := seed(ctx, repo, seedPath); err != nil {
			return err
		}
		logger.Info("Seed presets loaded", zap.String("file", seedPath))
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewHandler(repo, server.Options{Logger: logger}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", addr), zap.String("db", dbPath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepository(ctx context.Context, dbPath string, logger *zap.Logger) (server.Repository, func(), error) {
	if dbPath == "" {
		return server.NewMemoryRepository(), func() {}, nil
	}
	repo, err := sqlite.Open(ctx, dbPath, logger.Named("sqlite"), nil)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}, nil
}

func seed(ctx context.Context, repo server.Repository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var presets map[string]preset.RawPreset
	if err := json.Unmarshal(data, &presets); err != nil {
		return fmt.Errorf("decode seed file %q: %w", path, err)
	}

	if r, ok := repo.(*sqlite.Repository); ok {
		return r.Import(ctx, presets, true)
	}
	for id, raw := range presets {
		if err := repo.Create(ctx, id, raw); err != nil && !errors.Is(err, server.ErrExists) {
			return err
		}
	}
	return nil
}
