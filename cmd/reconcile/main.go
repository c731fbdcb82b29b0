package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/romariotrain/hls-pipeline/internal/app"
	"github.com/romariotrain/hls-pipeline/internal/config"
	"github.com/romariotrain/hls-pipeline/internal/logging"
	"github.com/romariotrain/hls-pipeline/internal/storage"
)

// reconcile marks every pending or processing record failed. Run it only while
// no media service is serving the same store.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.New("reconcile", cfg.LogLevel, cfg.LogFormat)
	code := app.Run("reconcile", logger, func(ctx context.Context) error {
		return run(ctx, cfg, logger)
	})
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	store, closeStore, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := store.FailOrphaned(ctx)
	if err != nil {
		return fmt.Errorf("fail orphaned jobs: %w", err)
	}

	logger.Info().Int64("jobs", n).Msg("orphaned video jobs marked failed")
	return nil
}
