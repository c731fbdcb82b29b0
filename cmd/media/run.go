package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/hls-pipeline/internal/app"
	"github.com/romariotrain/hls-pipeline/internal/config"
	"github.com/romariotrain/hls-pipeline/internal/media/httpapi"
	"github.com/romariotrain/hls-pipeline/internal/media/pipeline"
	"github.com/romariotrain/hls-pipeline/internal/media/publisher"
	"github.com/romariotrain/hls-pipeline/internal/media/service"
	"github.com/romariotrain/hls-pipeline/internal/media/transcoder"
	"github.com/romariotrain/hls-pipeline/internal/storage"
)

func runner(cfg config.Config, logger zerolog.Logger) app.Runner {
	return func(ctx context.Context) error {
		return run(ctx, cfg, logger)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	if err := cfg.ValidatePublishing(); err != nil {
		return err
	}

	store, closeStore, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Nothing is queued in memory yet, so every non-terminal record is an orphan.
	// The queue lives in this process: one media instance per status store.
	// A second instance sharing the store would have its running jobs failed here.
	n, err := store.FailOrphaned(ctx)
	if err != nil {
		return fmt.Errorf("fail orphaned jobs: %w", err)
	}
	if n > 0 {
		logger.Warn().Int64("jobs", n).Msg("marked orphaned video jobs failed")
	}

	enc, err := transcoder.NewFFmpeg(transcoder.Config{
		FFmpegPath:     cfg.FFmpegPath,
		FFprobePath:    cfg.FFprobePath,
		OutputRoot:     cfg.OutputDir,
		SegmentSeconds: cfg.SegmentSeconds,
		Timeout:        cfg.EncodeTimeout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("transcoder: %w", err)
	}

	s3cfg := publisher.S3Config{
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Endpoint:        cfg.S3.Endpoint,
		PublicBaseURL:   cfg.S3.PublicBaseURL,
		Logger:          logger,
	}
	pub, err := publisher.NewS3(ctx, s3cfg)
	if err != nil {
		return fmt.Errorf("s3 publisher: %w", err)
	}

	queue, err := pipeline.New(pipeline.Config{
		Repo:               store,
		Transcoder:         enc,
		Publisher:          pub,
		OutputRoot:         cfg.OutputDir,
		RemotePrefix:       cfg.RemotePrefix,
		PublishConcurrency: cfg.PublishConcurrency,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}

	svc := service.New(queue, pub, service.Options{
		BaseURL:      publisher.BaseURL(s3cfg),
		RemotePrefix: cfg.RemotePrefix,
		ImageDir:     cfg.ImageDir,
	})
	h := httpapi.New(svc, httpapi.Options{
		UploadDir: cfg.UploadDir,
		MaxBytes:  cfg.MaxUploadBytes,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		// Admitted jobs are finished, not abandoned.
		logger.Info().Int("queued", queue.Len()).Bool("busy", queue.Busy()).Msg("waiting for video queue")
		queue.Wait()
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	}
}
