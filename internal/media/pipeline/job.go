package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/romariotrain/hls-pipeline/internal/media/domain"
	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

// process runs one job to a terminal status. It never returns an error: every
// failure is logged and recorded as models.FailedStatus.
func (q *Queue) process(ctx context.Context, source string) {
	id := JobID(source)
	logger := q.logger.With().
		Str("job_id", id).
		Str("source", source).
		Logger()
	started := time.Now()

	outDir := filepath.Join(q.outputRoot, id)
	status := models.FailedStatus

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Msg("video job panicked")
			status = models.FailedStatus
		}
		q.cleanup(logger, id, source, outDir)
		q.finish(ctx, logger, id, status, started)
	}()

	if _, err := q.repo.UpdateStatus(ctx, id, models.ProcessingStatus); err != nil {
		logger.Error().
			Err(err).
			Msg("failed to mark video job processing")
		return
	}
	logger.Info().Msg("video job processing")

	dir, err := q.transcoder.Encode(ctx, source)
	if dir != "" {
		outDir = dir
	}
	if err != nil {
		jobErr := &domain.TranscodeError{JobID: id, Err: err}
		logger.Error().
			Err(jobErr).
			Msg("video transcode failed")
		return
	}

	published, err := q.publishOutputs(ctx, logger, id, outDir)
	if err != nil {
		logger.Error().
			Err(err).
			Int("published", published).
			Msg("video publish failed")
		return
	}

	logger.Info().
		Int("files", published).
		Msg("video outputs published")
	status = models.SuccessStatus
}

// publishOutputs uploads every file under outDir concurrently and waits for
// all of them. The first failure is returned as a *domain.PublishError.
func (q *Queue) publishOutputs(ctx context.Context, logger zerolog.Logger, id, outDir string) (int, error) {
	files, err := listFiles(outDir)
	if err != nil {
		return 0, &domain.PublishError{JobID: id, Err: err}
	}
	if len(files) == 0 {
		return 0, &domain.PublishError{JobID: id, Err: fmt.Errorf("no output files in %q", outDir)}
	}

	keys := make([]string, len(files))
	for i, file := range files {
		key, err := RemoteKey(q.outputRoot, q.remotePrefix, file)
		if err != nil {
			return 0, &domain.PublishError{JobID: id, Err: err}
		}
		keys[i] = key
	}

	var published atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.publishConcurrency)
	for i, file := range files {
		key := keys[i]
		g.Go(func() (err error) {
			// errgroup goroutines are outside the recover in process.
			defer func() {
				if r := recover(); r != nil {
					err = &domain.PublishError{JobID: id, RemotePath: key, Err: fmt.Errorf("panic: %v", r)}
				}
			}()

			location, err := q.publisher.Publish(gctx, key, file, ContentType(file))
			if err != nil {
				return &domain.PublishError{JobID: id, RemotePath: key, Err: err}
			}
			published.Add(1)
			logger.Debug().
				Str("remote_path", key).
				Str("location", location).
				Msg("output file published")
			return nil
		})
	}

	err = g.Wait()
	return int(published.Load()), err
}

// cleanup removes the source and the job output directory. Errors are logged
// and never change the job status.
func (q *Queue) cleanup(logger zerolog.Logger, id, source, outDir string) {
	if err := os.Remove(source); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().
			Err(&domain.CleanupError{JobID: id, Path: source, Err: err}).
			Msg("failed to remove video source")
	}

	if filepath.Clean(outDir) == filepath.Clean(q.outputRoot) {
		logger.Warn().
			Str("path", outDir).
			Msg("refusing to remove output root")
		return
	}
	if err := os.RemoveAll(outDir); err != nil {
		logger.Warn().
			Err(&domain.CleanupError{JobID: id, Path: outDir, Err: err}).
			Msg("failed to remove video output directory")
	}
}

// finish records the terminal status. A failed write is logged only: the
// worker must move on to the next job either way.
func (q *Queue) finish(ctx context.Context, logger zerolog.Logger, id string, status models.Status, started time.Time) {
	if _, err := q.repo.UpdateStatus(ctx, id, status); err != nil {
		logger.Error().
			Err(err).
			Str("status", string(status)).
			Msg("failed to record video job status")
		return
	}

	logger.Info().
		Str("status", string(status)).
		Dur("elapsed", time.Since(started)).
		Msg("video job finished")
}

func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list output files: %w", err)
	}
	return files, nil
}
