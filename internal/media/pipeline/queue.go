package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/romariotrain/hls-pipeline/internal/media/domain"
	"github.com/romariotrain/hls-pipeline/internal/media/models"
	"github.com/romariotrain/hls-pipeline/internal/media/repository"
)

// Transcoder turns a source video into a directory of HLS renditions plus a
// master manifest and returns that directory.
type Transcoder interface {
	Encode(ctx context.Context, sourcePath string) (string, error)
}

// Publisher uploads one local file to remote storage and returns where it
// can be fetched from.
type Publisher interface {
	Publish(ctx context.Context, remotePath, localPath, contentType string) (string, error)
}

// Config содержит зависимости очереди
type Config struct {
	Repo       repository.StatusRepository
	Transcoder Transcoder
	Publisher  Publisher
	// OutputRoot is the local directory the transcoder writes job folders into.
	OutputRoot string
	// RemotePrefix replaces OutputRoot in remote object keys.
	RemotePrefix string
	// PublishConcurrency caps uploads in flight per job. Zero means
	// DefaultPublishConcurrency.
	PublishConcurrency int
	Logger             zerolog.Logger
}

const DefaultPublishConcurrency = 8

// Queue is a single-worker FIFO of transcoding jobs. It is safe for
// concurrent use.
type Queue struct {
	repo         repository.StatusRepository
	transcoder   Transcoder
	publisher    Publisher
	outputRoot   string
	remotePrefix string
	logger       zerolog.Logger

	publishConcurrency int

	// Job work is never canceled once dispatched.
	baseCtx context.Context

	mu    sync.Mutex
	items []string
	busy  bool
	wg    sync.WaitGroup
}

func New(cfg Config) (*Queue, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("status repository is required")
	}
	if cfg.Transcoder == nil {
		return nil, fmt.Errorf("transcoder is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.OutputRoot == "" {
		return nil, fmt.Errorf("output root is required")
	}
	if cfg.RemotePrefix == "" {
		cfg.RemotePrefix = DefaultRemotePrefix
	}
	if cfg.PublishConcurrency < 0 {
		return nil, fmt.Errorf("publish concurrency cannot be negative")
	}
	if cfg.PublishConcurrency == 0 {
		cfg.PublishConcurrency = DefaultPublishConcurrency
	}

	return &Queue{
		repo:         cfg.Repo,
		transcoder:   cfg.Transcoder,
		publisher:    cfg.Publisher,
		outputRoot:   cfg.OutputRoot,
		remotePrefix: cfg.RemotePrefix,
		logger:       cfg.Logger.With().Str("component", "video_queue").Logger(),
		baseCtx:      context.Background(),

		publishConcurrency: cfg.PublishConcurrency,
	}, nil
}

// Submit admits a stored source file and returns its job id without waiting
// for transcoding. The pending record is written before the job is queued;
// if that write fails the job is dropped and an *domain.AdmissionError is
// returned.
func (q *Queue) Submit(ctx context.Context, sourcePath string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: source %q: %v", models.ErrInvalidArgument, sourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: source %q is not a regular file", models.ErrInvalidArgument, sourcePath)
	}

	id := JobID(sourcePath)
	if id == "" {
		return "", fmt.Errorf("%w: cannot derive job id from %q", models.ErrInvalidArgument, sourcePath)
	}

	if err := q.repo.Create(ctx, id, models.PendingStatus); err != nil {
		return "", &domain.AdmissionError{JobID: id, Err: err}
	}

	q.mu.Lock()
	q.items = append(q.items, sourcePath)
	start := !q.busy
	if start {
		q.busy = true
		q.wg.Add(1)
	}
	pending := len(q.items)
	q.mu.Unlock()

	q.logger.Info().
		Str("job_id", id).
		Str("source", sourcePath).
		Int("queued", pending).
		Msg("video job admitted")

	if start {
		go q.drain()
	}
	return id, nil
}

// GetStatus reads the job record from the status store. It never looks at
// the in-memory queue.
func (q *Queue) GetStatus(ctx context.Context, id string) (*models.VideoStatus, error) {
	if id == "" {
		return nil, models.ErrInvalidArgument
	}
	return q.repo.GetByID(ctx, id)
}

// Len returns the number of jobs waiting behind the active one.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Busy reports whether the worker is currently draining jobs.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// Wait blocks until the worker has drained the queue and gone idle.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// drain processes jobs until the queue is empty. The busy flag is cleared in
// the same critical section that observes the empty queue, so a concurrent
// Submit either sees busy and leaves the job to this loop, or sees idle and
// starts a new one.
func (q *Queue) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.busy = false
			q.mu.Unlock()
			q.logger.Debug().Msg("video queue drained")
			return
		}
		source := q.items[0]
		q.items[0] = ""
		q.items = q.items[1:]
		q.mu.Unlock()

		q.process(q.baseCtx, source)
	}
}
