package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/romariotrain/hls-pipeline/internal/media/imaging"
	"github.com/romariotrain/hls-pipeline/internal/media/models"
	"github.com/romariotrain/hls-pipeline/internal/media/pipeline"
)

const (
	videoPrefix = "videos"
	imagePrefix = "images"
)

// Queue is the part of *pipeline.Queue the service depends on.
type Queue interface {
	Submit(ctx context.Context, sourcePath string) (string, error)
	GetStatus(ctx context.Context, id string) (*models.VideoStatus, error)
}

type Options struct {
	// BaseURL is where published objects are served from.
	BaseURL string
	// RemotePrefix must match the queue's.
	RemotePrefix string
	// ImageDir holds JPEG conversions until they are published.
	ImageDir string
}

type Service struct {
	queue        Queue
	publisher    pipeline.Publisher
	baseURL      string
	remotePrefix string
	imageDir     string
}

func New(queue Queue, publisher pipeline.Publisher, opts Options) *Service {
	if opts.RemotePrefix == "" {
		opts.RemotePrefix = pipeline.DefaultRemotePrefix
	}
	if opts.ImageDir == "" {
		opts.ImageDir = os.TempDir()
	}
	return &Service{
		queue:        queue,
		publisher:    publisher,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		remotePrefix: strings.Trim(opts.RemotePrefix, "/"),
		imageDir:     opts.ImageDir,
	}
}

// UploadVideoHLS admits an already stored source file for HLS transcoding and
// returns where its master playlist will be published. It does not wait for
// the job.
func (s *Service) UploadVideoHLS(ctx context.Context, sourcePath string) (*models.Media, error) {
	if sourcePath == "" {
		return nil, models.ErrInvalidArgument
	}

	id, err := s.queue.Submit(ctx, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("submit video: %w", err)
	}

	return &models.Media{
		URL:  s.MasterURL(id),
		Type: models.HLS,
	}, nil
}

// UploadVideo publishes the stored file as is under videos/. The local file
// is removed whatever the outcome.
func (s *Service) UploadVideo(ctx context.Context, sourcePath string) (*models.Media, error) {
	if sourcePath == "" {
		return nil, models.ErrInvalidArgument
	}
	defer removeQuietly(sourcePath)

	key := videoPrefix + "/" + filepath.Base(sourcePath)
	location, err := s.publisher.Publish(ctx, key, sourcePath, pipeline.ContentType(sourcePath))
	if err != nil {
		return nil, fmt.Errorf("publish video: %w", err)
	}

	return &models.Media{URL: location, Type: models.Video}, nil
}

// UploadImage re-encodes the stored file to JPEG and publishes it under
// images/<name>.jpg. Undecodable input is models.ErrInvalidArgument.
func (s *Service) UploadImage(ctx context.Context, sourcePath string) (*models.Media, error) {
	if sourcePath == "" {
		return nil, models.ErrInvalidArgument
	}
	defer removeQuietly(sourcePath)

	name := pipeline.JobID(sourcePath) + ".jpg"
	if err := os.MkdirAll(s.imageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	converted := filepath.Join(s.imageDir, name)
	if err := imaging.ToJPEG(sourcePath, converted, imaging.DefaultQuality); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	defer removeQuietly(converted)

	location, err := s.publisher.Publish(ctx, imagePrefix+"/"+name, converted, "image/jpeg")
	if err != nil {
		return nil, fmt.Errorf("publish image: %w", err)
	}

	return &models.Media{URL: location, Type: models.Image}, nil
}

// UploadImages runs UploadImage for every path concurrently. Results keep the
// input order; the first error is returned after all uploads finish.
func (s *Service) UploadImages(ctx context.Context, sourcePaths []string) ([]*models.Media, error) {
	if len(sourcePaths) == 0 {
		return nil, models.ErrInvalidArgument
	}

	result := make([]*models.Media, len(sourcePaths))
	var g errgroup.Group
	for i, p := range sourcePaths {
		g.Go(func() error {
			m, err := s.UploadImage(ctx, p)
			if err != nil {
				return err
			}
			result[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetVideoStatus passes through models.ErrNotFound for unknown ids so the
// transport layer can map it.
func (s *Service) GetVideoStatus(ctx context.Context, id string) (*models.VideoStatus, error) {
	if id == "" {
		return nil, models.ErrInvalidArgument
	}
	return s.queue.GetStatus(ctx, id)
}

func (s *Service) MasterURL(id string) string {
	return fmt.Sprintf("%s/%s/%s/master.m3u8", s.baseURL, s.remotePrefix, id)
}

func removeQuietly(path string) {
	_ = os.Remove(path)
}
