package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/hls-pipeline/internal/media/domain"
	"github.com/romariotrain/hls-pipeline/internal/media/models"
	"github.com/romariotrain/hls-pipeline/internal/media/pipeline"
	"github.com/romariotrain/hls-pipeline/internal/media/repository"
)

func TestUploadVideoHLS_EmptyPath(t *testing.T) {
	q := new(QueueMock)
	svc := New(q, new(PublisherMock), Options{BaseURL: "https://cdn.example.com"})

	got, err := svc.UploadVideoHLS(context.Background(), "")
	require.ErrorIs(t, err, models.ErrInvalidArgument)
	require.Nil(t, got)
	q.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestUploadVideoHLS_ReturnsMasterURL(t *testing.T) {
	q := new(QueueMock)
	svc := New(q, new(PublisherMock), Options{BaseURL: "https://cdn.example.com/", RemotePrefix: "/videos-hls/"})

	q.On("Submit", mock.Anything, "/tmp/uploads/abc.mp4").Return("abc", nil).Once()

	got, err := svc.UploadVideoHLS(context.Background(), "/tmp/uploads/abc.mp4")
	require.NoError(t, err)
	require.Equal(t, &models.Media{
		URL:  "https://cdn.example.com/videos-hls/abc/master.m3u8",
		Type: models.HLS,
	}, got)
	q.AssertExpectations(t)
}

func TestUploadVideoHLS_AdmissionFailure(t *testing.T) {
	q := new(QueueMock)
	svc := New(q, new(PublisherMock), Options{BaseURL: "https://cdn.example.com", RemotePrefix: "videos-hls"})

	admission := &domain.AdmissionError{JobID: "abc", Err: models.ErrConflict}
	q.On("Submit", mock.Anything, "abc.mp4").Return("", admission).Once()

	got, err := svc.UploadVideoHLS(context.Background(), "abc.mp4")
	require.Nil(t, got)

	var target *domain.AdmissionError
	require.ErrorAs(t, err, &target)
	require.ErrorIs(t, err, models.ErrConflict)
}

func TestGetVideoStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("empty id", func(t *testing.T) {
		q := new(QueueMock)
		svc := New(q, new(PublisherMock), Options{})

		_, err := svc.GetVideoStatus(ctx, "")
		require.ErrorIs(t, err, models.ErrInvalidArgument)
		q.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
	})

	t.Run("found", func(t *testing.T) {
		q := new(QueueMock)
		svc := New(q, new(PublisherMock), Options{})

		want := &models.VideoStatus{ID: "abc", Status: models.ProcessingStatus}
		q.On("GetStatus", mock.Anything, "abc").Return(want, nil).Once()

		got, err := svc.GetVideoStatus(ctx, "abc")
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		q := new(QueueMock)
		svc := New(q, new(PublisherMock), Options{})

		q.On("GetStatus", mock.Anything, "nope").Return(nil, models.ErrNotFound).Once()

		_, err := svc.GetVideoStatus(ctx, "nope")
		require.True(t, errors.Is(err, models.ErrNotFound))
	})
}

type encodeStub struct{ root string }

func (e encodeStub) Encode(_ context.Context, source string) (string, error) {
	dir := filepath.Join(e.root, pipeline.JobID(source))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, os.WriteFile(filepath.Join(dir, "master.m3u8"), []byte("#EXTM3U\n"), 0o644)
}

type discardPublisher struct{}

func (discardPublisher) Publish(_ context.Context, remotePath, _, _ string) (string, error) {
	return remotePath, nil
}

func TestUploadVideoHLS_EndToEndWithQueue(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	outRoot := filepath.Join(dir, "out")

	repo := repository.NewMemoryRepository()
	q, err := pipeline.New(pipeline.Config{
		Repo:       repo,
		Transcoder: encodeStub{root: outRoot},
		Publisher:  discardPublisher{},
		OutputRoot: outRoot,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	src := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video"), 0o644))

	svc := New(q, discardPublisher{}, Options{BaseURL: "https://cdn.example.com"})
	media, err := svc.UploadVideoHLS(ctx, src)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/videos-hls/clip/master.m3u8", media.URL)

	q.Wait()

	require.Eventually(t, func() bool {
		st, err := svc.GetVideoStatus(ctx, "clip")
		return err == nil && st.Status == models.SuccessStatus
	}, time.Second, 10*time.Millisecond)

	_, err = os.Stat(src)
	require.True(t, os.IsNotExist(err))
}
