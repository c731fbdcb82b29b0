package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

type QueueMock struct {
	mock.Mock
}

func (m *QueueMock) Submit(ctx context.Context, sourcePath string) (string, error) {
	args := m.Called(ctx, sourcePath)
	return args.String(0), args.Error(1)
}

func (m *QueueMock) GetStatus(ctx context.Context, id string) (*models.VideoStatus, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.VideoStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, remotePath, localPath, contentType string) (string, error) {
	args := m.Called(ctx, remotePath, localPath, contentType)
	return args.String(0), args.Error(1)
}
