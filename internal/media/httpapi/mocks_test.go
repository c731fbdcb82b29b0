package httpapi

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) UploadVideoHLS(ctx context.Context, sourcePath string) (*models.Media, error) {
	args := m.Called(ctx, sourcePath)
	if v := args.Get(0); v != nil {
		return v.(*models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ServiceMock) GetVideoStatus(ctx context.Context, id string) (*models.VideoStatus, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.VideoStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ServiceMock) UploadVideo(ctx context.Context, sourcePath string) (*models.Media, error) {
	args := m.Called(ctx, sourcePath)
	if v := args.Get(0); v != nil {
		return v.(*models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ServiceMock) UploadImage(ctx context.Context, sourcePath string) (*models.Media, error) {
	args := m.Called(ctx, sourcePath)
	if v := args.Get(0); v != nil {
		return v.(*models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ServiceMock) UploadImages(ctx context.Context, sourcePaths []string) ([]*models.Media, error) {
	args := m.Called(ctx, sourcePaths)
	if v := args.Get(0); v != nil {
		return v.([]*models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}
