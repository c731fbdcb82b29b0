package repository

import (
	"context"

	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

// StatusRepository is the narrow view of the job status store the pipeline
// writes through. Implementations return models.ErrNotFound for unknown ids.
type StatusRepository interface {
	Create(ctx context.Context, id string, status models.Status) error
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.VideoStatus, error)
	GetByID(ctx context.Context, id string) (*models.VideoStatus, error)
}

// Reconciler fails records left pending or processing by a previous process.
type Reconciler interface {
	FailOrphaned(ctx context.Context) (int64, error)
}
