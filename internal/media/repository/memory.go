package repository

import (
	"context"
	"sync"
	"time"

	"github.com/romariotrain/hls-pipeline/internal/media/domain"
	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	data  map[string]*models.VideoStatus
	clock func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		data:  make(map[string]*models.VideoStatus),
		clock: time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, id string, status models.Status) error {
	if id == "" || status == "" {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[id]; exists {
		return models.ErrConflict
	}

	now := r.clock()
	r.data[id] = &models.VideoStatus{
		ID:        id,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.VideoStatus, error) {
	if id == "" {
		return nil, models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if err := domain.ValidateTransition(v.Status, status); err != nil {
		return nil, err
	}

	v.Status = status
	v.UpdatedAt = r.clock()

	cp := *v
	return &cp, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.VideoStatus, error) {
	if id == "" {
		return nil, models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	// Копия, чтобы вызывающий код не мутировал хранимую запись
	cp := *v
	return &cp, nil
}

func (r *MemoryRepository) FailOrphaned(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	now := r.clock()
	for _, v := range r.data {
		if v.Status.Terminal() {
			continue
		}
		v.Status = models.FailedStatus
		v.UpdatedAt = now
		n++
	}
	return n, nil
}
