package storage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/hls-pipeline/internal/config"
	"github.com/romariotrain/hls-pipeline/internal/media/models"
	"github.com/romariotrain/hls-pipeline/internal/media/repository"
)

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	store, closeFn, err := Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	defer closeFn()

	require.IsType(t, &repository.MemoryRepository{}, store)
	require.NoError(t, store.Create(ctx, "a", models.PendingStatus))

	n, err := store.FailOrphaned(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestOpen_UnknownStore(t *testing.T) {
	cfg := config.Default()
	cfg.StatusStore = "redis"

	store, closeFn, err := Open(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	require.Nil(t, store)
	require.NotNil(t, closeFn)
}
