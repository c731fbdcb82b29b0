// Package storage selects and opens the configured video status store.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/romariotrain/hls-pipeline/internal/config"
	"github.com/romariotrain/hls-pipeline/internal/media/repository"
	"github.com/romariotrain/hls-pipeline/internal/storage/mongo"
	"github.com/romariotrain/hls-pipeline/internal/storage/postgres"
)

// Store is a status repository that can also sweep orphaned jobs.
type Store interface {
	repository.StatusRepository
	repository.Reconciler
}

// Open connects to the store named by cfg.StatusStore and prepares its
// schema. The returned close func is never nil.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (Store, func(), error) {
	logger = logger.With().Str("store", cfg.StatusStore).Logger()

	switch cfg.StatusStore {
	case config.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("db connect: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, func() {}, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info().Msg("status store ready")
		return postgres.NewStatusRepo(db, postgres.NewOutboxRepo(db)), func() { db.Close() }, nil

	case config.StoreMongo:
		client, err := mongo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, func() {}, fmt.Errorf("mongo connect: %w", err)
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		repo := mongo.NewStatusRepo(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, func() {}, fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("status store ready")
		return repo, closeFn, nil

	case config.StoreMemory:
		logger.Warn().Msg("using in-memory status store, records are lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	return nil, func() {}, fmt.Errorf("unknown status store %q", cfg.StatusStore)
}
