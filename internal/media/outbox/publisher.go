package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/hls-pipeline/internal/storage/postgres"
)

type Store interface {
	GetPending(ctx context.Context, limit int) ([]postgres.OutboxRecord, error)
	MarkProcessed(ctx context.Context, ids ...int64) (int64, error)
}

type Producer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Publisher relays VideoStatusChanged events from the outbox table to Kafka.
// Delivery is at-least-once: a record published but not marked is sent again
// on the next tick.
type Publisher struct {
	store     Store
	producer  Producer
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

type PublisherConfig struct {
	Store     Store
	Producer  Producer
	Interval  time.Duration
	BatchSize int
	Logger    zerolog.Logger
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if cfg.Producer == nil {
		return nil, fmt.Errorf("kafka producer is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got: %v", cfg.Interval)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got: %d", cfg.BatchSize)
	}

	return &Publisher{
		store:     cfg.Store,
		producer:  cfg.Producer,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger.With().Str("component", "outbox_publisher").Logger(),
	}, nil
}

// Start polls the outbox until ctx is canceled.
func (p *Publisher) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().
		Dur("interval", p.interval).
		Int("batch_size", p.batchSize).
		Msg("outbox publisher started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().
				Err(ctx.Err()).
				Msg("outbox publisher stopped")
			return ctx.Err()

		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				// Не падаем, попробуем на следующем тике
				p.logger.Error().
					Err(err).
					Msg("failed to publish batch")
			}
		}
	}
}

// BatchResult counts what one PublishBatch call did.
type BatchResult struct {
	Total     int
	Published int
	Failed    int
	Marked    int
}

// PublishBatch relays one batch of pending records.
func (p *Publisher) PublishBatch(ctx context.Context) (BatchResult, error) {
	var res BatchResult

	records, err := p.store.GetPending(ctx, p.batchSize)
	if err != nil {
		return res, fmt.Errorf("get pending records: %w", err)
	}
	res.Total = len(records)
	if len(records) == 0 {
		p.logger.Debug().Msg("no pending events to publish")
		return res, nil
	}

	published := make([]int64, 0, len(records))
	for _, record := range records {
		eventLogger := p.logger.With().
			Str("event_id", record.EventID).
			Str("event_type", record.EventType).
			Str("video_id", record.AggregateID).
			Int64("outbox_id", record.ID).
			Logger()

		if change, err := record.StatusChange(); err != nil {
			// Unknown payloads are still relayed, consumers decide what to drop.
			eventLogger.Warn().Err(err).Msg("outbox payload is not a status change")
		} else {
			eventLogger = eventLogger.With().
				Str("from", string(change.From)).
				Str("to", string(change.To)).
				Logger()
		}

		if err := p.producer.Publish(ctx, record.EventID, record.Payload); err != nil {
			eventLogger.Error().
				Err(err).
				Msg("failed to publish event to kafka")
			res.Failed++
			continue
		}
		eventLogger.Debug().Msg("event published")
		res.Published++
		published = append(published, record.ID)
	}

	if len(published) > 0 {
		marked, err := p.store.MarkProcessed(ctx, published...)
		if err != nil {
			// Опубликовано, но не помечено: уйдёт повторно, консьюмер идемпотентен
			p.logger.Warn().
				Err(err).
				Int("published", len(published)).
				Msg("failed to mark events as processed")
		} else {
			res.Marked = int(marked)
		}
	}

	p.logger.Info().
		Int("total", res.Total).
		Int("published", res.Published).
		Int("failed", res.Failed).
		Int("marked", res.Marked).
		Msg("batch processing completed")

	return res, nil
}
