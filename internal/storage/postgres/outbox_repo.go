package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

// OutboxRepo is the transactional outbox of video status changes.
type OutboxRepo struct {
	db *sqlx.DB
}

type OutboxRecord struct {
	ID          int64           `db:"id"`
	EventID     string          `db:"event_id"`
	EventType   string          `db:"event_type"`
	AggregateID string          `db:"aggregate_id"`
	Payload     json.RawMessage `db:"payload"`
	OccurredAt  time.Time       `db:"occurred_at"`
}

// StatusChange decodes the payload of a VideoStatusChanged record.
func (r OutboxRecord) StatusChange() (models.VideoStatusChangedPayload, error) {
	var p models.VideoStatusChangedPayload
	if r.EventType != models.EventVideoStatusChanged {
		return p, fmt.Errorf("outbox record %d: unexpected event type %q", r.ID, r.EventType)
	}
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return p, fmt.Errorf("outbox record %d: decode payload: %w", r.ID, err)
	}
	return p, nil
}

func NewOutboxRepo(db *sqlx.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// Add writes the event inside the caller's status transaction, so the event
// exists exactly when the status change committed.
func (r *OutboxRepo) Add(ctx context.Context, tx *sqlx.Tx, event models.DomainEvent) error {
	const q = `
		INSERT INTO outbox (event_id, event_type, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s for video %s: %w", event.EventType(), event.AggregateID(), err)
	}

	if _, err := tx.ExecContext(ctx, q,
		event.EventID(),
		event.EventType(),
		event.AggregateID(),
		payload,
		event.OccurredAt(),
	); err != nil {
		return fmt.Errorf("insert outbox event for video %s: %w", event.AggregateID(), err)
	}
	return nil
}

// GetPending returns unrelayed events oldest first.
func (r *OutboxRepo) GetPending(ctx context.Context, limit int) ([]OutboxRecord, error) {
	const q = `
		SELECT id, event_id, event_type, aggregate_id, payload, occurred_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY id ASC
		LIMIT $1
	`

	var records []OutboxRecord
	if err := r.db.SelectContext(ctx, &records, q, limit); err != nil {
		return nil, fmt.Errorf("get pending outbox events: %w", err)
	}
	return records, nil
}

// MarkProcessed stamps every listed record in one statement and returns how
// many were still unprocessed.
func (r *OutboxRepo) MarkProcessed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q, args, err := sqlx.In(`
		UPDATE outbox
		SET processed_at = NOW()
		WHERE id IN (?) AND processed_at IS NULL
	`, ids)
	if err != nil {
		return 0, fmt.Errorf("build mark processed: %w", err)
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("mark outbox events processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark outbox events processed: %w", err)
	}
	return n, nil
}
