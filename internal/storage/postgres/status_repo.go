package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/romariotrain/hls-pipeline/internal/media/domain"
	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

// StatusRepo stores video job statuses and writes a VideoStatusChanged
// event to the outbox in the same transaction as every status change.
type StatusRepo struct {
	db     *sqlx.DB
	outbox *OutboxRepo
}

func NewStatusRepo(db *sqlx.DB, outbox *OutboxRepo) *StatusRepo {
	return &StatusRepo{db: db, outbox: outbox}
}

func (r *StatusRepo) Create(ctx context.Context, id string, status models.Status) error {
	if id == "" || status == "" {
		return models.ErrInvalidArgument
	}

	const q = `
		INSERT INTO video_status (id, status, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, q, id, status); err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("video status create: %w", err)
	}

	if err := r.outbox.Add(ctx, tx, models.NewVideoStatusChanged(id, "", status)); err != nil {
		return fmt.Errorf("add outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *StatusRepo) GetByID(ctx context.Context, id string) (*models.VideoStatus, error) {
	const q = `
		SELECT id, status, created_at, updated_at
		FROM video_status
		WHERE id = $1
	`

	var v models.VideoStatus
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("video status get by id: %w", err)
	}
	return &v, nil
}

func (r *StatusRepo) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.VideoStatus, error) {
	const (
		lockQ = `
			SELECT id, status, created_at, updated_at
			FROM video_status
			WHERE id = $1
			FOR UPDATE
		`
		updateQ = `
			UPDATE video_status
			SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING id, status, created_at, updated_at
		`
	)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // откатится, если не дошли до Commit

	var current models.VideoStatus
	if err := tx.GetContext(ctx, &current, lockQ, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("video status lock: %w", err)
	}

	if err := domain.ValidateTransition(current.Status, status); err != nil {
		return nil, err
	}
	if current.Status == status {
		return &current, nil
	}

	var updated models.VideoStatus
	if err := tx.GetContext(ctx, &updated, updateQ, id, status); err != nil {
		return nil, fmt.Errorf("video status update: %w", err)
	}

	if err := r.outbox.Add(ctx, tx, models.NewVideoStatusChanged(id, current.Status, status)); err != nil {
		return nil, fmt.Errorf("add outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// FailOrphaned marks every pending or processing record failed. Run it before
// the queue accepts work: after a restart none of those jobs is running.
func (r *StatusRepo) FailOrphaned(ctx context.Context) (int64, error) {
	const q = `
		UPDATE video_status v
		SET status = $1, updated_at = NOW()
		FROM (
			SELECT id, status
			FROM video_status
			WHERE status IN ($2, $3)
			FOR UPDATE
		) old
		WHERE v.id = old.id
		RETURNING v.id, old.status
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var rows []struct {
		ID     string        `db:"id"`
		Status models.Status `db:"status"`
	}
	if err := tx.SelectContext(ctx, &rows, q, models.FailedStatus, models.PendingStatus, models.ProcessingStatus); err != nil {
		return 0, fmt.Errorf("fail orphaned: %w", err)
	}

	for _, row := range rows {
		if err := r.outbox.Add(ctx, tx, models.NewVideoStatusChanged(row.ID, row.Status, models.FailedStatus)); err != nil {
			return 0, fmt.Errorf("add outbox: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return int64(len(rows)), nil
}
