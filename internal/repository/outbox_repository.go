package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jerryawoyele/markezon-backend/internal/models"
)

// OutboxRepository отвечает за очередь отложенных побочных эффектов.
type OutboxRepository struct {
	db *sqlx.DB
}

// NewOutboxRepository создаёт экземпляр репозитория.
func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue кладёт запись в очередь.
func (r *OutboxRepository) Enqueue(ctx context.Context, kind string, payload interface{}) (*models.OutboxEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("outbox repository: marshal payload %w", err)
	}

	var entry models.OutboxEntry
	err = r.db.GetContext(ctx, &entry, `
		INSERT INTO outbox (kind, payload, status, next_retry_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING *
	`, kind, raw, models.OutboxStatusPending)
	if err != nil {
		return nil, fmt.Errorf("outbox repository: enqueue %w", err)
	}
	return &entry, nil
}

// ClaimDue забирает пачку созревших записей, атомарно инкрементируя attempts.
// SKIP LOCKED позволяет нескольким воркерам разбирать очередь без пересечений;
// упавшая обработка доезжает следующим циклом после Reschedule.
func (r *OutboxRepository) ClaimDue(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	var entries []models.OutboxEntry
	err := r.db.SelectContext(ctx, &entries, `
		UPDATE outbox SET attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox
			WHERE status = $1 AND next_retry_at <= NOW()
			ORDER BY next_retry_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`, models.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox repository: claim due %w", err)
	}
	return entries, nil
}

// MarkDone помечает запись обработанной.
func (r *OutboxRepository) MarkDone(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, models.OutboxStatusDone)
	if err != nil {
		return fmt.Errorf("outbox repository: mark done %w", err)
	}
	return nil
}

// Reschedule откладывает повтор с фиксацией ошибки; при исчерпании попыток
// запись переводится в failed и требует ручного вмешательства.
func (r *OutboxRepository) Reschedule(ctx context.Context, id uuid.UUID, attempts, maxAttempts int, lastError string, retryIn time.Duration) error {
	status := models.OutboxStatusPending
	if attempts >= maxAttempts {
		status = models.OutboxStatusFailed
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox
		SET status = $2, attempts = $3, last_error = $4, next_retry_at = NOW() + $5::interval, updated_at = NOW()
		WHERE id = $1
	`, id, status, attempts, lastError, retryIn.String())
	if err != nil {
		return fmt.Errorf("outbox repository: reschedule %w", err)
	}
	return nil
}

// CountPending возвращает размер очереди в статусе pending.
func (r *OutboxRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM outbox WHERE status = $1
	`, models.OutboxStatusPending); err != nil {
		return 0, fmt.Errorf("outbox repository: count pending %w", err)
	}
	return count, nil
}
