package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
)

var (
	ErrEscrowNotFound  = errors.New("escrow payment not found")
	ErrDisputeNotFound = errors.New("dispute not found")
	// ErrOpenDisputeExists — по платежу уже есть незакрытый спор.
	ErrOpenDisputeExists = errors.New("open dispute already exists")
	// ErrLedgerInvariant — запись нарушила бы баланс леджера.
	ErrLedgerInvariant = errors.New("ledger invariant violated")
)

const pqUniqueViolation = "23505"

type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error) {
	return common.GetByID[models.EscrowPayment](ctx, r.db, "escrow_payments", id, ErrEscrowNotFound)
}

func (r *EscrowRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error) {
	return common.GetByField[models.EscrowPayment](ctx, r.db, "escrow_payments", "booking_id", bookingID, ErrEscrowNotFound)
}

// ListEntries возвращает записи леджера по бронированию в порядке добавления.
func (r *EscrowRepository) ListEntries(ctx context.Context, bookingID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries WHERE booking_id = $1 ORDER BY created_at, id
	`, bookingID)
	return entries, err
}

// BalanceFor сворачивает леджер бронирования в текущий баланс.
func (r *EscrowRepository) BalanceFor(ctx context.Context, bookingID uuid.UUID) (*models.EscrowBalance, error) {
	entries, err := r.ListEntries(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: balance for %w", err)
	}
	balance := models.FoldLedger(bookingID, entries)
	return &balance, nil
}

// recordEntry добавляет запись в леджер внутри транзакции владеющего
// перехода; вне транзакции перехода записи не создаются.
func recordEntry(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID, entryType string, amount float64) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := tx.GetContext(ctx, &entry, `
		INSERT INTO ledger_entries (booking_id, type, amount) VALUES ($1, $2, $3) RETURNING *
	`, bookingID, entryType, amount)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: record %s %w", entryType, err)
	}
	return &entry, nil
}

func balanceForTx(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID) (*models.EscrowBalance, error) {
	var entries []models.LedgerEntry
	err := tx.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries WHERE booking_id = $1 ORDER BY created_at, id
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: fold ledger %w", err)
	}
	balance := models.FoldLedger(bookingID, entries)
	return &balance, nil
}

// MarkRefunded завершает отложенный возврат: escrow refund_pending → refunded
// плюс запись refund в леджер. Повторный вызов по уже возвращённому платежу —
// no-op, чтобы воркер мог безопасно ретраить.
func (r *EscrowRepository) MarkRefunded(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var escrow models.EscrowPayment
	err = tx.GetContext(ctx, &escrow, `
		SELECT * FROM escrow_payments WHERE booking_id = $1 FOR UPDATE
	`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, err
	}

	if escrow.Status == models.EscrowStatusRefunded {
		return &escrow, tx.Commit()
	}
	if escrow.Status != models.EscrowStatusRefundPending {
		return nil, fmt.Errorf("%w: mark refunded from %s", common.ErrStateConflict, escrow.Status)
	}

	now := time.Now()
	err = tx.GetContext(ctx, &escrow, `
		UPDATE escrow_payments SET status = $2, settled_at = $3 WHERE id = $1 RETURNING *
	`, escrow.ID, models.EscrowStatusRefunded, now)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: mark refunded %w", err)
	}

	if _, err := recordEntry(ctx, tx, bookingID, models.LedgerEntryRefund, escrow.Amount); err != nil {
		return nil, err
	}

	balance, err := balanceForTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if !balance.Valid() {
		return nil, fmt.Errorf("%w: held %f after refund", ErrLedgerInvariant, balance.Held)
	}

	return &escrow, tx.Commit()
}

// OpenDispute создаёт спор по платежу и помечает escrow как disputed.
// Статус бронирования намеренно не трогаем: история переходов сохраняется,
// спор виден через платёж. Второй незакрытый спор по тому же платежу
// отклоняется (частичный уникальный индекс — страховка от гонок).
func (r *EscrowRepository) OpenDispute(ctx context.Context, escrowPaymentID, raisedBy uuid.UUID, reason string, details *string) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var escrow models.EscrowPayment
	err = tx.GetContext(ctx, &escrow, `
		SELECT * FROM escrow_payments WHERE id = $1 FOR UPDATE
	`, escrowPaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, err
	}

	if escrow.Status == models.EscrowStatusDisputed {
		return nil, ErrOpenDisputeExists
	}
	// Спор допустим, пока средства удерживаются либо уже выплачены.
	if !models.CanTransitionEscrow(escrow.Status, models.EscrowStatusDisputed) {
		return nil, fmt.Errorf("%w: dispute from escrow status %s", common.ErrStateConflict, escrow.Status)
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM disputes WHERE escrow_payment_id = $1 AND status IN ($2, $3)
		)
	`, escrowPaymentID, models.DisputeStatusOpen, models.DisputeStatusUnderReview)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: open dispute check %w", err)
	}
	if exists {
		return nil, ErrOpenDisputeExists
	}

	var dispute models.Dispute
	err = tx.GetContext(ctx, &dispute, `
		INSERT INTO disputes (escrow_payment_id, booking_id, raised_by, reason, details, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, escrowPaymentID, escrow.BookingID, raisedBy, reason, details, models.DisputeStatusOpen)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, ErrOpenDisputeExists
		}
		return nil, fmt.Errorf("escrow repository: open dispute %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE escrow_payments SET status = $2 WHERE id = $1
	`, escrowPaymentID, models.EscrowStatusDisputed)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: open dispute freeze %w", err)
	}

	return &dispute, tx.Commit()
}

// ResolveDispute закрывает спор и проводит средства согласно исходу.
// Если средства к моменту решения уже выплачены исполнителю, возврат клиенту
// оформляется парой hold+refund — повторный захват суммы и её возврат,
// чтобы свёртка леджера сходилась.
func (r *EscrowRepository) ResolveDispute(ctx context.Context, disputeID, resolvedBy uuid.UUID, outcome string) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var dispute models.Dispute
	err = tx.GetContext(ctx, &dispute, `SELECT * FROM disputes WHERE id = $1 FOR UPDATE`, disputeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	if dispute.Status == models.DisputeStatusResolved {
		return nil, fmt.Errorf("%w: dispute already resolved", common.ErrStateConflict)
	}

	var escrow models.EscrowPayment
	err = tx.GetContext(ctx, &escrow, `
		SELECT * FROM escrow_payments WHERE id = $1 FOR UPDATE
	`, dispute.EscrowPaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, err
	}

	balance, err := balanceForTx(ctx, tx, escrow.BookingID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch outcome {
	case models.DisputeOutcomeReleaseToProvider:
		if !models.CanTransitionEscrow(escrow.Status, models.EscrowStatusReleased) {
			return nil, fmt.Errorf("%w: release from escrow status %s", common.ErrStateConflict, escrow.Status)
		}
		if balance.Held > 0 {
			if _, err := recordEntry(ctx, tx, escrow.BookingID, models.LedgerEntryRelease, balance.Held); err != nil {
				return nil, err
			}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE escrow_payments SET status = $2, settled_at = $3 WHERE id = $1
		`, escrow.ID, models.EscrowStatusReleased, now)
	case models.DisputeOutcomeRefundToCustomer:
		if !models.CanTransitionEscrow(escrow.Status, models.EscrowStatusRefunded) {
			return nil, fmt.Errorf("%w: refund from escrow status %s", common.ErrStateConflict, escrow.Status)
		}
		if balance.Held > 0 {
			if _, err := recordEntry(ctx, tx, escrow.BookingID, models.LedgerEntryRefund, balance.Held); err != nil {
				return nil, err
			}
		} else {
			// Средства уже выплачены: повторно захватываем сумму у исполнителя
			// и возвращаем её клиенту.
			if _, err := recordEntry(ctx, tx, escrow.BookingID, models.LedgerEntryHold, escrow.Amount); err != nil {
				return nil, err
			}
			if _, err := recordEntry(ctx, tx, escrow.BookingID, models.LedgerEntryRefund, escrow.Amount); err != nil {
				return nil, err
			}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE escrow_payments SET status = $2, settled_at = $3 WHERE id = $1
		`, escrow.ID, models.EscrowStatusRefunded, now)
	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", common.ErrInvalidInput, outcome)
	}
	if err != nil {
		return nil, fmt.Errorf("escrow repository: resolve dispute escrow %w", err)
	}

	final, err := balanceForTx(ctx, tx, escrow.BookingID)
	if err != nil {
		return nil, err
	}
	if !final.Valid() {
		return nil, fmt.Errorf("%w: held %f after resolution", ErrLedgerInvariant, final.Held)
	}

	err = tx.GetContext(ctx, &dispute, `
		UPDATE disputes SET status = $2, outcome = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $1 RETURNING *
	`, disputeID, models.DisputeStatusResolved, outcome, resolvedBy, now)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: resolve dispute update %w", err)
	}

	return &dispute, tx.Commit()
}

// SetDisputeUnderReview переводит спор open → under_review.
func (r *EscrowRepository) SetDisputeUnderReview(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.GetContext(ctx, &dispute, `
		UPDATE disputes SET status = $2 WHERE id = $1 AND status = $3 RETURNING *
	`, disputeID, models.DisputeStatusUnderReview, models.DisputeStatusOpen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: dispute is not open", common.ErrStateConflict)
		}
		return nil, fmt.Errorf("escrow repository: set under review %w", err)
	}
	return &dispute, nil
}

func (r *EscrowRepository) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

// ListDisputes возвращает споры, опционально фильтруя по статусу.
func (r *EscrowRepository) ListDisputes(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	if status != "" {
		err := r.db.SelectContext(ctx, &disputes, `
			SELECT * FROM disputes WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`, status, limit, offset)
		return disputes, err
	}
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return disputes, err
}

// ListDisputesByUser возвращает споры, поданные пользователем.
func (r *EscrowRepository) ListDisputesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE raised_by = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return disputes, err
}
