package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrServiceStarted — отмена невозможна, исполнитель уже приступил к работе.
	ErrServiceStarted = errors.New("service already started")
)

type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create создаёт бронирование в статусе pending.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	var created models.Booking
	err := r.db.GetContext(ctx, &created, `
		INSERT INTO bookings (service_id, customer_id, provider_id, scheduled_time, location, notes, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, booking.ServiceID, booking.CustomerID, booking.ProviderID, booking.ScheduledTime,
		booking.Location, booking.Notes, booking.Amount, models.BookingStatusPending)
	if err != nil {
		return nil, fmt.Errorf("booking repository: create %w", err)
	}
	return &created, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return common.GetByID[models.Booking](ctx, r.db, "bookings", id, ErrBookingNotFound)
}

// ListByCustomer возвращает бронирования клиента.
func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	return bookings, err
}

// ListByProvider возвращает бронирования исполнителя.
func (r *BookingRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings WHERE provider_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	return bookings, err
}

// lockBooking блокирует строку бронирования до конца транзакции.
func lockBooking(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := tx.GetContext(ctx, &booking, `SELECT * FROM bookings WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// Confirm переводит бронирование pending → confirmed, создаёт escrow-платёж
// с захватом средств и записывает hold в леджер. Одна транзакция: предусловие
// статуса перепроверяется после блокировки строки, конкурентный переход
// возвращает ErrStateConflict.
func (r *BookingRepository) Confirm(ctx context.Context, bookingID uuid.UUID) (*models.Booking, *models.EscrowPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	booking, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if !models.CanTransitionBooking(booking.Status, models.BookingStatusConfirmed) {
		return nil, nil, fmt.Errorf("%w: confirm from %s", common.ErrStateConflict, booking.Status)
	}

	err = tx.GetContext(ctx, booking, `
		UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, bookingID, models.BookingStatusConfirmed)
	if err != nil {
		return nil, nil, fmt.Errorf("booking repository: confirm update %w", err)
	}

	var escrow models.EscrowPayment
	err = tx.GetContext(ctx, &escrow, `
		INSERT INTO escrow_payments (booking_id, customer_id, provider_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, bookingID, booking.CustomerID, booking.ProviderID, booking.Amount, models.EscrowStatusCompleted)
	if err != nil {
		return nil, nil, fmt.Errorf("booking repository: confirm create escrow %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (booking_id, type, amount) VALUES ($1, $2, $3)
	`, bookingID, models.LedgerEntryHold, booking.Amount)
	if err != nil {
		return nil, nil, fmt.Errorf("booking repository: confirm ledger hold %w", err)
	}

	return booking, &escrow, tx.Commit()
}

// StartService помечает, что исполнитель приступил к работе.
// Статус бронирования не меняется, но отмена после этого запрещена.
func (r *BookingRepository) StartService(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	booking, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, fmt.Errorf("%w: start service from %s", common.ErrStateConflict, booking.Status)
	}

	err = tx.GetContext(ctx, booking, `
		UPDATE bookings SET service_started = TRUE, updated_at = NOW() WHERE id = $1 RETURNING *
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking repository: start service %w", err)
	}

	return booking, tx.Commit()
}

// MarkServiceDone переводит бронирование confirmed → pending_completion.
// Движений средств нет.
func (r *BookingRepository) MarkServiceDone(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	booking, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionBooking(booking.Status, models.BookingStatusPendingCompletion) {
		return nil, fmt.Errorf("%w: mark done from %s", common.ErrStateConflict, booking.Status)
	}

	err = tx.GetContext(ctx, booking, `
		UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, bookingID, models.BookingStatusPendingCompletion)
	if err != nil {
		return nil, fmt.Errorf("booking repository: mark done %w", err)
	}

	return booking, tx.Commit()
}

// ConfirmCompletion переводит бронирование pending_completion → completed,
// освобождает средства исполнителю и записывает release в леджер.
// Повторный вызов на завершённом бронировании возвращает ErrStateConflict
// без дублирующей записи в леджере.
func (r *BookingRepository) ConfirmCompletion(ctx context.Context, bookingID uuid.UUID) (*models.Booking, *models.EscrowPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	booking, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if !models.CanTransitionBooking(booking.Status, models.BookingStatusCompleted) {
		return nil, nil, fmt.Errorf("%w: confirm completion from %s", common.ErrStateConflict, booking.Status)
	}

	var escrow models.EscrowPayment
	err = tx.GetContext(ctx, &escrow, `
		SELECT * FROM escrow_payments WHERE booking_id = $1 FOR UPDATE
	`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrEscrowNotFound
		}
		return nil, nil, err
	}
	if escrow.Status != models.EscrowStatusCompleted {
		return nil, nil, fmt.Errorf("%w: release from escrow status %s", common.ErrStateConflict, escrow.Status)
	}

	now := time.Now()
	err = tx.GetContext(ctx, booking, `
		UPDATE bookings SET status = $2, completed_at = $3, updated_at = NOW() WHERE id = $1 RETURNING *
	`, bookingID, models.BookingStatusCompleted, now)
	if err != nil {
		return nil, nil, fmt.Errorf("booking repository: confirm completion update %w", err)
	}

	err = tx.GetContext(ctx, &escrow, `
		UPDATE escrow_payments SET status = $2, settled_at = $3 WHERE id = $1 RETURNING *
	`, escrow.ID, models.EscrowStatusReleased, now)
	if err != nil {
		return nil, nil, fmt.Errorf("booking repository: confirm completion escrow %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (booking_id, type, amount) VALUES ($1, $2, $3)
	`, bookingID, models.LedgerEntryRelease, escrow.Amount)
	if err != nil {
		return nil, nil, fmt.Errorf("booking repository: confirm completion ledger %w", err)
	}

	if err := checkLedgerInvariant(ctx, tx, bookingID); err != nil {
		return nil, nil, err
	}

	return booking, &escrow, tx.Commit()
}

// Cancel переводит бронирование pending|confirmed → cancelled. Если по
// бронированию удерживаются средства, escrow помечается refund_pending и в ту
// же транзакцию пишется outbox-запись на возврат: отмена фиксируется даже при
// недоступном платёжном шлюзе, возврат доезжает повторами воркера.
// Возвращает признак того, что возврат поставлен в очередь.
func (r *BookingRepository) Cancel(ctx context.Context, bookingID uuid.UUID) (*models.Booking, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	booking, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, false, err
	}
	if !models.CanTransitionBooking(booking.Status, models.BookingStatusCancelled) {
		return nil, false, fmt.Errorf("%w: cancel from %s", common.ErrStateConflict, booking.Status)
	}
	if booking.ServiceStarted {
		return nil, false, ErrServiceStarted
	}

	err = tx.GetContext(ctx, booking, `
		UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, bookingID, models.BookingStatusCancelled)
	if err != nil {
		return nil, false, fmt.Errorf("booking repository: cancel update %w", err)
	}

	var escrow models.EscrowPayment
	err = tx.GetContext(ctx, &escrow, `
		SELECT * FROM escrow_payments WHERE booking_id = $1 FOR UPDATE
	`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Бронирование не подтверждалось, средств нет — возвращать нечего.
			return booking, false, tx.Commit()
		}
		return nil, false, err
	}
	if !models.CanTransitionEscrow(escrow.Status, models.EscrowStatusRefundPending) {
		return nil, false, fmt.Errorf("%w: refund from escrow status %s", common.ErrStateConflict, escrow.Status)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE escrow_payments SET status = $2 WHERE id = $1
	`, escrow.ID, models.EscrowStatusRefundPending)
	if err != nil {
		return nil, false, fmt.Errorf("booking repository: cancel escrow %w", err)
	}

	payload, err := json.Marshal(models.RefundPayload{BookingID: bookingID, Amount: escrow.Amount})
	if err != nil {
		return nil, false, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (kind, payload, status, next_retry_at)
		VALUES ($1, $2, $3, NOW())
	`, models.OutboxKindRefund, payload, models.OutboxStatusPending)
	if err != nil {
		return nil, false, fmt.Errorf("booking repository: cancel enqueue refund %w", err)
	}

	return booking, true, tx.Commit()
}

// checkLedgerInvariant перепроверяет перед коммитом, что свёртка леджера
// не ушла в минус: sum(holds) >= sum(releases) + sum(refunds).
func checkLedgerInvariant(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID) error {
	var held float64
	err := tx.GetContext(ctx, &held, `
		SELECT COALESCE(SUM(CASE WHEN type = 'hold' THEN amount ELSE -amount END), 0)
		FROM ledger_entries WHERE booking_id = $1
	`, bookingID)
	if err != nil {
		return fmt.Errorf("ledger invariant check: %w", err)
	}
	if held < 0 {
		return fmt.Errorf("%w: ledger balance negative (%f) for booking %s", common.ErrInvalidInput, held, bookingID)
	}
	return nil
}
