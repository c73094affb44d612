package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jerryawoyele/markezon-backend/internal/logger"
	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
	"github.com/jerryawoyele/markezon-backend/internal/repository"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
	"github.com/jerryawoyele/markezon-backend/internal/validation"
)

// BookingRepository описывает транзакционные переходы машины состояний.
// Каждый переход — одна транзакция с перепроверкой предусловия статуса
// после блокировки строки.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Booking, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Booking, error)
	Confirm(ctx context.Context, bookingID uuid.UUID) (*models.Booking, *models.EscrowPayment, error)
	StartService(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	MarkServiceDone(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	ConfirmCompletion(ctx context.Context, bookingID uuid.UUID) (*models.Booking, *models.EscrowPayment, error)
	Cancel(ctx context.Context, bookingID uuid.UUID) (*models.Booking, bool, error)
}

// BookingEscrowRepository — доступ машины состояний к платежам, леджеру и спорам.
type BookingEscrowRepository interface {
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error)
	ListEntries(ctx context.Context, bookingID uuid.UUID) ([]models.LedgerEntry, error)
	BalanceFor(ctx context.Context, bookingID uuid.UUID) (*models.EscrowBalance, error)
	OpenDispute(ctx context.Context, escrowPaymentID, raisedBy uuid.UUID, reason string, details *string) (*models.Dispute, error)
}

// PayoutAccountReader проверяет наличие подтверждённого счёта для выплат.
type PayoutAccountReader interface {
	GetPayoutAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error)
}

// ServiceCatalog — чтение каталога услуг при создании бронирования.
type ServiceCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error)
}

// Notifier доставляет уведомления best-effort: сбой канала не должен
// откатывать переход состояния.
type Notifier interface {
	Notify(ctx context.Context, notification *models.Notification) error
}

// BookingService реализует жизненный цикл бронирования с escrow-гарантиями.
type BookingService struct {
	repo          BookingRepository
	escrowRepo    BookingEscrowRepository
	payoutReader  PayoutAccountReader
	catalog       ServiceCatalog
	notifier      Notifier
	disputeWindow time.Duration
}

// CreateBookingInput содержит данные запроса бронирования.
type CreateBookingInput struct {
	ServiceID     uuid.UUID
	ScheduledTime time.Time
	Location      *string
	Notes         *string
}

// NewBookingService создаёт сервис бронирований.
func NewBookingService(
	repo BookingRepository,
	escrowRepo BookingEscrowRepository,
	payoutReader PayoutAccountReader,
	catalog ServiceCatalog,
	notifier Notifier,
	disputeWindow time.Duration,
) *BookingService {
	return &BookingService{
		repo:          repo,
		escrowRepo:    escrowRepo,
		payoutReader:  payoutReader,
		catalog:       catalog,
		notifier:      notifier,
		disputeWindow: disputeWindow,
	}
}

// CreateBooking создаёт запрос бронирования в статусе pending.
func (s *BookingService) CreateBooking(ctx context.Context, customerID uuid.UUID, in CreateBookingInput) (*models.Booking, error) {
	if err := validation.ValidateNotes(in.Notes); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.ScheduledTime.Before(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "время бронирования уже прошло")
	}

	listing, err := s.catalog.GetByID(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, err
	}
	if !listing.IsActive {
		return nil, apperror.New(apperror.ErrCodeValidation, "услуга неактивна")
	}
	if listing.ProviderID == customerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя бронировать собственную услугу")
	}

	booking, err := s.repo.Create(ctx, &models.Booking{
		ServiceID:     listing.ID,
		CustomerID:    customerID,
		ProviderID:    listing.ProviderID,
		ScheduledTime: in.ScheduledTime,
		Location:      in.Location,
		Notes:         in.Notes,
		Amount:        listing.Price,
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, booking.ProviderID, &customerID, models.NotificationBookingRequested, booking.ID,
		fmt.Sprintf("Новый запрос на бронирование «%s»", listing.Title))

	return booking, nil
}

// Confirm подтверждает бронирование от имени исполнителя. Средства клиента
// захватываются в escrow; без подтверждённого счёта для выплат подтверждение
// отклоняется без каких-либо записей.
func (s *BookingService) Confirm(ctx context.Context, actorID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ProviderID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подтверждать бронирование может только исполнитель")
	}

	account, err := s.payoutReader.GetPayoutAccount(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrPayoutAccountNotFound) {
			return nil, apperror.ErrPayoutAccountMissing
		}
		return nil, err
	}
	if !account.Verified {
		return nil, apperror.ErrPayoutAccountMissing
	}

	confirmed, _, err := s.repo.Confirm(ctx, bookingID)
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}

	s.notify(ctx, confirmed.CustomerID, &actorID, models.NotificationBookingConfirmed, confirmed.ID,
		"Бронирование подтверждено, оплата удержана")

	return confirmed, nil
}

// StartService фиксирует начало оказания услуги. После этого отмена запрещена.
func (s *BookingService) StartService(ctx context.Context, actorID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ProviderID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "начать оказание услуги может только исполнитель")
	}

	started, err := s.repo.StartService(ctx, bookingID)
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}
	return started, nil
}

// MarkServiceDone переводит бронирование в ожидание подтверждения клиентом.
// Средства остаются в удержании.
func (s *BookingService) MarkServiceDone(ctx context.Context, actorID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ProviderID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отметить выполнение может только исполнитель")
	}

	done, err := s.repo.MarkServiceDone(ctx, bookingID)
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}

	s.notify(ctx, done.CustomerID, &actorID, models.NotificationServiceDone, done.ID,
		"Исполнитель отметил услугу выполненной — подтвердите завершение")

	return done, nil
}

// ConfirmCompletion завершает бронирование от имени клиента и освобождает
// средства исполнителю. Повторный вызов — StateConflict без второго release.
func (s *BookingService) ConfirmCompletion(ctx context.Context, actorID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подтвердить завершение может только клиент")
	}

	completed, escrow, err := s.repo.ConfirmCompletion(ctx, bookingID)
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}

	s.notify(ctx, completed.ProviderID, &actorID, models.NotificationPaymentReleased, completed.ID,
		fmt.Sprintf("Оплата %.2f переведена вам", escrow.Amount))

	return completed, nil
}

// Cancel отменяет бронирование. Если средства удерживались, отмена и постановка
// возврата в очередь фиксируются одной транзакцией: возврат не теряется даже
// при падении платёжного шлюза.
func (s *BookingService) Cancel(ctx context.Context, actorID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != actorID && booking.ProviderID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отменить бронирование может только его участник")
	}

	cancelled, refundQueued, err := s.repo.Cancel(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceStarted) {
			return nil, apperror.New(apperror.ErrCodeStateConflict, "услуга уже начата, отмена невозможна")
		}
		return nil, s.mapTransitionErr(err)
	}

	counterparty := cancelled.ProviderID
	if actorID == cancelled.ProviderID {
		counterparty = cancelled.CustomerID
	}
	s.notify(ctx, counterparty, &actorID, models.NotificationBookingCancelled, cancelled.ID,
		"Бронирование отменено")

	if refundQueued && logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"booking_id": cancelled.ID,
		}).Info("booking service: возврат поставлен в очередь")
	}

	return cancelled, nil
}

// Dispute открывает спор по бронированию от имени клиента. Допустим из
// pending_completion и из completed в пределах окна оспаривания. Статус
// бронирования не меняется — замораживается платёж.
func (s *BookingService) Dispute(ctx context.Context, actorID, bookingID uuid.UUID, reason string, details *string) (*models.Dispute, error) {
	if err := validation.ValidateDisputeReason(reason); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateDisputeDetails(details); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "открыть спор может только клиент")
	}

	switch booking.Status {
	case models.BookingStatusPendingCompletion:
		// Спор до подтверждения завершения — окно не ограничено.
	case models.BookingStatusCompleted:
		if booking.CompletedAt == nil || time.Since(*booking.CompletedAt) > s.disputeWindow {
			return nil, apperror.New(apperror.ErrCodeStateConflict, "окно оспаривания истекло")
		}
	default:
		return nil, apperror.New(apperror.ErrCodeStateConflict,
			fmt.Sprintf("спор недоступен из статуса %s", booking.Status))
	}

	escrow, err := s.escrowRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}

	dispute, err := s.escrowRepo.OpenDispute(ctx, escrow.ID, actorID, reason, details)
	if err != nil {
		if errors.Is(err, repository.ErrOpenDisputeExists) {
			return nil, apperror.ErrDuplicateDispute
		}
		return nil, s.mapTransitionErr(err)
	}

	s.notify(ctx, booking.ProviderID, &actorID, models.NotificationDisputeOpened, booking.ID,
		"По бронированию открыт спор, средства заморожены")

	return dispute, nil
}

// GetBooking возвращает бронирование участнику или администратору.
func (s *BookingService) GetBooking(ctx context.Context, actorID uuid.UUID, actorRole string, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != actorID && booking.ProviderID != actorID && actorRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	return booking, nil
}

// ListMyBookings возвращает бронирования пользователя в указанной роли.
func (s *BookingService) ListMyBookings(ctx context.Context, userID uuid.UUID, asProvider bool, limit, offset int) ([]models.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if asProvider {
		return s.repo.ListByProvider(ctx, userID, limit, offset)
	}
	return s.repo.ListByCustomer(ctx, userID, limit, offset)
}

// GetEscrow возвращает платёж по бронированию для его участника.
func (s *BookingService) GetEscrow(ctx context.Context, actorID uuid.UUID, bookingID uuid.UUID) (*models.EscrowPayment, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != actorID && booking.ProviderID != actorID {
		return nil, apperror.ErrForbidden
	}
	escrow, err := s.escrowRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	return escrow, nil
}

// GetLedger возвращает записи леджера и их свёрнутый баланс по бронированию.
// Доступно участникам бронирования и администратору.
func (s *BookingService) GetLedger(ctx context.Context, actorID uuid.UUID, actorRole string, bookingID uuid.UUID) (*models.EscrowBalance, []models.LedgerEntry, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.CustomerID != actorID && booking.ProviderID != actorID && actorRole != models.RoleAdmin {
		return nil, nil, apperror.ErrForbidden
	}

	entries, err := s.escrowRepo.ListEntries(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	balance, err := s.escrowRepo.BalanceFor(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	return balance, entries, nil
}

func (s *BookingService) getBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) mapTransitionErr(err error) error {
	switch {
	case errors.Is(err, common.ErrStateConflict):
		return apperror.Wrap(err, apperror.ErrCodeStateConflict, "переход из текущего статуса недопустим")
	case errors.Is(err, repository.ErrBookingNotFound):
		return apperror.ErrBookingNotFound
	case errors.Is(err, repository.ErrEscrowNotFound):
		return apperror.ErrEscrowNotFound
	default:
		return err
	}
}

// notify пишет уведомление best-effort: ошибка логируется и не влияет
// на результат операции.
func (s *BookingService) notify(ctx context.Context, userID uuid.UUID, actorID *uuid.UUID, notifType string, entityID uuid.UUID, message string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, &models.Notification{
		UserID:   userID,
		ActorID:  actorID,
		Type:     notifType,
		EntityID: &entityID,
		Message:  message,
	})
	if err != nil && logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"type":    notifType,
			"error":   err.Error(),
		}).Warn("booking service: не удалось отправить уведомление")
	}
}
