package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jerryawoyele/markezon-backend/internal/logger"
	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
	"github.com/jerryawoyele/markezon-backend/internal/repository"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
)

// DisputeRepository описывает хранилище споров и связанных движений средств.
type DisputeRepository interface {
	GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListDisputes(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error)
	ListDisputesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	SetDisputeUnderReview(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	ResolveDispute(ctx context.Context, disputeID, resolvedBy uuid.UUID, outcome string) (*models.Dispute, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error)
}

// DisputeService реализует разбор споров. Открытие спора живёт в
// BookingService (это переход машины состояний), здесь — просмотр и решение.
type DisputeService struct {
	repo     DisputeRepository
	notifier Notifier
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(repo DisputeRepository, notifier Notifier) *DisputeService {
	return &DisputeService{repo: repo, notifier: notifier}
}

// GetDispute возвращает спор его участнику или администратору.
func (s *DisputeService) GetDispute(ctx context.Context, actorID uuid.UUID, actorRole string, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleAdmin && dispute.RaisedBy != actorID {
		escrow, err := s.repo.GetByBookingID(ctx, dispute.BookingID)
		if err != nil || (escrow.CustomerID != actorID && escrow.ProviderID != actorID) {
			return nil, apperror.ErrForbidden
		}
	}
	return dispute, nil
}

// ListDisputes возвращает споры для административного разбора.
func (s *DisputeService) ListDisputes(ctx context.Context, actorRole, status string, limit, offset int) ([]models.Dispute, error) {
	if actorRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if status != "" && status != models.DisputeStatusOpen &&
		status != models.DisputeStatusUnderReview && status != models.DisputeStatusResolved {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус спора")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListDisputes(ctx, status, limit, offset)
}

// ListMyDisputes возвращает споры, поданные пользователем.
func (s *DisputeService) ListMyDisputes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListDisputesByUser(ctx, userID, limit, offset)
}

// TakeUnderReview переводит спор в разбор администратором.
func (s *DisputeService) TakeUnderReview(ctx context.Context, actorRole string, disputeID uuid.UUID) (*models.Dispute, error) {
	if actorRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	dispute, err := s.repo.SetDisputeUnderReview(ctx, disputeID)
	if err != nil {
		if errors.Is(err, common.ErrStateConflict) {
			return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, "спор не находится в статусе open")
		}
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, err
	}
	return dispute, nil
}

// Resolve закрывает спор с указанным исходом: release_to_provider выплачивает
// удержанные средства исполнителю, refund_to_customer возвращает их клиенту.
// Движения средств и закрытие спора — одна транзакция.
func (s *DisputeService) Resolve(ctx context.Context, actorID uuid.UUID, actorRole string, disputeID uuid.UUID, outcome string) (*models.Dispute, error) {
	if actorRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if outcome != models.DisputeOutcomeReleaseToProvider && outcome != models.DisputeOutcomeRefundToCustomer {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный исход спора")
	}

	dispute, err := s.repo.ResolveDispute(ctx, disputeID, actorID, outcome)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDisputeNotFound):
			return nil, apperror.ErrDisputeNotFound
		case errors.Is(err, common.ErrStateConflict):
			return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, "спор уже разрешён")
		case errors.Is(err, repository.ErrLedgerInvariant):
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "нарушение баланса леджера")
		default:
			return nil, err
		}
	}

	s.notifyResolution(ctx, dispute, outcome)

	return dispute, nil
}

func (s *DisputeService) getDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.repo.GetDispute(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, err
	}
	return dispute, nil
}

// notifyResolution уведомляет обе стороны об исходе. Best-effort.
func (s *DisputeService) notifyResolution(ctx context.Context, dispute *models.Dispute, outcome string) {
	if s.notifier == nil {
		return
	}

	escrow, err := s.repo.GetByBookingID(ctx, dispute.BookingID)
	if err != nil {
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"dispute_id": dispute.ID,
				"error":      err.Error(),
			}).Warn("dispute service: не удалось загрузить платёж для уведомления")
		}
		return
	}

	message := "Спор разрешён: средства переведены исполнителю"
	if outcome == models.DisputeOutcomeRefundToCustomer {
		message = "Спор разрешён: средства возвращены клиенту"
	}

	for _, userID := range []uuid.UUID{escrow.CustomerID, escrow.ProviderID} {
		if err := s.notifier.Notify(ctx, &models.Notification{
			UserID:   userID,
			Type:     models.NotificationDisputeResolved,
			EntityID: &dispute.BookingID,
			Message:  message,
		}); err != nil && logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("dispute service: не удалось отправить уведомление")
		}
	}
}
