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
)

// NotificationStore описывает хранилище уведомлений.
type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Broadcaster доставляет событие подключённым клиентам пользователя.
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// DeferredQueue кладёт уведомление в outbox для повторной доставки воркером.
type DeferredQueue interface {
	Enqueue(ctx context.Context, kind string, payload interface{}) (*models.OutboxEntry, error)
}

// NotificationService сохраняет уведомления и рассылает их по WebSocket.
// Доставка best-effort: сбой канала не откатывает бизнес-операцию.
type NotificationService struct {
	store       NotificationStore
	broadcaster Broadcaster
	queue       DeferredQueue
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(store NotificationStore, broadcaster Broadcaster, queue DeferredQueue) *NotificationService {
	return &NotificationService{store: store, broadcaster: broadcaster, queue: queue}
}

// Notify сохраняет уведомление и отправляет его в реальном времени.
// При сбое записи уведомление откладывается в outbox и доезжает воркером;
// ошибка возвращается только если отложить тоже не удалось. Ошибка
// рассылки по WebSocket всегда лишь логируется.
func (s *NotificationService) Notify(ctx context.Context, notification *models.Notification) error {
	if err := s.store.Create(ctx, notification); err != nil {
		return s.deferNotification(ctx, notification, err)
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastToUser(notification.UserID, notification.Type, notification); err != nil && logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"user_id": notification.UserID,
				"type":    notification.Type,
				"error":   err.Error(),
			}).Warn("notification service: не удалось отправить уведомление по WebSocket")
		}
	}

	return nil
}

// deferNotification откладывает несохранённое уведомление в outbox.
func (s *NotificationService) deferNotification(ctx context.Context, notification *models.Notification, cause error) error {
	if s.queue == nil {
		return cause
	}

	_, err := s.queue.Enqueue(ctx, models.OutboxKindNotification, models.NotificationPayload{
		UserID:   notification.UserID,
		ActorID:  notification.ActorID,
		Type:     notification.Type,
		EntityID: notification.EntityID,
		Message:  notification.Message,
	})
	if err != nil {
		return cause
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": notification.UserID,
			"type":    notification.Type,
			"error":   cause.Error(),
		}).Warn("notification service: запись не удалась, уведомление отложено в outbox")
	}
	return nil
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление пользователя как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.store.MarkAsRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
		}
		return err
	}
	return nil
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.store.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает число непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, userID)
}
