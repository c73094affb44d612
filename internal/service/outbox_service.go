package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jerryawoyele/markezon-backend/internal/goroutine"
	"github.com/jerryawoyele/markezon-backend/internal/logger"
	"github.com/jerryawoyele/markezon-backend/internal/models"
)

// Размер пачки за один проход воркера.
const outboxBatchSize = 20

// PaymentGateway — внешний платёжный провайдер.
type PaymentGateway interface {
	Refund(ctx context.Context, bookingID uuid.UUID, amount float64) error
}

// OutboxQueue — доступ воркера к очереди отложенных операций.
type OutboxQueue interface {
	ClaimDue(ctx context.Context, limit int) ([]models.OutboxEntry, error)
	MarkDone(ctx context.Context, id uuid.UUID) error
	Reschedule(ctx context.Context, id uuid.UUID, attempts, maxAttempts int, lastError string, retryIn time.Duration) error
}

// RefundFinisher завершает возврат в хранилище платежей.
type RefundFinisher interface {
	MarkRefunded(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error)
}

// OutboxConfig — параметры воркера.
type OutboxConfig struct {
	PollInterval    time.Duration
	MaxAttempts     int
	ExternalTimeout time.Duration
}

// OutboxWorker разбирает очередь отложенных побочных эффектов: возвраты
// средств через платёжный шлюз и отложенные уведомления. Возврат,
// поставленный в очередь при отмене, не теряется: запись повторяется
// до успеха либо переводится в failed после исчерпания попыток.
type OutboxWorker struct {
	queue    OutboxQueue
	escrow   RefundFinisher
	gateway  PaymentGateway
	notifier Notifier
	cfg      OutboxConfig
}

// NewOutboxWorker создаёт воркер очереди.
func NewOutboxWorker(queue OutboxQueue, escrow RefundFinisher, gateway PaymentGateway, notifier Notifier, cfg OutboxConfig) *OutboxWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.ExternalTimeout <= 0 {
		cfg.ExternalTimeout = 10 * time.Second
	}
	return &OutboxWorker{
		queue:    queue,
		escrow:   escrow,
		gateway:  gateway,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Run крутит цикл обработки до отмены контекста.
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// Start запускает воркер в отдельной горутине.
func (w *OutboxWorker) Start(ctx context.Context) {
	goroutine.SafeGo(func() {
		w.Run(ctx)
	})
}

// ProcessBatch забирает и обрабатывает одну пачку созревших записей.
// Возвращает число успешно обработанных.
func (w *OutboxWorker) ProcessBatch(ctx context.Context) int {
	entries, err := w.queue.ClaimDue(ctx, outboxBatchSize)
	if err != nil {
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{"error": err.Error()}).
				Error("outbox worker: не удалось забрать пачку")
		}
		return 0
	}

	done := 0
	for _, entry := range entries {
		if err := w.process(ctx, entry); err != nil {
			w.reschedule(ctx, entry, err)
			continue
		}
		if err := w.queue.MarkDone(ctx, entry.ID); err != nil {
			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"entry_id": entry.ID,
					"error":    err.Error(),
				}).Error("outbox worker: не удалось пометить запись обработанной")
			}
			continue
		}
		done++
	}
	return done
}

func (w *OutboxWorker) process(ctx context.Context, entry models.OutboxEntry) error {
	opCtx, cancel := context.WithTimeout(ctx, w.cfg.ExternalTimeout)
	defer cancel()

	switch entry.Kind {
	case models.OutboxKindRefund:
		return w.processRefund(opCtx, entry)
	case models.OutboxKindNotification:
		return w.processNotification(opCtx, entry)
	default:
		return fmt.Errorf("outbox worker: неизвестный тип записи %q", entry.Kind)
	}
}

// processRefund выполняет возврат через шлюз и фиксирует его в хранилище.
// MarkRefunded идемпотентен, поэтому повтор после частичного успеха безопасен.
func (w *OutboxWorker) processRefund(ctx context.Context, entry models.OutboxEntry) error {
	var payload models.RefundPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return fmt.Errorf("outbox worker: payload возврата %w", err)
	}

	if err := w.gateway.Refund(ctx, payload.BookingID, payload.Amount); err != nil {
		return fmt.Errorf("outbox worker: платёжный шлюз %w", err)
	}

	escrow, err := w.escrow.MarkRefunded(ctx, payload.BookingID)
	if err != nil {
		return fmt.Errorf("outbox worker: фиксация возврата %w", err)
	}

	if w.notifier != nil {
		if err := w.notifier.Notify(ctx, &models.Notification{
			UserID:   escrow.CustomerID,
			Type:     models.NotificationRefundIssued,
			EntityID: &payload.BookingID,
			Message:  "Средства по отменённому бронированию возвращены",
		}); err != nil && logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"booking_id": payload.BookingID,
				"error":      err.Error(),
			}).Warn("outbox worker: не удалось уведомить о возврате")
		}
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"booking_id": payload.BookingID,
			"amount":     payload.Amount,
			"attempts":   entry.Attempts,
		}).Info("outbox worker: возврат выполнен")
	}
	return nil
}

func (w *OutboxWorker) processNotification(ctx context.Context, entry models.OutboxEntry) error {
	if w.notifier == nil {
		return nil
	}

	var payload models.NotificationPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return fmt.Errorf("outbox worker: payload уведомления %w", err)
	}

	return w.notifier.Notify(ctx, &models.Notification{
		UserID:   payload.UserID,
		ActorID:  payload.ActorID,
		Type:     payload.Type,
		EntityID: payload.EntityID,
		Message:  payload.Message,
	})
}

// reschedule откладывает повтор с экспоненциальной задержкой.
func (w *OutboxWorker) reschedule(ctx context.Context, entry models.OutboxEntry, cause error) {
	retryIn := w.cfg.PollInterval * time.Duration(1<<uint(min(entry.Attempts, 6)))

	if err := w.queue.Reschedule(ctx, entry.ID, entry.Attempts, w.cfg.MaxAttempts, cause.Error(), retryIn); err != nil {
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"entry_id": entry.ID,
				"error":    err.Error(),
			}).Error("outbox worker: не удалось отложить повтор")
		}
		return
	}

	if logger.Log != nil {
		fields := logrus.Fields{
			"entry_id": entry.ID,
			"kind":     entry.Kind,
			"attempts": entry.Attempts,
			"error":    cause.Error(),
		}
		if entry.Attempts >= w.cfg.MaxAttempts {
			logger.Log.WithFields(fields).Error("outbox worker: попытки исчерпаны, запись переведена в failed")
		} else {
			logger.Log.WithFields(fields).Warn("outbox worker: обработка отложена")
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
