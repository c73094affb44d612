package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEntry — долговечная запись о намерении выполнить побочный эффект.
// Записывается в той же транзакции, что и изменение состояния, и
// обрабатывается фоновым воркером до успеха или исчерпания попыток.
type OutboxEntry struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Kind        string          `db:"kind" json:"kind"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      string          `db:"status" json:"status"`
	Attempts    int             `db:"attempts" json:"attempts"`
	LastError   *string         `db:"last_error" json:"last_error,omitempty"`
	NextRetryAt time.Time       `db:"next_retry_at" json:"next_retry_at"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// RefundPayload — полезная нагрузка отложенного возврата средств.
type RefundPayload struct {
	BookingID uuid.UUID `json:"booking_id"`
	Amount    float64   `json:"amount"`
}

// NotificationPayload — полезная нагрузка отложенного уведомления.
type NotificationPayload struct {
	UserID   uuid.UUID  `json:"user_id"`
	ActorID  *uuid.UUID `json:"actor_id,omitempty"`
	Type     string     `json:"type"`
	EntityID *uuid.UUID `json:"entity_id,omitempty"`
	Message  string     `json:"message"`
}
