package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification описывает запись для внешнего канала доставки уведомлений.
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	ActorID   *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	Type      string     `db:"type" json:"type"`
	EntityID  *uuid.UUID `db:"entity_id" json:"entity_id,omitempty"`
	Message   string     `db:"message" json:"message"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
