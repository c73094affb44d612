package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceListing описывает услугу, предлагаемую исполнителем.
type ServiceListing struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ProviderID  uuid.UUID  `db:"provider_id" json:"provider_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	Category    *string    `db:"category" json:"category,omitempty"`
	Price       float64    `db:"price" json:"price"`
	PhotoID     *uuid.UUID `db:"photo_id" json:"photo_id,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Booking описывает бронирование услуги.
// Статус меняется только через машину состояний, записи не удаляются физически.
type Booking struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ServiceID      uuid.UUID  `db:"service_id" json:"service_id"`
	CustomerID     uuid.UUID  `db:"customer_id" json:"customer_id"`
	ProviderID     uuid.UUID  `db:"provider_id" json:"provider_id"`
	ScheduledTime  time.Time  `db:"scheduled_time" json:"scheduled_time"`
	Location       *string    `db:"location" json:"location,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	Amount         float64    `db:"amount" json:"amount"`
	Status         string     `db:"status" json:"status"`
	ServiceStarted bool       `db:"service_started" json:"service_started"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTerminal сообщает, находится ли бронирование в конечном статусе.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}
