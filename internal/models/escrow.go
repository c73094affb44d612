package models

import (
	"time"

	"github.com/google/uuid"
)

// EscrowPayment представляет удержанный платёж по бронированию (1:1).
type EscrowPayment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	BookingID  uuid.UUID  `db:"booking_id" json:"booking_id"`
	CustomerID uuid.UUID  `db:"customer_id" json:"customer_id"`
	ProviderID uuid.UUID  `db:"provider_id" json:"provider_id"`
	Amount     float64    `db:"amount" json:"amount"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	SettledAt  *time.Time `db:"settled_at" json:"settled_at,omitempty"`
}

// FundsHeld сообщает, удерживаются ли средства платформой.
func (e *EscrowPayment) FundsHeld() bool {
	switch e.Status {
	case EscrowStatusCompleted, EscrowStatusDisputed, EscrowStatusRefundPending:
		return true
	}
	return false
}

// LedgerEntry — запись в append-only леджере движений средств.
type LedgerEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BookingID uuid.UUID `db:"booking_id" json:"booking_id"`
	Type      string    `db:"type" json:"type"`
	Amount    float64   `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EscrowBalance — свёртка леджера по одному бронированию.
type EscrowBalance struct {
	BookingID uuid.UUID `json:"booking_id"`
	Held      float64   `json:"held"`
	Released  float64   `json:"released"`
	Refunded  float64   `json:"refunded"`
}

// FoldLedger сворачивает записи леджера в текущий баланс.
// Инвариант: sum(holds) == released + refunded + held, held >= 0.
func FoldLedger(bookingID uuid.UUID, entries []LedgerEntry) EscrowBalance {
	b := EscrowBalance{BookingID: bookingID}
	var holds float64
	for _, e := range entries {
		switch e.Type {
		case LedgerEntryHold:
			holds += e.Amount
		case LedgerEntryRelease:
			b.Released += e.Amount
		case LedgerEntryRefund:
			b.Refunded += e.Amount
		}
	}
	b.Held = holds - b.Released - b.Refunded
	return b
}

// Valid проверяет инвариант баланса.
func (b EscrowBalance) Valid() bool {
	return b.Held >= 0
}

// Dispute описывает спор по escrow-платежу.
type Dispute struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	EscrowPaymentID uuid.UUID  `db:"escrow_payment_id" json:"escrow_payment_id"`
	BookingID       uuid.UUID  `db:"booking_id" json:"booking_id"`
	RaisedBy        uuid.UUID  `db:"raised_by" json:"raised_by"`
	Reason          string     `db:"reason" json:"reason"`
	Details         *string    `db:"details" json:"details,omitempty"`
	Status          string     `db:"status" json:"status"`
	Outcome         *string    `db:"outcome" json:"outcome,omitempty"`
	ResolvedBy      *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt      *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
