package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFoldLedger_HoldOnly(t *testing.T) {
	bookingID := uuid.New()
	balance := FoldLedger(bookingID, []LedgerEntry{
		{BookingID: bookingID, Type: LedgerEntryHold, Amount: 1500},
	})

	assert.Equal(t, 1500.0, balance.Held)
	assert.Equal(t, 0.0, balance.Released)
	assert.Equal(t, 0.0, balance.Refunded)
	assert.True(t, balance.Valid())
}

func TestFoldLedger_HoldThenRelease(t *testing.T) {
	bookingID := uuid.New()
	balance := FoldLedger(bookingID, []LedgerEntry{
		{BookingID: bookingID, Type: LedgerEntryHold, Amount: 1500},
		{BookingID: bookingID, Type: LedgerEntryRelease, Amount: 1500},
	})

	assert.Equal(t, 0.0, balance.Held)
	assert.Equal(t, 1500.0, balance.Released)
	assert.True(t, balance.Valid())
}

func TestFoldLedger_HoldThenRefund(t *testing.T) {
	bookingID := uuid.New()
	balance := FoldLedger(bookingID, []LedgerEntry{
		{BookingID: bookingID, Type: LedgerEntryHold, Amount: 900},
		{BookingID: bookingID, Type: LedgerEntryRefund, Amount: 900},
	})

	assert.Equal(t, 0.0, balance.Held)
	assert.Equal(t, 900.0, balance.Refunded)
	assert.True(t, balance.Valid())
}

func TestFoldLedger_OverRelease(t *testing.T) {
	bookingID := uuid.New()
	balance := FoldLedger(bookingID, []LedgerEntry{
		{BookingID: bookingID, Type: LedgerEntryHold, Amount: 500},
		{BookingID: bookingID, Type: LedgerEntryRelease, Amount: 500},
		{BookingID: bookingID, Type: LedgerEntryRefund, Amount: 500},
	})

	// Release и refund одного удержания вместе превышают hold.
	assert.Equal(t, -500.0, balance.Held)
	assert.False(t, balance.Valid())
}

func TestFoldLedger_Empty(t *testing.T) {
	balance := FoldLedger(uuid.New(), nil)
	assert.Equal(t, 0.0, balance.Held)
	assert.True(t, balance.Valid())
}

func TestFoldLedger_IgnoresUnknownTypes(t *testing.T) {
	bookingID := uuid.New()
	balance := FoldLedger(bookingID, []LedgerEntry{
		{BookingID: bookingID, Type: LedgerEntryHold, Amount: 100},
		{BookingID: bookingID, Type: "adjustment", Amount: 999},
	})

	assert.Equal(t, 100.0, balance.Held)
}

func TestEscrowPayment_FundsHeld(t *testing.T) {
	held := []string{EscrowStatusCompleted, EscrowStatusDisputed, EscrowStatusRefundPending}
	for _, status := range held {
		e := EscrowPayment{Status: status}
		assert.True(t, e.FundsHeld(), status)
	}

	settled := []string{EscrowStatusPending, EscrowStatusReleased, EscrowStatusRefunded}
	for _, status := range settled {
		e := EscrowPayment{Status: status}
		assert.False(t, e.FundsHeld(), status)
	}
}
