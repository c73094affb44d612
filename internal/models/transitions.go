package models

// Допустимые переходы машины статусов бронирования. Терминальные статусы
// (cancelled, disputed) рёбер не имеют.
var bookingTransitions = map[string][]string{
	BookingStatusPending:           {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:         {BookingStatusPendingCompletion, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusPendingCompletion: {BookingStatusCompleted, BookingStatusDisputed},
	BookingStatusCompleted:         {BookingStatusDisputed},
	BookingStatusCancelled:         {},
	BookingStatusDisputed:          {},
}

// Допустимые переходы статусов escrow-платежа. Рёбра из disputed проходит
// только разрешение спора; completed → released — подтверждение завершения,
// completed → refund_pending → refunded — отмена с отложенным возвратом.
var escrowTransitions = map[string][]string{
	EscrowStatusPending:       {EscrowStatusCompleted},
	EscrowStatusCompleted:     {EscrowStatusReleased, EscrowStatusRefundPending, EscrowStatusDisputed},
	EscrowStatusReleased:      {EscrowStatusDisputed},
	EscrowStatusRefundPending: {EscrowStatusRefunded},
	EscrowStatusDisputed:      {EscrowStatusReleased, EscrowStatusRefunded},
	EscrowStatusRefunded:      {},
}

// CanTransitionBooking сообщает, допустим ли переход статуса бронирования.
func CanTransitionBooking(from, to string) bool {
	return canTransition(bookingTransitions, from, to)
}

// CanTransitionEscrow сообщает, допустим ли переход статуса escrow-платежа.
func CanTransitionEscrow(from, to string) bool {
	return canTransition(escrowTransitions, from, to)
}

func canTransition(table map[string][]string, from, to string) bool {
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
