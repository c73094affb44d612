package models

// BookingStatus константы статусов бронирований
const (
	BookingStatusPending           = "pending"
	BookingStatusConfirmed         = "confirmed"
	BookingStatusPendingCompletion = "pending_completion"
	BookingStatusCompleted         = "completed"
	BookingStatusCancelled         = "cancelled"
	BookingStatusDisputed          = "disputed"
)

// EscrowStatus константы статусов escrow-платежей.
// refund_pending — отмена зафиксирована, возврат поставлен в очередь повторов.
const (
	EscrowStatusPending       = "pending"
	EscrowStatusCompleted     = "completed"
	EscrowStatusReleased      = "released"
	EscrowStatusRefunded      = "refunded"
	EscrowStatusDisputed      = "disputed"
	EscrowStatusRefundPending = "refund_pending"
)

// Типы записей леджера
const (
	LedgerEntryHold    = "hold"
	LedgerEntryRelease = "release"
	LedgerEntryRefund  = "refund"
)

// DisputeStatus константы статусов споров
const (
	DisputeStatusOpen        = "open"
	DisputeStatusUnderReview = "under_review"
	DisputeStatusResolved    = "resolved"
)

// Исходы разрешения спора
const (
	DisputeOutcomeReleaseToProvider = "release_to_provider"
	DisputeOutcomeRefundToCustomer  = "refund_to_customer"
)

// Уровни продвижения публикаций
const (
	PromotionTierBasic    = "basic"
	PromotionTierPremium  = "premium"
	PromotionTierFeatured = "featured"
)

// Роли пользователей
const (
	RoleCustomer = "customer"
	RoleBusiness = "business"
	RoleAdmin    = "admin"
)

// Типы уведомлений
const (
	NotificationBookingRequested = "booking_requested"
	NotificationBookingConfirmed = "booking_confirmed"
	NotificationServiceDone      = "service_done"
	NotificationBookingCompleted = "booking_completed"
	NotificationBookingCancelled = "booking_cancelled"
	NotificationPaymentReleased  = "payment_released"
	NotificationRefundIssued     = "refund_issued"
	NotificationDisputeOpened    = "dispute_opened"
	NotificationDisputeResolved  = "dispute_resolved"
	NotificationNewFollower      = "new_follower"
	NotificationPostLiked        = "post_liked"
	NotificationPostCommented    = "post_commented"
)

// Типы отложенных операций (outbox)
const (
	OutboxKindRefund       = "refund_retry"
	OutboxKindNotification = "notification"
)

// Статусы отложенных операций
const (
	OutboxStatusPending = "pending"
	OutboxStatusDone    = "done"
	OutboxStatusFailed  = "failed"
)

// ValidBookingStatuses список валидных статусов бронирований
var ValidBookingStatuses = map[string]struct{}{
	BookingStatusPending:           {},
	BookingStatusConfirmed:         {},
	BookingStatusPendingCompletion: {},
	BookingStatusCompleted:         {},
	BookingStatusCancelled:         {},
	BookingStatusDisputed:          {},
}

// ValidPromotionTiers список валидных уровней продвижения
var ValidPromotionTiers = map[string]struct{}{
	PromotionTierBasic:    {},
	PromotionTierPremium:  {},
	PromotionTierFeatured: {},
}

// PromotionTierWeight возвращает порядковый вес уровня продвижения для сортировки.
func PromotionTierWeight(tier string) int {
	switch tier {
	case PromotionTierFeatured:
		return 3
	case PromotionTierPremium:
		return 2
	case PromotionTierBasic:
		return 1
	default:
		return 0
	}
}
