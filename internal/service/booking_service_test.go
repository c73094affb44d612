package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
	"github.com/jerryawoyele/markezon-backend/internal/repository"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
)

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	args := m.Called(ctx, customerID, limit, offset)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	args := m.Called(ctx, providerID, limit, offset)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingRepo) Confirm(ctx context.Context, bookingID uuid.UUID) (*models.Booking, *models.EscrowPayment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Booking), args.Get(1).(*models.EscrowPayment), args.Error(2)
}

func (m *mockBookingRepo) StartService(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) MarkServiceDone(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ConfirmCompletion(ctx context.Context, bookingID uuid.UUID) (*models.Booking, *models.EscrowPayment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Booking), args.Get(1).(*models.EscrowPayment), args.Error(2)
}

func (m *mockBookingRepo) Cancel(ctx context.Context, bookingID uuid.UUID) (*models.Booking, bool, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Booking), args.Bool(1), args.Error(2)
}

type mockBookingEscrowRepo struct {
	mock.Mock
}

func (m *mockBookingEscrowRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowPayment), args.Error(1)
}

func (m *mockBookingEscrowRepo) ListEntries(ctx context.Context, bookingID uuid.UUID) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LedgerEntry), args.Error(1)
}

func (m *mockBookingEscrowRepo) BalanceFor(ctx context.Context, bookingID uuid.UUID) (*models.EscrowBalance, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowBalance), args.Error(1)
}

func (m *mockBookingEscrowRepo) OpenDispute(ctx context.Context, escrowPaymentID, raisedBy uuid.UUID, reason string, details *string) (*models.Dispute, error) {
	args := m.Called(ctx, escrowPaymentID, raisedBy, reason, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

type mockPayoutReader struct {
	mock.Mock
}

func (m *mockPayoutReader) GetPayoutAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PayoutAccount), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceListing), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func newBookingFixture() (*mockBookingRepo, *mockBookingEscrowRepo, *mockPayoutReader, *mockCatalog, *mockNotifier, *BookingService) {
	repo := new(mockBookingRepo)
	escrowRepo := new(mockBookingEscrowRepo)
	payouts := new(mockPayoutReader)
	catalog := new(mockCatalog)
	notifier := new(mockNotifier)
	svc := NewBookingService(repo, escrowRepo, payouts, catalog, notifier, 72*time.Hour)
	return repo, escrowRepo, payouts, catalog, notifier, svc
}

func TestBookingService_CreateBooking_OwnService(t *testing.T) {
	_, _, _, catalog, _, svc := newBookingFixture()
	ctx := context.Background()
	providerID := uuid.New()
	serviceID := uuid.New()

	catalog.On("GetByID", ctx, serviceID).Return(&models.ServiceListing{
		ID: serviceID, ProviderID: providerID, Price: 1000, IsActive: true,
	}, nil)

	_, err := svc.CreateBooking(ctx, providerID, CreateBookingInput{
		ServiceID:     serviceID,
		ScheduledTime: time.Now().Add(24 * time.Hour),
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestBookingService_CreateBooking_InactiveService(t *testing.T) {
	_, _, _, catalog, _, svc := newBookingFixture()
	ctx := context.Background()
	serviceID := uuid.New()

	catalog.On("GetByID", ctx, serviceID).Return(&models.ServiceListing{
		ID: serviceID, ProviderID: uuid.New(), Price: 1000, IsActive: false,
	}, nil)

	_, err := svc.CreateBooking(ctx, uuid.New(), CreateBookingInput{
		ServiceID:     serviceID,
		ScheduledTime: time.Now().Add(24 * time.Hour),
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestBookingService_Confirm_Success(t *testing.T) {
	repo, _, payouts, _, notifier, svc := newBookingFixture()
	ctx := context.Background()
	providerID := uuid.New()
	customerID := uuid.New()
	bookingID := uuid.New()

	pending := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: providerID, Status: models.BookingStatusPending}
	confirmed := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: providerID, Status: models.BookingStatusConfirmed}
	escrow := &models.EscrowPayment{ID: uuid.New(), BookingID: bookingID, Amount: 1500, Status: models.EscrowStatusCompleted}

	repo.On("GetByID", ctx, bookingID).Return(pending, nil)
	payouts.On("GetPayoutAccount", ctx, providerID).Return(&models.PayoutAccount{UserID: providerID, Verified: true}, nil)
	repo.On("Confirm", ctx, bookingID).Return(confirmed, escrow, nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Confirm(ctx, providerID, bookingID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, result.Status)
	repo.AssertExpectations(t)
}

func TestBookingService_Confirm_PayoutAccountMissing(t *testing.T) {
	repo, _, payouts, _, _, svc := newBookingFixture()
	ctx := context.Background()
	providerID := uuid.New()
	bookingID := uuid.New()

	pending := &models.Booking{ID: bookingID, CustomerID: uuid.New(), ProviderID: providerID, Status: models.BookingStatusPending}
	repo.On("GetByID", ctx, bookingID).Return(pending, nil)
	payouts.On("GetPayoutAccount", ctx, providerID).Return(nil, repository.ErrPayoutAccountNotFound)

	_, err := svc.Confirm(ctx, providerID, bookingID)
	assert.True(t, apperror.Is(err, apperror.ErrCodePayoutAccountMissing))
	// Статус не трогаем: переход даже не начинается.
	repo.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestBookingService_Confirm_UnverifiedAccount(t *testing.T) {
	repo, _, payouts, _, _, svc := newBookingFixture()
	ctx := context.Background()
	providerID := uuid.New()
	bookingID := uuid.New()

	pending := &models.Booking{ID: bookingID, CustomerID: uuid.New(), ProviderID: providerID, Status: models.BookingStatusPending}
	repo.On("GetByID", ctx, bookingID).Return(pending, nil)
	payouts.On("GetPayoutAccount", ctx, providerID).Return(&models.PayoutAccount{UserID: providerID, Verified: false}, nil)

	_, err := svc.Confirm(ctx, providerID, bookingID)
	assert.True(t, apperror.Is(err, apperror.ErrCodePayoutAccountMissing))
	repo.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestBookingService_Confirm_NotProvider(t *testing.T) {
	repo, _, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	bookingID := uuid.New()

	pending := &models.Booking{ID: bookingID, CustomerID: uuid.New(), ProviderID: uuid.New(), Status: models.BookingStatusPending}
	repo.On("GetByID", ctx, bookingID).Return(pending, nil)

	_, err := svc.Confirm(ctx, uuid.New(), bookingID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestBookingService_ConfirmCompletion_Repeat(t *testing.T) {
	repo, _, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	customerID := uuid.New()
	bookingID := uuid.New()

	completed := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: uuid.New(), Status: models.BookingStatusCompleted}
	repo.On("GetByID", ctx, bookingID).Return(completed, nil)
	// Повторное подтверждение упирается в перепроверку статуса внутри транзакции.
	repo.On("ConfirmCompletion", ctx, bookingID).Return(nil, nil, common.ErrStateConflict)

	_, err := svc.ConfirmCompletion(ctx, customerID, bookingID)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestBookingService_Cancel_ServiceStarted(t *testing.T) {
	repo, _, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	customerID := uuid.New()
	bookingID := uuid.New()

	booking := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: uuid.New(), Status: models.BookingStatusConfirmed, ServiceStarted: true}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)
	repo.On("Cancel", ctx, bookingID).Return(nil, false, repository.ErrServiceStarted)

	_, err := svc.Cancel(ctx, customerID, bookingID)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestBookingService_Cancel_RefundQueued(t *testing.T) {
	repo, _, _, _, notifier, svc := newBookingFixture()
	ctx := context.Background()
	customerID := uuid.New()
	bookingID := uuid.New()

	booking := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: uuid.New(), Status: models.BookingStatusConfirmed}
	cancelled := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: booking.ProviderID, Status: models.BookingStatusCancelled}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)
	repo.On("Cancel", ctx, bookingID).Return(cancelled, true, nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Cancel(ctx, customerID, bookingID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, result.Status)
}

func TestBookingService_Cancel_Outsider(t *testing.T) {
	repo, _, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	bookingID := uuid.New()

	booking := &models.Booking{ID: bookingID, CustomerID: uuid.New(), ProviderID: uuid.New(), Status: models.BookingStatusPending}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)

	_, err := svc.Cancel(ctx, uuid.New(), bookingID)
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestBookingService_Dispute_PendingCompletion(t *testing.T) {
	repo, escrowRepo, _, _, notifier, svc := newBookingFixture()
	ctx := context.Background()
	customerID := uuid.New()
	bookingID := uuid.New()
	escrowID := uuid.New()

	booking := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: uuid.New(), Status: models.BookingStatusPendingCompletion}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)
	escrowRepo.On("GetByBookingID", ctx, bookingID).Return(&models.EscrowPayment{ID: escrowID, BookingID: bookingID}, nil)
	escrowRepo.On("OpenDispute", ctx, escrowID, customerID, "услуга не оказана", (*string)(nil)).
		Return(&models.Dispute{ID: uuid.New(), EscrowPaymentID: escrowID, BookingID: bookingID, Status: models.DisputeStatusOpen}, nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	dispute, err := svc.Dispute(ctx, customerID, bookingID, "услуга не оказана", nil)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, dispute.Status)
	escrowRepo.AssertExpectations(t)
}

func TestBookingService_Dispute_WindowExpired(t *testing.T) {
	repo, escrowRepo, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	customerID := uuid.New()
	bookingID := uuid.New()

	completedAt := time.Now().Add(-80 * time.Hour)
	booking := &models.Booking{
		ID: bookingID, CustomerID: customerID, ProviderID: uuid.New(),
		Status: models.BookingStatusCompleted, CompletedAt: &completedAt,
	}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)

	_, err := svc.Dispute(ctx, customerID, bookingID, "услуга не оказана", nil)
	assert.True(t, apperror.IsStateConflict(err))
	escrowRepo.AssertNotCalled(t, "OpenDispute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_Dispute_WithinWindow(t *testing.T) {
	repo, escrowRepo, _, _, notifier, svc := newBookingFixture()
	ctx := context.Background()
	customerID := uuid.New()
	bookingID := uuid.New()
	escrowID := uuid.New()

	completedAt := time.Now().Add(-time.Hour)
	booking := &models.Booking{
		ID: bookingID, CustomerID: customerID, ProviderID: uuid.New(),
		Status: models.BookingStatusCompleted, CompletedAt: &completedAt,
	}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)
	escrowRepo.On("GetByBookingID", ctx, bookingID).Return(&models.EscrowPayment{ID: escrowID, BookingID: bookingID}, nil)
	escrowRepo.On("OpenDispute", ctx, escrowID, customerID, "качество услуги", (*string)(nil)).
		Return(&models.Dispute{ID: uuid.New(), Status: models.DisputeStatusOpen}, nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Dispute(ctx, customerID, bookingID, "качество услуги", nil)
	assert.NoError(t, err)
}

func TestBookingService_Dispute_Duplicate(t *testing.T) {
	repo, escrowRepo, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	customerID := uuid.New()
	bookingID := uuid.New()
	escrowID := uuid.New()

	booking := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: uuid.New(), Status: models.BookingStatusPendingCompletion}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)
	escrowRepo.On("GetByBookingID", ctx, bookingID).Return(&models.EscrowPayment{ID: escrowID, BookingID: bookingID}, nil)
	escrowRepo.On("OpenDispute", ctx, escrowID, customerID, "повторный спор", (*string)(nil)).
		Return(nil, repository.ErrOpenDisputeExists)

	_, err := svc.Dispute(ctx, customerID, bookingID, "повторный спор", nil)
	assert.True(t, apperror.Is(err, apperror.ErrCodeDuplicateDispute))
}

func TestBookingService_Dispute_WrongStatus(t *testing.T) {
	repo, _, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	customerID := uuid.New()
	bookingID := uuid.New()

	booking := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: uuid.New(), Status: models.BookingStatusPending}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)

	_, err := svc.Dispute(ctx, customerID, bookingID, "услуга не оказана", nil)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestBookingService_Dispute_NotCustomer(t *testing.T) {
	repo, _, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	bookingID := uuid.New()
	providerID := uuid.New()

	booking := &models.Booking{ID: bookingID, CustomerID: uuid.New(), ProviderID: providerID, Status: models.BookingStatusPendingCompletion}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)

	_, err := svc.Dispute(ctx, providerID, bookingID, "услуга не оказана", nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestBookingService_GetLedger_EntriesAndBalance(t *testing.T) {
	repo, escrowRepo, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	customerID := uuid.New()
	bookingID := uuid.New()

	booking := &models.Booking{ID: bookingID, CustomerID: customerID, ProviderID: uuid.New(), Status: models.BookingStatusCancelled}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)
	escrowRepo.On("ListEntries", ctx, bookingID).Return([]models.LedgerEntry{
		{BookingID: bookingID, Type: models.LedgerEntryHold, Amount: 1200},
		{BookingID: bookingID, Type: models.LedgerEntryRefund, Amount: 1200},
	}, nil)
	escrowRepo.On("BalanceFor", ctx, bookingID).
		Return(&models.EscrowBalance{BookingID: bookingID, Held: 0, Refunded: 1200}, nil)

	balance, entries, err := svc.GetLedger(ctx, customerID, models.RoleCustomer, bookingID)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 0.0, balance.Held)
	assert.Equal(t, 1200.0, balance.Refunded)
	assert.True(t, balance.Valid())
	escrowRepo.AssertExpectations(t)
}

func TestBookingService_GetLedger_Outsider(t *testing.T) {
	repo, escrowRepo, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	bookingID := uuid.New()

	booking := &models.Booking{ID: bookingID, CustomerID: uuid.New(), ProviderID: uuid.New(), Status: models.BookingStatusConfirmed}
	repo.On("GetByID", ctx, bookingID).Return(booking, nil)

	_, _, err := svc.GetLedger(ctx, uuid.New(), models.RoleCustomer, bookingID)
	assert.True(t, apperror.IsForbidden(err))
	escrowRepo.AssertNotCalled(t, "ListEntries", mock.Anything, mock.Anything)
}

func TestBookingService_ListMyBookings_DefaultLimit(t *testing.T) {
	repo, _, _, _, _, svc := newBookingFixture()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("ListByCustomer", ctx, userID, 20, 0).Return([]models.Booking{}, nil)

	_, err := svc.ListMyBookings(ctx, userID, false, 0, -5)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
