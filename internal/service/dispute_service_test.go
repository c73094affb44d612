package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
)

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListDisputes(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListDisputesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) SetDisputeUnderReview(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ResolveDispute(ctx context.Context, disputeID, resolvedBy uuid.UUID, outcome string) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID, resolvedBy, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowPayment), args.Error(1)
}

func TestDisputeService_Resolve_ReleaseToProvider(t *testing.T) {
	repo := new(mockDisputeRepo)
	notifier := new(mockNotifier)
	svc := NewDisputeService(repo, notifier)
	ctx := context.Background()

	adminID := uuid.New()
	disputeID := uuid.New()
	bookingID := uuid.New()

	outcome := models.DisputeOutcomeReleaseToProvider
	resolved := &models.Dispute{ID: disputeID, BookingID: bookingID, Status: models.DisputeStatusResolved, Outcome: &outcome}
	repo.On("ResolveDispute", ctx, disputeID, adminID, outcome).Return(resolved, nil)
	repo.On("GetByBookingID", ctx, bookingID).Return(&models.EscrowPayment{
		BookingID: bookingID, CustomerID: uuid.New(), ProviderID: uuid.New(),
	}, nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Resolve(ctx, adminID, models.RoleAdmin, disputeID, outcome)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, result.Status)
	notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestDisputeService_Resolve_NotAdmin(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, uuid.New(), models.RoleCustomer, uuid.New(), models.DisputeOutcomeRefundToCustomer)
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "ResolveDispute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_Resolve_InvalidOutcome(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, uuid.New(), models.RoleAdmin, uuid.New(), "split_the_difference")
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Resolve_AlreadyResolved(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()

	adminID := uuid.New()
	disputeID := uuid.New()
	repo.On("ResolveDispute", ctx, disputeID, adminID, models.DisputeOutcomeRefundToCustomer).
		Return(nil, common.ErrStateConflict)

	_, err := svc.Resolve(ctx, adminID, models.RoleAdmin, disputeID, models.DisputeOutcomeRefundToCustomer)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestDisputeService_TakeUnderReview_NotAdmin(t *testing.T) {
	svc := NewDisputeService(new(mockDisputeRepo), nil)

	_, err := svc.TakeUnderReview(context.Background(), models.RoleBusiness, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
}

func TestDisputeService_TakeUnderReview_Success(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()
	disputeID := uuid.New()

	repo.On("SetDisputeUnderReview", ctx, disputeID).
		Return(&models.Dispute{ID: disputeID, Status: models.DisputeStatusUnderReview}, nil)

	dispute, err := svc.TakeUnderReview(ctx, models.RoleAdmin, disputeID)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusUnderReview, dispute.Status)
}

func TestDisputeService_ListDisputes_InvalidStatus(t *testing.T) {
	svc := NewDisputeService(new(mockDisputeRepo), nil)

	_, err := svc.ListDisputes(context.Background(), models.RoleAdmin, "escalated", 20, 0)
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_GetDispute_Participant(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()

	providerID := uuid.New()
	disputeID := uuid.New()
	bookingID := uuid.New()

	repo.On("GetDispute", ctx, disputeID).Return(&models.Dispute{
		ID: disputeID, BookingID: bookingID, RaisedBy: uuid.New(),
	}, nil)
	repo.On("GetByBookingID", ctx, bookingID).Return(&models.EscrowPayment{
		BookingID: bookingID, CustomerID: uuid.New(), ProviderID: providerID,
	}, nil)

	dispute, err := svc.GetDispute(ctx, providerID, models.RoleBusiness, disputeID)
	assert.NoError(t, err)
	assert.Equal(t, disputeID, dispute.ID)
}

func TestDisputeService_GetDispute_Outsider(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()
	disputeID := uuid.New()
	bookingID := uuid.New()

	repo.On("GetDispute", ctx, disputeID).Return(&models.Dispute{
		ID: disputeID, BookingID: bookingID, RaisedBy: uuid.New(),
	}, nil)
	repo.On("GetByBookingID", ctx, bookingID).Return(&models.EscrowPayment{
		BookingID: bookingID, CustomerID: uuid.New(), ProviderID: uuid.New(),
	}, nil)

	_, err := svc.GetDispute(ctx, uuid.New(), models.RoleCustomer, disputeID)
	assert.True(t, apperror.IsForbidden(err))
}
