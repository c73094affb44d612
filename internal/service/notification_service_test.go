package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jerryawoyele/markezon-backend/internal/models"
)

type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *mockNotificationStore) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationStore) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *mockNotificationStore) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	args := m.Called(userID, event, data)
	return args.Error(0)
}

type mockDeferredQueue struct {
	mock.Mock
}

func (m *mockDeferredQueue) Enqueue(ctx context.Context, kind string, payload interface{}) (*models.OutboxEntry, error) {
	args := m.Called(ctx, kind, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OutboxEntry), args.Error(1)
}

func newNotificationFixture() (*mockNotificationStore, *mockBroadcaster, *mockDeferredQueue, *NotificationService) {
	store := new(mockNotificationStore)
	broadcaster := new(mockBroadcaster)
	queue := new(mockDeferredQueue)
	svc := NewNotificationService(store, broadcaster, queue)
	return store, broadcaster, queue, svc
}

func TestNotificationService_Notify_PersistsAndBroadcasts(t *testing.T) {
	store, broadcaster, queue, svc := newNotificationFixture()
	ctx := context.Background()
	userID := uuid.New()

	notification := &models.Notification{UserID: userID, Type: models.NotificationPostLiked, Message: "Ваша публикация понравилась"}
	store.On("Create", ctx, notification).Return(nil)
	broadcaster.On("BroadcastToUser", userID, models.NotificationPostLiked, notification).Return(nil)

	err := svc.Notify(ctx, notification)
	assert.NoError(t, err)
	store.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_Notify_StoreFailureDeferred(t *testing.T) {
	store, broadcaster, queue, svc := newNotificationFixture()
	ctx := context.Background()
	userID := uuid.New()
	actorID := uuid.New()

	notification := &models.Notification{
		UserID:  userID,
		ActorID: &actorID,
		Type:    models.NotificationNewFollower,
		Message: "У вас новый подписчик",
	}
	store.On("Create", ctx, notification).Return(errors.New("connection reset"))
	queue.On("Enqueue", ctx, models.OutboxKindNotification, mock.MatchedBy(func(payload interface{}) bool {
		p, ok := payload.(models.NotificationPayload)
		return ok && p.UserID == userID && p.ActorID != nil && *p.ActorID == actorID &&
			p.Type == models.NotificationNewFollower
	})).Return(&models.OutboxEntry{ID: uuid.New(), Kind: models.OutboxKindNotification}, nil)

	err := svc.Notify(ctx, notification)
	assert.NoError(t, err)
	queue.AssertExpectations(t)
	// Несохранённое уведомление не рассылается: его доставит воркер.
	broadcaster.AssertNotCalled(t, "BroadcastToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_Notify_StoreAndQueueFailure(t *testing.T) {
	store, _, queue, svc := newNotificationFixture()
	ctx := context.Background()

	storeErr := errors.New("connection reset")
	notification := &models.Notification{UserID: uuid.New(), Type: models.NotificationPostCommented}
	store.On("Create", ctx, notification).Return(storeErr)
	queue.On("Enqueue", ctx, models.OutboxKindNotification, mock.Anything).
		Return(nil, errors.New("queue unavailable"))

	err := svc.Notify(ctx, notification)
	assert.ErrorIs(t, err, storeErr)
}

func TestNotificationService_Notify_BroadcastFailureIgnored(t *testing.T) {
	store, broadcaster, _, svc := newNotificationFixture()
	ctx := context.Background()
	userID := uuid.New()

	notification := &models.Notification{UserID: userID, Type: models.NotificationBookingConfirmed}
	store.On("Create", ctx, notification).Return(nil)
	broadcaster.On("BroadcastToUser", userID, models.NotificationBookingConfirmed, notification).
		Return(errors.New("socket closed"))

	err := svc.Notify(ctx, notification)
	assert.NoError(t, err)
}
