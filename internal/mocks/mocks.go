package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"location-service/internal/models"
	"location-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) SearchUsers(ctx context.Context, query string, excludeID int) ([]models.User, error) {
	args := m.Called(ctx, query, excludeID)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) GetVisibility(ctx context.Context, userID int) (models.Visibility, error) {
	args := m.Called(ctx, userID)
	var vis models.Visibility
	if val := args.Get(0); val != nil {
		vis = val.(models.Visibility)
	}
	return vis, args.Error(1)
}

func (m *UserRepositoryMock) SetVisibility(ctx context.Context, userID int, vis models.Visibility) error {
	args := m.Called(ctx, userID, vis)
	return args.Error(0)
}

func (m *UserRepositoryMock) SaveLocation(ctx context.Context, userID int, lat, lng float64, at time.Time) error {
	args := m.Called(ctx, userID, lat, lng, at)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetOnline(ctx context.Context, userID int, online bool) error {
	args := m.Called(ctx, userID, online)
	return args.Error(0)
}

type FriendRepositoryMock struct {
	mock.Mock
}

func (m *FriendRepositoryMock) GetFriendIDs(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *FriendRepositoryMock) AreFriends(ctx context.Context, userID, friendID int) (bool, error) {
	args := m.Called(ctx, userID, friendID)
	return args.Bool(0), args.Error(1)
}

func (m *FriendRepositoryMock) ListFriends(ctx context.Context, userID int) ([]models.User, error) {
	args := m.Called(ctx, userID)
	var friends []models.User
	if val := args.Get(0); val != nil {
		friends = val.([]models.User)
	}
	return friends, args.Error(1)
}

func (m *FriendRepositoryMock) AddFriendEdge(ctx context.Context, userID, friendID int) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) RemoveFriendEdge(ctx context.Context, userID, friendID int) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) CreateOrResetRequest(ctx context.Context, senderID, receiverID int) (models.FriendRequest, error) {
	args := m.Called(ctx, senderID, receiverID)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendRepositoryMock) ListReceivedRequests(ctx context.Context, userID int) ([]models.FriendRequestView, error) {
	args := m.Called(ctx, userID)
	var reqs []models.FriendRequestView
	if val := args.Get(0); val != nil {
		reqs = val.([]models.FriendRequestView)
	}
	return reqs, args.Error(1)
}

func (m *FriendRepositoryMock) ListSentRequests(ctx context.Context, userID int) ([]models.FriendRequestView, error) {
	args := m.Called(ctx, userID)
	var reqs []models.FriendRequestView
	if val := args.Get(0); val != nil {
		reqs = val.([]models.FriendRequestView)
	}
	return reqs, args.Error(1)
}

func (m *FriendRepositoryMock) AcceptRequest(ctx context.Context, requestID, receiverID int) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID, receiverID)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendRepositoryMock) RejectRequest(ctx context.Context, requestID, userID int) error {
	args := m.Called(ctx, requestID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, senderID, receiverID int, text string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetConversation(ctx context.Context, userID, friendID, page, limit int) ([]models.Message, error) {
	args := m.Called(ctx, userID, friendID, page, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkConversationRead(ctx context.Context, userID, friendID int) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) UnreadCounts(ctx context.Context, userID int) ([]models.UnreadCount, int, error) {
	args := m.Called(ctx, userID)
	var counts []models.UnreadCount
	if val := args.Get(0); val != nil {
		counts = val.([]models.UnreadCount)
	}
	return counts, args.Int(1), args.Error(2)
}

type SOSRepositoryMock struct {
	mock.Mock
}

func (m *SOSRepositoryMock) CreateAlert(ctx context.Context, userID int, lat, lng float64, message string) (models.SOSAlert, error) {
	args := m.Called(ctx, userID, lat, lng, message)
	var alert models.SOSAlert
	if val := args.Get(0); val != nil {
		alert = val.(models.SOSAlert)
	}
	return alert, args.Error(1)
}

func (m *SOSRepositoryMock) ResolveAlert(ctx context.Context, alertID, userID int) error {
	args := m.Called(ctx, alertID, userID)
	return args.Error(0)
}

func (m *SOSRepositoryMock) ActiveAlertsFor(ctx context.Context, userID int) ([]models.SOSAlertView, error) {
	args := m.Called(ctx, userID)
	var alerts []models.SOSAlertView
	if val := args.Get(0); val != nil {
		alerts = val.([]models.SOSAlertView)
	}
	return alerts, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, userID int, notifType, title, message string, relatedUserID *int) (models.Notification, error) {
	args := m.Called(ctx, userID, notifType, title, message, relatedUserID)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationRepositoryMock) List(ctx context.Context, userID, page, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, page, limit)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, notificationID, userID int) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) UnreadCount(ctx context.Context, userID int) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type ParentalRepositoryMock struct {
	mock.Mock
}

func (m *ParentalRepositoryMock) GetAcceptedParentIDs(ctx context.Context, childID int) ([]int, error) {
	args := m.Called(ctx, childID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *ParentalRepositoryMock) CreateLink(ctx context.Context, parentID, childID int) (models.ParentalLink, error) {
	args := m.Called(ctx, parentID, childID)
	var link models.ParentalLink
	if val := args.Get(0); val != nil {
		link = val.(models.ParentalLink)
	}
	return link, args.Error(1)
}

func (m *ParentalRepositoryMock) ListChildren(ctx context.Context, parentID int) ([]models.User, error) {
	args := m.Called(ctx, parentID)
	var children []models.User
	if val := args.Get(0); val != nil {
		children = val.([]models.User)
	}
	return children, args.Error(1)
}

func (m *ParentalRepositoryMock) ListPendingRequests(ctx context.Context, childID int) ([]models.FriendRequestView, error) {
	args := m.Called(ctx, childID)
	var reqs []models.FriendRequestView
	if val := args.Get(0); val != nil {
		reqs = val.([]models.FriendRequestView)
	}
	return reqs, args.Error(1)
}

func (m *ParentalRepositoryMock) AcceptLink(ctx context.Context, linkID, childID int) error {
	args := m.Called(ctx, linkID, childID)
	return args.Error(0)
}

func (m *ParentalRepositoryMock) RejectLink(ctx context.Context, linkID, childID int) error {
	args := m.Called(ctx, linkID, childID)
	return args.Error(0)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.FriendRepository = (*FriendRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.SOSRepository = (*SOSRepositoryMock)(nil)
var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
var _ repositories.ParentalRepository = (*ParentalRepositoryMock)(nil)
