package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"location-service/internal/mocks"
	"location-service/internal/models"
	"location-service/internal/privacy"
	"location-service/internal/repositories"
)

func setupFriendRouter(handler *FriendHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/friends", handler.ListFriends)
	r.POST("/friends/request", handler.SendRequest)
	r.GET("/friends/requests", handler.ListRequests)
	r.POST("/friends/accept/:request_id", handler.AcceptRequest)
	r.POST("/friends/reject/:request_id", handler.RejectRequest)
	r.DELETE("/friends/:friend_id", handler.RemoveFriend)
	return r
}

func newFriendHandler(friends *mocks.FriendRepositoryMock, users *mocks.UserRepositoryMock, notifications *mocks.NotificationRepositoryMock) *FriendHandler {
	gate := privacy.NewGate(users, zap.NewNop())
	return NewFriendHandler(friends, users, notifications, gate)
}

func TestListFriendsGatesGhostedLocations(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	handler := newFriendHandler(friends, users, notifications)
	router := setupFriendRouter(handler)

	lat, lng := 48.85, 2.35
	until := time.Now().Add(time.Hour)
	friends.On("ListFriends", mock.Anything, 1).Return([]models.User{
		{ID: 2, Username: "bob", Latitude: &lat, Longitude: &lng},
		{ID: 3, Username: "carol", Latitude: &lat, Longitude: &lng, GhostMode: true, GhostModeUntil: &until},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Friends []models.FriendInfo `json:"friends"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Friends, 2)

	assert.NotNil(t, resp.Friends[0].Location)
	assert.False(t, resp.Friends[0].IsGhostMode)

	assert.Nil(t, resp.Friends[1].Location)
	assert.True(t, resp.Friends[1].IsGhostMode)

	friends.AssertExpectations(t)
}

func TestListFriendsExpiredGhostShowsLocation(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	handler := newFriendHandler(friends, users, notifications)
	router := setupFriendRouter(handler)

	lat, lng := 1.0, 2.0
	past := time.Now().Add(-time.Minute)
	friends.On("ListFriends", mock.Anything, 1).Return([]models.User{
		{ID: 2, Username: "bob", Latitude: &lat, Longitude: &lng, GhostMode: true, GhostModeUntil: &past},
	}, nil).Once()
	// The stale flag kicks off a background correction.
	users.On("SetVisibility", mock.Anything, 2, mock.Anything).Return(nil).Maybe()

	req := httptest.NewRequest(http.MethodGet, "/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Friends []models.FriendInfo `json:"friends"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Friends, 1)
	assert.NotNil(t, resp.Friends[0].Location)
	assert.False(t, resp.Friends[0].IsGhostMode)
}

func TestSendRequestByUsername(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	handler := newFriendHandler(friends, users, notifications)
	router := setupFriendRouter(handler)

	users.On("GetUserByUsername", mock.Anything, "bob").Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	friends.On("CreateOrResetRequest", mock.Anything, 1, 2).Return(models.FriendRequest{ID: 10, SenderID: 1, ReceiverID: 2}, nil).Once()
	users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	notifications.On("Create", mock.Anything, 2, models.NotificationFriendRequest, mock.Anything, mock.Anything, mock.Anything).
		Return(models.Notification{}, nil).Once()

	body := bytes.NewBufferString(`{"friend_username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	friends.AssertExpectations(t)
	users.AssertExpectations(t)
	notifications.AssertExpectations(t)
}

func TestSendRequestToSelf(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	handler := newFriendHandler(friends, users, notifications)
	router := setupFriendRouter(handler)

	users.On("GetUserByUsername", mock.Anything, "me").Return(models.User{ID: 1, Username: "me"}, nil).Once()

	body := bytes.NewBufferString(`{"friend_username":"me"}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	friends.AssertNotCalled(t, "CreateOrResetRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendRequestUnknownUser(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	handler := newFriendHandler(friends, users, notifications)
	router := setupFriendRouter(handler)

	users.On("GetUserByUsername", mock.Anything, "ghost").Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"friend_username":"ghost"}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendRequestAlreadyFriends(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	handler := newFriendHandler(friends, users, notifications)
	router := setupFriendRouter(handler)

	users.On("GetUserByUsername", mock.Anything, "bob").Return(models.User{ID: 2}, nil).Once()
	friends.On("CreateOrResetRequest", mock.Anything, 1, 2).Return(models.FriendRequest{}, repositories.ErrAlreadyFriends).Once()

	body := bytes.NewBufferString(`{"friend_username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptRequestSuccess(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	handler := newFriendHandler(friends, users, notifications)
	router := setupFriendRouter(handler)

	friends.On("AcceptRequest", mock.Anything, 10, 1).Return(models.FriendRequest{ID: 10, SenderID: 2, ReceiverID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/accept/10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	friends.AssertExpectations(t)
}

func TestAcceptRequestNotFound(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	handler := newFriendHandler(friends, users, notifications)
	router := setupFriendRouter(handler)

	friends.On("AcceptRequest", mock.Anything, 99, 1).Return(models.FriendRequest{}, repositories.ErrRequestNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/accept/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveFriendSuccess(t *testing.T) {
	friends := new(mocks.FriendRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	handler := newFriendHandler(friends, users, notifications)
	router := setupFriendRouter(handler)

	friends.On("RemoveFriendEdge", mock.Anything, 1, 2).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/friends/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	friends.AssertExpectations(t)
}
