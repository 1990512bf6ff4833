package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"location-service/internal/mocks"
	"location-service/internal/models"
	"location-service/internal/repositories"
)

func setupNotificationRouter(handler *NotificationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/notifications", handler.List)
	r.POST("/notifications/read/:id", handler.MarkRead)
	r.POST("/notifications/read-all", handler.MarkAllRead)
	r.GET("/notifications/unread/count", handler.UnreadCount)
	return r
}

func TestListNotifications(t *testing.T) {
	notifications := new(mocks.NotificationRepositoryMock)
	handler := NewNotificationHandler(notifications)
	router := setupNotificationRouter(handler)

	notifications.On("List", mock.Anything, 1, 2, 10).Return([]models.Notification{
		{ID: 5, UserID: 1, Type: models.NotificationSOS, Title: "SOS Alert"},
		{ID: 4, UserID: 1, Type: models.NotificationFriendRequest, Title: "New friend request", IsRead: true},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/notifications?page=2&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Notifications, 2)
	assert.Equal(t, 5, resp.Notifications[0].ID)
	assert.False(t, resp.Notifications[0].IsRead)
	notifications.AssertExpectations(t)
}

func TestMarkNotificationRead(t *testing.T) {
	notifications := new(mocks.NotificationRepositoryMock)
	handler := NewNotificationHandler(notifications)
	router := setupNotificationRouter(handler)

	notifications.On("MarkRead", mock.Anything, 5, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/notifications/read/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	notifications.AssertExpectations(t)
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	notifications := new(mocks.NotificationRepositoryMock)
	handler := NewNotificationHandler(notifications)
	router := setupNotificationRouter(handler)

	notifications.On("MarkRead", mock.Anything, 99, 1).Return(repositories.ErrNotificationNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/notifications/read/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	notifications := new(mocks.NotificationRepositoryMock)
	handler := NewNotificationHandler(notifications)
	router := setupNotificationRouter(handler)

	notifications.On("MarkAllRead", mock.Anything, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	notifications.AssertExpectations(t)
}

func TestNotificationUnreadCount(t *testing.T) {
	notifications := new(mocks.NotificationRepositoryMock)
	handler := NewNotificationHandler(notifications)
	router := setupNotificationRouter(handler)

	notifications.On("UnreadCount", mock.Anything, 1).Return(3, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/notifications/unread/count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Unread int `json:"unread"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Unread)
}
