package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"location-service/internal/mocks"
	"location-service/internal/models"
	"location-service/internal/privacy"
)

func setupUserRouter(handler *UserHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/users/profile", handler.GetProfile)
	r.GET("/users/search", handler.SearchUsers)
	r.POST("/users/ghost-mode", handler.SetGhostMode)
	r.GET("/users/ghost-mode", handler.GhostModeStatus)
	r.POST("/location", handler.UpdateLocation)
	return r
}

func newUserHandler(users *mocks.UserRepositoryMock) *UserHandler {
	return NewUserHandler(users, privacy.NewGate(users, zap.NewNop()), nil)
}

func TestGetProfile(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := newUserHandler(users)
	router := setupUserRouter(handler)

	users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var user models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	assert.Equal(t, "alice", user.Username)
}

func TestSearchUsersRequiresQuery(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := newUserHandler(users)
	router := setupUserRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/users/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "SearchUsers", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchUsersReturnsMatches(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := newUserHandler(users)
	router := setupUserRouter(handler)

	users.On("SearchUsers", mock.Anything, "bo", 1).Return([]models.User{{ID: 2, Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/search?q=bo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []struct {
			ID       int    `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "bob", resp.Users[0].Username)
}

func TestUpdateLocationPersists(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := newUserHandler(users)
	router := setupUserRouter(handler)

	users.On("SaveLocation", mock.Anything, 1, 10.0, 20.0, mock.Anything).Return(nil).Once()

	body := bytes.NewBufferString(`{"lat":10.0,"lng":20.0}`)
	req := httptest.NewRequest(http.MethodPost, "/location", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}

func TestUpdateLocationZeroCoordinates(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := newUserHandler(users)
	router := setupUserRouter(handler)

	users.On("SaveLocation", mock.Anything, 1, 0.0, 0.0, mock.Anything).Return(nil).Once()

	// Null Island is a legitimate position.
	body := bytes.NewBufferString(`{"lat":0,"lng":0}`)
	req := httptest.NewRequest(http.MethodPost, "/location", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}

func TestUpdateLocationMissingCoordinate(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := newUserHandler(users)
	router := setupUserRouter(handler)

	body := bytes.NewBufferString(`{"lat":10.0}`)
	req := httptest.NewRequest(http.MethodPost, "/location", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "SaveLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetGhostModeEnabled(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := newUserHandler(users)
	router := setupUserRouter(handler)

	users.On("SetVisibility", mock.Anything, 1, mock.MatchedBy(func(v models.Visibility) bool {
		return v.GhostMode && v.GhostModeUntil != nil
	})).Return(nil).Once()

	body := bytes.NewBufferString(`{"enabled":true,"duration":"1h"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/ghost-mode", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["ghost_mode"])
	assert.NotNil(t, resp["ghost_mode_until"])
	users.AssertExpectations(t)
}

func TestSetGhostModeInvalidDuration(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := newUserHandler(users)
	router := setupUserRouter(handler)

	body := bytes.NewBufferString(`{"enabled":true,"duration":"5m"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/ghost-mode", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "SetVisibility", mock.Anything, mock.Anything, mock.Anything)
}

func TestGhostModeStatus(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := newUserHandler(users)
	router := setupUserRouter(handler)

	users.On("GetVisibility", mock.Anything, 1).Return(models.Visibility{GhostMode: true}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/ghost-mode", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["ghost_mode"])
}
