package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"location-service/internal/models"
	"location-service/internal/privacy"
	"location-service/internal/repositories"
)

// FriendHandler manages the friend list and the request flow.
type FriendHandler struct {
	friends       repositories.FriendRepository
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	gate          *privacy.Gate
}

// NewFriendHandler builds a FriendHandler.
func NewFriendHandler(
	friends repositories.FriendRepository,
	users repositories.UserRepository,
	notifications repositories.NotificationRepository,
	gate *privacy.Gate,
) *FriendHandler {
	return &FriendHandler{friends: friends, users: users, notifications: notifications, gate: gate}
}

// ListFriends returns the caller's friends with ghost-gated locations: a
// friend currently in ghost mode shows up without coordinates.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := c.GetInt("userID")

	friends, err := h.friends.ListFriends(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}

	infos := make([]models.FriendInfo, 0, len(friends))
	for _, f := range friends {
		visible := h.gate.EffectiveVisible(f.ID, models.Visibility{GhostMode: f.GhostMode, GhostModeUntil: f.GhostModeUntil})

		info := models.FriendInfo{
			ID:          f.ID,
			Username:    f.Username,
			LastUpdate:  f.LastUpdate,
			IsGhostMode: !visible,
			IsOnline:    f.IsOnline,
			LastSeen:    f.LastSeen,
		}
		if visible && f.Latitude != nil && f.Longitude != nil {
			info.Location = &models.Location{Lat: *f.Latitude, Lng: *f.Longitude}
			if f.LastUpdate != nil {
				info.Location.Timestamp = *f.LastUpdate
			}
		}
		infos = append(infos, info)
	}

	c.JSON(http.StatusOK, gin.H{"friends": infos})
}

// SendRequest creates (or revives) a friend request, addressed by username
// or by user id.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req struct {
		FriendUsername string `json:"friend_username"`
		ReceiverID     int    `json:"receiver_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.FriendUsername == "" && req.ReceiverID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "friend_username or receiver_id is required"})
		return
	}

	userID := c.GetInt("userID")

	var receiver models.User
	var err error
	if req.ReceiverID != 0 {
		receiver, err = h.users.GetUser(c.Request.Context(), req.ReceiverID)
	} else {
		receiver, err = h.users.GetUserByUsername(c.Request.Context(), req.FriendUsername)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	if receiver.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot send a friend request to yourself"})
		return
	}

	if _, err := h.friends.CreateOrResetRequest(c.Request.Context(), userID, receiver.ID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyFriends):
			c.JSON(http.StatusBadRequest, gin.H{"error": "users are already friends"})
		case errors.Is(err, repositories.ErrRequestPending):
			c.JSON(http.StatusBadRequest, gin.H{"error": "a friend request is already pending"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send friend request"})
		}
		return
	}

	// The request row is the source of truth; the feed entry is best effort.
	sender, err := h.users.GetUser(c.Request.Context(), userID)
	if err == nil {
		_, _ = h.notifications.Create(c.Request.Context(), receiver.ID, models.NotificationFriendRequest,
			"New friend request", sender.Username+" wants to be your friend", &userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"receiver": gin.H{"id": receiver.ID, "username": receiver.Username},
	})
}

// ListRequests returns pending requests, received and sent.
func (h *FriendHandler) ListRequests(c *gin.Context) {
	userID := c.GetInt("userID")

	received, err := h.friends.ListReceivedRequests(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friend requests"})
		return
	}
	sent, err := h.friends.ListSentRequests(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friend requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": received, "sent": sent})
}

// AcceptRequest accepts a pending request addressed to the caller; both
// edge rows are created atomically by the repository.
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	userID := c.GetInt("userID")

	req, err := h.friends.AcceptRequest(c.Request.Context(), requestID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "friend request not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"friend": gin.H{"id": req.SenderID}})
}

// RejectRequest rejects a pending request, or cancels one the caller sent.
func (h *FriendHandler) RejectRequest(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	userID := c.GetInt("userID")

	if err := h.friends.RejectRequest(c.Request.Context(), requestID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "friend request not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveFriend removes the friendship; both directed rows go together.
func (h *FriendHandler) RemoveFriend(c *gin.Context) {
	friendID, err := strconv.Atoi(c.Param("friend_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}
	userID := c.GetInt("userID")

	if err := h.friends.RemoveFriendEdge(c.Request.Context(), userID, friendID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrFriendshipNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "friendship not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
