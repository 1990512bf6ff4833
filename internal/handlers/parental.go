package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"location-service/internal/models"
	"location-service/internal/repositories"
)

// ParentalHandler manages parent/child links. An accepted link shows the
// child's location regardless of ghost mode and adds the parent to the
// child's SOS audience.
type ParentalHandler struct {
	parental repositories.ParentalRepository
	users    repositories.UserRepository
}

// NewParentalHandler builds a ParentalHandler.
func NewParentalHandler(parental repositories.ParentalRepository, users repositories.UserRepository) *ParentalHandler {
	return &ParentalHandler{parental: parental, users: users}
}

// SendRequest asks to monitor a child, addressed by username. The link
// stays pending until the child accepts.
func (h *ParentalHandler) SendRequest(c *gin.Context) {
	var req struct {
		ChildUsername string `json:"child_username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetInt("userID")

	child, err := h.users.GetUserByUsername(c.Request.Context(), req.ChildUsername)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}
	if child.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot link to yourself"})
		return
	}

	link, err := h.parental.CreateLink(c.Request.Context(), userID, child.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrLinkExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a link to this user already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"link": link})
}

// GetChildren returns accepted children with their latest locations. Ghost
// mode does not hide a child from an accepted parent.
func (h *ParentalHandler) GetChildren(c *gin.Context) {
	userID := c.GetInt("userID")

	children, err := h.parental.ListChildren(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load children"})
		return
	}

	infos := make([]models.ChildInfo, 0, len(children))
	for _, child := range children {
		info := models.ChildInfo{
			ID:         child.ID,
			Username:   child.Username,
			LastUpdate: child.LastUpdate,
			IsOnline:   child.IsOnline,
			LastSeen:   child.LastSeen,
		}
		if child.Latitude != nil && child.Longitude != nil {
			info.Location = &models.Location{Lat: *child.Latitude, Lng: *child.Longitude}
			if child.LastUpdate != nil {
				info.Location.Timestamp = *child.LastUpdate
			}
		}
		infos = append(infos, info)
	}

	c.JSON(http.StatusOK, gin.H{"children": infos})
}

// GetRequests returns pending link requests addressed to the caller.
func (h *ParentalHandler) GetRequests(c *gin.Context) {
	userID := c.GetInt("userID")

	requests, err := h.parental.ListPendingRequests(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load link requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// Accept confirms a pending link; only the child can accept.
func (h *ParentalHandler) Accept(c *gin.Context) {
	linkID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link id"})
		return
	}
	userID := c.GetInt("userID")

	if err := h.parental.AcceptLink(c.Request.Context(), linkID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrLinkNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "link request not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Reject declines a pending link; only the child can reject.
func (h *ParentalHandler) Reject(c *gin.Context) {
	linkID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link id"})
		return
	}
	userID := c.GetInt("userID")

	if err := h.parental.RejectLink(c.Request.Context(), linkID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrLinkNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "link request not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
