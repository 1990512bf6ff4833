package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"location-service/internal/repositories"
)

// NotificationHandler serves the durable notification feed.
type NotificationHandler struct {
	notifications repositories.NotificationRepository
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(notifications repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns one page of the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetInt("userID")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notifications, err := h.notifications.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead marks a single notification of the caller as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	userID := c.GetInt("userID")

	if err := h.notifications.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "notification not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkAllRead clears the caller's unread flags in one shot.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetInt("userID")

	if err := h.notifications.MarkAllRead(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark notifications read"})
		return
	}

	c.Status(http.StatusNoContent)
}

// UnreadCount returns how many notifications are still unread.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.GetInt("userID")

	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}
