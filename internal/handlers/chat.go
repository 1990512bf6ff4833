package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"location-service/internal/repositories"
)

// ChatHandler serves the pull-based message history. Real-time delivery
// happens over websockets; an offline receiver catches up here.
type ChatHandler struct {
	messages repositories.MessageRepository
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(messages repositories.MessageRepository) *ChatHandler {
	return &ChatHandler{messages: messages}
}

// GetMessages returns one page of the conversation with a friend.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	friendID, err := strconv.Atoi(c.Param("friend_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}
	userID := c.GetInt("userID")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	msgs, err := h.messages.GetConversation(c.Request.Context(), userID, friendID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// GetUnreadCount returns unread totals grouped by sender.
func (h *ChatHandler) GetUnreadCount(c *gin.Context) {
	userID := c.GetInt("userID")

	counts, total, err := h.messages.UnreadCounts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total_unread": total, "by_user": counts})
}

// MarkAsRead marks everything a friend sent to the caller as read.
func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	friendID, err := strconv.Atoi(c.Param("friend_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}
	userID := c.GetInt("userID")

	if err := h.messages.MarkConversationRead(c.Request.Context(), userID, friendID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark messages read"})
		return
	}

	c.Status(http.StatusNoContent)
}
