package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"location-service/internal/privacy"
	"location-service/internal/repositories"
	"location-service/internal/telemetry"
)

// UserHandler covers profile, search, plain location saves and ghost mode.
type UserHandler struct {
	users repositories.UserRepository
	gate  *privacy.Gate
	audit *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository, gate *privacy.Gate, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{users: users, gate: gate, audit: audit}
}

func (h *UserHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// GetProfile returns the caller's own profile including ghost fields.
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.GetInt("userID")

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// SearchUsers looks up users by partial username for the search bar.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	userID := c.GetInt("userID")

	users, err := h.users.SearchUsers(c.Request.Context(), query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	type result struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}
	results := make([]result, 0, len(users))
	for _, u := range users {
		results = append(results, result{ID: u.ID, Username: u.Username})
	}

	c.JSON(http.StatusOK, gin.H{"users": results})
}

// UpdateLocation persists a sample without broadcasting; the websocket path
// is the one that fans out.
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	// Pointers so that 0.0 (equator, prime meridian) still binds.
	var req struct {
		Lat *float64 `json:"lat" binding:"required"`
		Lng *float64 `json:"lng" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetInt("userID")

	if err := h.users.SaveLocation(c.Request.Context(), userID, *req.Lat, *req.Lng, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"location": gin.H{"lat": *req.Lat, "lng": *req.Lng}})
}

// SetGhostMode enables or disables ghost mode through the privacy gate.
func (h *UserHandler) SetGhostMode(c *gin.Context) {
	var req struct {
		Enabled  bool   `json:"enabled"`
		Duration string `json:"duration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetInt("userID")

	state, err := h.gate.SetGhostMode(c.Request.Context(), userID, req.Enabled, req.Duration)
	if err != nil {
		if errors.Is(err, privacy.ErrInvalidDuration) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be one of 1h, 8h, 24h, forever"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update ghost mode"})
		return
	}

	h.emitAudit(c, "INFO", "ghost mode updated")
	c.JSON(http.StatusOK, gin.H{
		"ghost_mode":       state.GhostMode,
		"ghost_mode_until": state.GhostModeUntil,
	})
}

// GhostModeStatus returns the effective ghost-mode state; an expired timer
// reads as disabled.
func (h *UserHandler) GhostModeStatus(c *gin.Context) {
	userID := c.GetInt("userID")

	state, err := h.gate.Status(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load ghost mode"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ghost_mode":       state.GhostMode,
		"ghost_mode_until": state.GhostModeUntil,
	})
}
