package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"location-service/internal/dispatch"
	"location-service/internal/repositories"
	"location-service/internal/telemetry"
)

// SOSHandler exposes the REST side of SOS: firing an alert without an open
// websocket, resolving one, and listing friends' active alerts.
type SOSHandler struct {
	dispatcher *dispatch.Dispatcher
	sos        repositories.SOSRepository
	audit      *telemetry.AuditEmitter
}

// NewSOSHandler builds an SOSHandler.
func NewSOSHandler(dispatcher *dispatch.Dispatcher, sos repositories.SOSRepository, audit *telemetry.AuditEmitter) *SOSHandler {
	return &SOSHandler{dispatcher: dispatcher, sos: sos, audit: audit}
}

func (h *SOSHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// Send fires an SOS through the dispatcher. The alert is persisted first;
// online audience members additionally get a realtime push.
func (h *SOSHandler) Send(c *gin.Context) {
	// Pointers so that 0.0 (equator, prime meridian) still binds.
	var req struct {
		Lat     *float64 `json:"lat" binding:"required"`
		Lng     *float64 `json:"lng" binding:"required"`
		Message string   `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetInt("userID")

	alert, notified, err := h.dispatcher.BroadcastSOS(c.Request.Context(), userID, *req.Lat, *req.Lng, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send SOS"})
		return
	}

	h.emitAudit(c, "WARN", "SOS alert raised")
	c.JSON(http.StatusOK, gin.H{"success": true, "sos_id": alert.ID, "notified": notified})
}

// Resolve deactivates one of the caller's own active alerts.
func (h *SOSHandler) Resolve(c *gin.Context) {
	alertID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}
	userID := c.GetInt("userID")

	if err := h.sos.ResolveAlert(c.Request.Context(), alertID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrAlertNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "alert not found"})
		return
	}

	h.emitAudit(c, "INFO", "SOS alert resolved")
	c.Status(http.StatusNoContent)
}

// Active lists still-active alerts raised by the caller's friends.
func (h *SOSHandler) Active(c *gin.Context) {
	userID := c.GetInt("userID")

	alerts, err := h.sos.ActiveAlertsFor(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}
