package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"location-service/internal/auth"
	"location-service/internal/dispatch"
	"location-service/internal/models"
	"location-service/internal/observability"
	"location-service/internal/presence"
	"location-service/internal/repositories"
)

const (
	defaultWriteWait = 5 * time.Second
	eventTimeout     = 10 * time.Second
)

// SocketHandler owns the per-connection lifecycle: handshake, the
// unbound/bound state machine, inbound event dispatch, and the
// unconditional registry cleanup on close.
type SocketHandler struct {
	registry   *presence.Registry
	dispatcher *dispatch.Dispatcher
	friends    repositories.FriendRepository
	users      repositories.UserRepository
	verifier   *auth.Verifier
	log        *zap.Logger
	writeWait  time.Duration
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(
	registry *presence.Registry,
	dispatcher *dispatch.Dispatcher,
	friends repositories.FriendRepository,
	users repositories.UserRepository,
	verifier *auth.Verifier,
	logger *zap.Logger,
) *SocketHandler {
	return &SocketHandler{
		registry:   registry,
		dispatcher: dispatcher,
		friends:    friends,
		users:      users,
		verifier:   verifier,
		log:        logger,
		writeWait:  defaultWriteWait,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the handshake, upgrades the connection and starts
// its read loop. The connection stays unbound until the client sends a
// join event.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("location-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	cl := &client{
		conn:      conn,
		writeWait: h.writeWait,
		info: ConnInfo{
			ConnID:      newConnID(),
			UserID:      userID,
			DeviceID:    observability.DeviceIDFromRequest(c.Request),
			IP:          observability.IPFromRequest(c.Request),
			RequestID:   observability.RequestIDFromRequest(c.Request),
			TraceID:     span.SpanContext().TraceID().String(),
			ConnectedAt: time.Now(),
		},
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishLifecycleEvent(ctx, cl.info, "ws_connect", "")

	go h.readLoop(ctx, cl, userID)
}

// readLoop drives the connection state machine until the transport closes.
// The deferred cleanup runs exactly once, whether or not the connection
// ever joined.
func (h *SocketHandler) readLoop(ctx context.Context, cl *client, authUserID int) {
	// The handshake request context dies when the HTTP handler returns;
	// everything below must outlive it.
	ctx = context.WithoutCancel(ctx)

	var closeReason string
	defer func() {
		h.registry.Leave(cl)
		// Another session may still be live; only the last connection
		// flips the user offline.
		if cl.userID != 0 && !h.registry.Online(cl.userID) {
			offCtx, cancel := context.WithTimeout(ctx, eventTimeout)
			if err := h.users.SetOnline(offCtx, cl.userID, false); err != nil {
				h.log.Warn("offline transition failed", zap.Int("user_id", cl.userID), zap.Error(err))
			}
			cancel()
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishLifecycleEvent(ctx, cl.info, "ws_disconnect", closeReason)
		_ = cl.Close()
	}()

	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishLifecycleEvent(ctx, cl.info, "ws_error", closeReason)
			}
			return
		}

		var evt inboundEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			_ = cl.Send(models.Event{Type: models.EventError, Error: "malformed event"})
			continue
		}

		observability.IncWSEvent(evt.Type)
		evtCtx, cancel := context.WithTimeout(ctx, eventTimeout)
		h.handleEvent(evtCtx, cl, authUserID, evt)
		cancel()
	}
}

func (h *SocketHandler) handleEvent(ctx context.Context, cl *client, authUserID int, evt inboundEvent) {
	switch evt.Type {
	case actionJoin:
		h.handleJoin(ctx, cl, authUserID, evt)

	case actionUpdateLocation:
		if !h.requireBound(cl) {
			return
		}
		if err := h.dispatcher.BroadcastLocation(ctx, cl.userID, evt.Lat, evt.Lng); err != nil {
			h.log.Error("location broadcast failed", zap.Int("user_id", cl.userID), zap.Error(err))
			_ = cl.Send(models.Event{Type: models.EventError, Error: "could not update location"})
		}

	case actionSendMessage:
		if !h.requireBound(cl) {
			return
		}
		h.handleSendMessage(ctx, cl, evt)

	case actionSendSOS:
		if !h.requireBound(cl) {
			return
		}
		alert, notified, err := h.dispatcher.BroadcastSOS(ctx, cl.userID, evt.Lat, evt.Lng, evt.Message)
		if err != nil {
			h.log.Error("sos broadcast failed", zap.Int("user_id", cl.userID), zap.Error(err))
			_ = cl.Send(models.Event{Type: models.EventSOSError, Error: "could not send SOS"})
			return
		}
		_ = cl.Send(models.Event{Type: models.EventSOSSent, Extra: map[string]any{
			"success":  true,
			"sosId":    alert.ID,
			"notified": notified,
		}})

	default:
		_ = cl.Send(models.Event{Type: models.EventError, Error: "unknown event type"})
	}
}

// handleJoin binds the connection. Without a token the handshake identity
// is used; with one, the connection rebinds to whoever the token names,
// and the registry drops the old registration.
func (h *SocketHandler) handleJoin(ctx context.Context, cl *client, authUserID int, evt inboundEvent) {
	userID := authUserID
	if evt.Token != "" {
		id, err := h.verifier.Verify(evt.Token)
		if err != nil {
			_ = cl.Send(models.Event{Type: models.EventError, Error: "invalid token"})
			return
		}
		userID = id
	}

	prev := cl.userID
	h.registry.Join(userID, cl)
	cl.userID = userID

	if prev != 0 && prev != userID && !h.registry.Online(prev) {
		if err := h.users.SetOnline(ctx, prev, false); err != nil {
			h.log.Warn("offline transition failed", zap.Int("user_id", prev), zap.Error(err))
		}
	}
	if err := h.users.SetOnline(ctx, userID, true); err != nil {
		h.log.Warn("online transition failed", zap.Int("user_id", userID), zap.Error(err))
	}
	h.log.Info("user joined", zap.Int("user_id", userID), zap.String("conn_id", cl.info.ConnID))
	_ = cl.Send(models.Event{Type: models.EventJoined, Extra: map[string]any{"userId": userID}})
}

func (h *SocketHandler) handleSendMessage(ctx context.Context, cl *client, evt inboundEvent) {
	if evt.ReceiverID == 0 || strings.TrimSpace(evt.Message) == "" {
		_ = cl.Send(models.Event{Type: models.EventMessageError, Error: "receiverId and message are required"})
		return
	}

	friends, err := h.friends.AreFriends(ctx, cl.userID, evt.ReceiverID)
	if err != nil {
		h.log.Error("friendship check failed", zap.Int("user_id", cl.userID), zap.Error(err))
		_ = cl.Send(models.Event{Type: models.EventMessageError, Error: "could not send message"})
		return
	}
	if !friends {
		_ = cl.Send(models.Event{Type: models.EventMessageError, Error: "users are not friends"})
		return
	}

	msg, err := h.dispatcher.DeliverChat(ctx, cl.userID, evt.ReceiverID, evt.Message)
	if err != nil {
		h.log.Error("chat delivery failed", zap.Int("user_id", cl.userID), zap.Error(err))
		_ = cl.Send(models.Event{Type: models.EventMessageError, Error: "could not send message"})
		return
	}
	_ = cl.Send(models.Event{Type: models.EventMessageSent, Message: &msg})
}

// requireBound rejects events from connections that have not joined.
func (h *SocketHandler) requireBound(cl *client) bool {
	if cl.userID == 0 {
		_ = cl.Send(models.Event{Type: models.EventError, Error: "join required"})
		return false
	}
	return true
}

func (h *SocketHandler) validateToken(header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.verifier.Verify(parts[1])
	}
	return 0, auth.ErrInvalidToken
}

func publishLifecycleEvent(ctx context.Context, info ConnInfo, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	envelope := observability.NewEnvelope("ws_events", event, payload)
	_ = observability.PublishEvent(ctx, "ws_events.location", envelope, headers)
}
