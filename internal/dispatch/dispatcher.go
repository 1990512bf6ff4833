package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"location-service/internal/models"
	"location-service/internal/observability"
	"location-service/internal/presence"
	"location-service/internal/repositories"
)

const sosTitle = "SOS emergency!"

// Visibility is the slice of the privacy gate the dispatcher needs.
type Visibility interface {
	IsVisible(ctx context.Context, userID int) (bool, error)
}

// Dispatcher computes the audience for each event class, persists first,
// then pushes to whatever live connections the audience members hold.
// Persistence failures abort the operation; push failures evict the broken
// connection and never bubble up to the sender.
type Dispatcher struct {
	registry      *presence.Registry
	gate          Visibility
	users         repositories.UserRepository
	friends       repositories.FriendRepository
	messages      repositories.MessageRepository
	sos           repositories.SOSRepository
	notifications repositories.NotificationRepository
	parental      repositories.ParentalRepository
	log           *zap.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(
	registry *presence.Registry,
	gate Visibility,
	users repositories.UserRepository,
	friends repositories.FriendRepository,
	messages repositories.MessageRepository,
	sos repositories.SOSRepository,
	notifications repositories.NotificationRepository,
	parental repositories.ParentalRepository,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:      registry,
		gate:          gate,
		users:         users,
		friends:       friends,
		messages:      messages,
		sos:           sos,
		notifications: notifications,
		parental:      parental,
		log:           logger,
	}
}

// BroadcastLocation persists the sample and, if the sender is visible,
// pushes it to every friend with a live connection. Offline friends are
// skipped; there is no queued delivery for location updates. The sample is
// persisted even when ghost mode suppresses the broadcast, so the sender
// still sees their own trail.
func (d *Dispatcher) BroadcastLocation(ctx context.Context, userID int, lat, lng float64) error {
	if err := d.users.SaveLocation(ctx, userID, lat, lng, time.Now().UTC()); err != nil {
		return fmt.Errorf("save location: %w", err)
	}

	visible, err := d.gate.IsVisible(ctx, userID)
	if err != nil {
		return fmt.Errorf("check visibility: %w", err)
	}
	if !visible {
		return nil
	}

	friendIDs, err := d.friends.GetFriendIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("load friends: %w", err)
	}

	event := models.Event{
		Type:     models.EventLocationUpdate,
		Location: &models.LocationPush{FriendID: userID, Lat: lat, Lng: lng},
	}
	d.fanOut(friendIDs, event)
	return nil
}

// DeliverChat persists the message, pushes the persisted record to the
// receiver's live connections, and returns it so the transport can ack the
// sender. An offline receiver recovers the message through the history
// fetch; nothing is queued here.
func (d *Dispatcher) DeliverChat(ctx context.Context, senderID, receiverID int, text string) (models.Message, error) {
	msg, err := d.messages.CreateMessage(ctx, senderID, receiverID, text)
	if err != nil {
		return models.Message{}, fmt.Errorf("persist message: %w", err)
	}

	d.fanOut([]int{receiverID}, models.Event{Type: models.EventNewMessage, Message: &msg})
	return msg, nil
}

// BroadcastSOS persists the alert, then reaches the union of the sender's
// friends and accepted parents: a durable notification for everyone, plus a
// real-time push for members currently online. Ghost mode never suppresses
// SOS. Returns the alert and the audience size.
func (d *Dispatcher) BroadcastSOS(ctx context.Context, userID int, lat, lng float64, message string) (models.SOSAlert, int, error) {
	if strings.TrimSpace(message) == "" {
		message = "I need help!"
	}

	alert, err := d.sos.CreateAlert(ctx, userID, lat, lng, message)
	if err != nil {
		return models.SOSAlert{}, 0, fmt.Errorf("persist sos alert: %w", err)
	}

	sender, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return models.SOSAlert{}, 0, fmt.Errorf("load sender: %w", err)
	}

	friendIDs, err := d.friends.GetFriendIDs(ctx, userID)
	if err != nil {
		return models.SOSAlert{}, 0, fmt.Errorf("load friends: %w", err)
	}
	parentIDs, err := d.parental.GetAcceptedParentIDs(ctx, userID)
	if err != nil {
		return models.SOSAlert{}, 0, fmt.Errorf("load parents: %w", err)
	}
	audience := union(friendIDs, parentIDs)

	event := models.Event{
		Type: models.EventSOSAlert,
		SOS: &models.SOSPush{
			FromUserID:   userID,
			FromUsername: sender.Username,
			Lat:          lat,
			Lng:          lng,
			Message:      message,
			Timestamp:    alert.CreatedAt,
		},
	}
	body := fmt.Sprintf("%s needs help! %s", sender.Username, message)

	var wg sync.WaitGroup
	for _, memberID := range audience {
		wg.Add(1)
		go func(memberID int) {
			defer wg.Done()

			if _, err := d.notifications.Create(ctx, memberID, models.NotificationSOS, sosTitle, body, &userID); err != nil {
				// Isolated per member: the push is still attempted and the
				// remaining audience is unaffected.
				d.log.Error("sos notification persist failed",
					zap.Int("user_id", memberID),
					zap.Int("sos_id", alert.ID),
					zap.Error(err))
			}
			for _, conn := range d.registry.ConnectionsFor(memberID) {
				d.push(memberID, conn, event)
			}
		}(memberID)
	}
	wg.Wait()

	return alert, len(audience), nil
}

// fanOut pushes one event to every live connection of every audience
// member. The connection sets are copied out of the registry before any
// write happens; members without connections are skipped silently.
func (d *Dispatcher) fanOut(userIDs []int, event models.Event) {
	var wg sync.WaitGroup
	for _, userID := range userIDs {
		for _, conn := range d.registry.ConnectionsFor(userID) {
			wg.Add(1)
			go func(userID int, conn presence.Conn) {
				defer wg.Done()
				d.push(userID, conn, event)
			}(userID, conn)
		}
	}
	wg.Wait()
}

// push writes to a single connection. A failed or timed-out write means the
// connection is as good as gone: evict it and move on.
func (d *Dispatcher) push(userID int, conn presence.Conn, event models.Event) {
	if err := conn.Send(event); err != nil {
		d.log.Warn("push failed",
			zap.Int("user_id", userID),
			zap.String("event", event.Type),
			zap.Error(err))
		observability.IncPushEvent(event.Type, "failed")
		d.registry.Leave(conn)
		_ = conn.Close()
		return
	}
	observability.IncPushEvent(event.Type, "delivered")
}

func union(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
