package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"location-service/internal/mocks"
	"location-service/internal/models"
	"location-service/internal/presence"
)

type recordingConn struct {
	mu      sync.Mutex
	events  []models.Event
	sendErr error
	closed  bool
}

func (c *recordingConn) Send(event models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, event)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) received() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Event, len(c.events))
	copy(out, c.events)
	return out
}

type staticGate struct {
	visible bool
	err     error
}

func (g staticGate) IsVisible(ctx context.Context, userID int) (bool, error) {
	return g.visible, g.err
}

type dispatcherFixture struct {
	registry      *presence.Registry
	users         *mocks.UserRepositoryMock
	friends       *mocks.FriendRepositoryMock
	messages      *mocks.MessageRepositoryMock
	sos           *mocks.SOSRepositoryMock
	notifications *mocks.NotificationRepositoryMock
	parental      *mocks.ParentalRepositoryMock
}

func newFixture() *dispatcherFixture {
	return &dispatcherFixture{
		registry:      presence.NewRegistry(),
		users:         new(mocks.UserRepositoryMock),
		friends:       new(mocks.FriendRepositoryMock),
		messages:      new(mocks.MessageRepositoryMock),
		sos:           new(mocks.SOSRepositoryMock),
		notifications: new(mocks.NotificationRepositoryMock),
		parental:      new(mocks.ParentalRepositoryMock),
	}
}

func (f *dispatcherFixture) dispatcher(gate Visibility) *Dispatcher {
	return NewDispatcher(f.registry, gate, f.users, f.friends, f.messages, f.sos, f.notifications, f.parental, zap.NewNop())
}

func TestBroadcastLocationPushesToOnlineFriends(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	friendConn := &recordingConn{}
	f.registry.Join(2, friendConn)

	f.users.On("SaveLocation", mock.Anything, 1, 10.5, 20.5, mock.Anything).Return(nil).Once()
	f.friends.On("GetFriendIDs", mock.Anything, 1).Return([]int{2, 3}, nil).Once()

	require.NoError(t, d.BroadcastLocation(context.Background(), 1, 10.5, 20.5))

	events := friendConn.received()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventLocationUpdate, events[0].Type)
	require.NotNil(t, events[0].Location)
	assert.Equal(t, 1, events[0].Location.FriendID)
	assert.Equal(t, 10.5, events[0].Location.Lat)
	assert.Equal(t, 20.5, events[0].Location.Lng)

	f.users.AssertExpectations(t)
	f.friends.AssertExpectations(t)
}

func TestBroadcastLocationGhostModePersistsWithoutPush(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: false})

	friendConn := &recordingConn{}
	f.registry.Join(2, friendConn)

	f.users.On("SaveLocation", mock.Anything, 1, 10.5, 20.5, mock.Anything).Return(nil).Once()

	require.NoError(t, d.BroadcastLocation(context.Background(), 1, 10.5, 20.5))

	assert.Empty(t, friendConn.received())
	f.users.AssertExpectations(t)
	f.friends.AssertNotCalled(t, "GetFriendIDs", mock.Anything, mock.Anything)
}

func TestBroadcastLocationPersistFailureAborts(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	f.users.On("SaveLocation", mock.Anything, 1, 10.5, 20.5, mock.Anything).Return(assert.AnError).Once()

	require.Error(t, d.BroadcastLocation(context.Background(), 1, 10.5, 20.5))
	f.friends.AssertNotCalled(t, "GetFriendIDs", mock.Anything, mock.Anything)
}

func TestBroadcastLocationEvictsBrokenConnection(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	broken := &recordingConn{sendErr: errors.New("write: broken pipe")}
	healthy := &recordingConn{}
	f.registry.Join(2, broken)
	f.registry.Join(3, healthy)

	f.users.On("SaveLocation", mock.Anything, 1, 1.0, 2.0, mock.Anything).Return(nil).Once()
	f.friends.On("GetFriendIDs", mock.Anything, 1).Return([]int{2, 3}, nil).Once()

	require.NoError(t, d.BroadcastLocation(context.Background(), 1, 1.0, 2.0))

	assert.True(t, broken.closed)
	assert.False(t, f.registry.Online(2))
	require.Len(t, healthy.received(), 1)
}

func TestDeliverChatPushesPersistedRecord(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	receiverConn := &recordingConn{}
	f.registry.Join(2, receiverConn)

	persisted := models.Message{ID: 42, SenderID: 1, ReceiverID: 2, Text: "hi", CreatedAt: time.Now()}
	f.messages.On("CreateMessage", mock.Anything, 1, 2, "hi").Return(persisted, nil).Once()

	msg, err := d.DeliverChat(context.Background(), 1, 2, "hi")
	require.NoError(t, err)
	assert.Equal(t, persisted, msg)

	events := receiverConn.received()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventNewMessage, events[0].Type)
	require.NotNil(t, events[0].Message)
	assert.Equal(t, 42, events[0].Message.ID)
}

func TestDeliverChatOfflineReceiverStillPersists(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	persisted := models.Message{ID: 7, SenderID: 1, ReceiverID: 2, Text: "hi"}
	f.messages.On("CreateMessage", mock.Anything, 1, 2, "hi").Return(persisted, nil).Once()

	msg, err := d.DeliverChat(context.Background(), 1, 2, "hi")
	require.NoError(t, err)
	assert.Equal(t, 7, msg.ID)
}

func TestDeliverChatPersistFailure(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	f.messages.On("CreateMessage", mock.Anything, 1, 2, "hi").Return(models.Message{}, assert.AnError).Once()

	_, err := d.DeliverChat(context.Background(), 1, 2, "hi")
	require.Error(t, err)
}

func TestBroadcastSOSReachesFriendsAndParents(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: false})

	friendConn := &recordingConn{}
	f.registry.Join(2, friendConn)

	alert := models.SOSAlert{ID: 9, UserID: 1, CreatedAt: time.Now()}
	f.sos.On("CreateAlert", mock.Anything, 1, 5.0, 6.0, "trapped").Return(alert, nil).Once()
	f.users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	f.friends.On("GetFriendIDs", mock.Anything, 1).Return([]int{2, 3}, nil).Once()
	f.parental.On("GetAcceptedParentIDs", mock.Anything, 1).Return([]int{3, 4}, nil).Once()
	f.notifications.On("Create", mock.Anything, mock.AnythingOfType("int"), models.NotificationSOS, mock.Anything, mock.Anything, mock.Anything).
		Return(models.Notification{}, nil).Times(3)

	got, notified, err := d.BroadcastSOS(context.Background(), 1, 5.0, 6.0, "trapped")
	require.NoError(t, err)
	assert.Equal(t, 9, got.ID)
	// Union of friends {2,3} and parents {3,4}.
	assert.Equal(t, 3, notified)

	events := friendConn.received()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventSOSAlert, events[0].Type)
	require.NotNil(t, events[0].SOS)
	assert.Equal(t, "alice", events[0].SOS.FromUsername)
	assert.Equal(t, "trapped", events[0].SOS.Message)

	f.notifications.AssertExpectations(t)
}

func TestBroadcastSOSDefaultMessage(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	alert := models.SOSAlert{ID: 1, UserID: 1}
	f.sos.On("CreateAlert", mock.Anything, 1, 5.0, 6.0, "I need help!").Return(alert, nil).Once()
	f.users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	f.friends.On("GetFriendIDs", mock.Anything, 1).Return([]int{}, nil).Once()
	f.parental.On("GetAcceptedParentIDs", mock.Anything, 1).Return([]int{}, nil).Once()

	_, notified, err := d.BroadcastSOS(context.Background(), 1, 5.0, 6.0, "   ")
	require.NoError(t, err)
	assert.Zero(t, notified)
	f.sos.AssertExpectations(t)
}

func TestBroadcastSOSNotificationFailureIsIsolated(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	friendConn := &recordingConn{}
	f.registry.Join(2, friendConn)

	alert := models.SOSAlert{ID: 1, UserID: 1}
	f.sos.On("CreateAlert", mock.Anything, 1, 5.0, 6.0, "help").Return(alert, nil).Once()
	f.users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	f.friends.On("GetFriendIDs", mock.Anything, 1).Return([]int{2}, nil).Once()
	f.parental.On("GetAcceptedParentIDs", mock.Anything, 1).Return([]int{}, nil).Once()
	f.notifications.On("Create", mock.Anything, 2, models.NotificationSOS, mock.Anything, mock.Anything, mock.Anything).
		Return(models.Notification{}, assert.AnError).Once()

	_, notified, err := d.BroadcastSOS(context.Background(), 1, 5.0, 6.0, "help")
	require.NoError(t, err)
	assert.Equal(t, 1, notified)

	// The realtime push still went out despite the failed persist.
	require.Len(t, friendConn.received(), 1)
}

func TestBroadcastSOSPersistFailureAborts(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	f.sos.On("CreateAlert", mock.Anything, 1, 5.0, 6.0, "help").Return(models.SOSAlert{}, assert.AnError).Once()

	_, _, err := d.BroadcastSOS(context.Background(), 1, 5.0, 6.0, "help")
	require.Error(t, err)
	f.users.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	f.notifications.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFanOutReachesEveryConnectionOfAUser(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(staticGate{visible: true})

	phone := &recordingConn{}
	laptop := &recordingConn{}
	f.registry.Join(2, phone)
	f.registry.Join(2, laptop)

	f.users.On("SaveLocation", mock.Anything, 1, 1.0, 1.0, mock.Anything).Return(nil).Once()
	f.friends.On("GetFriendIDs", mock.Anything, 1).Return([]int{2}, nil).Once()

	require.NoError(t, d.BroadcastLocation(context.Background(), 1, 1.0, 1.0))

	require.Len(t, phone.received(), 1)
	require.Len(t, laptop.received(), 1)
}
