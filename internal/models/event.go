package models

import "time"

// Websocket event names, shared between the dispatcher and the transport.
const (
	EventJoined         = "joined"
	EventNewMessage     = "newMessage"
	EventMessageSent    = "messageSent"
	EventMessageError   = "messageError"
	EventLocationUpdate = "friendLocationUpdate"
	EventSOSAlert       = "sosAlert"
	EventSOSSent        = "sosSent"
	EventSOSError       = "sosError"
	EventError          = "error"
)

// Event is the envelope pushed over a websocket connection.
type Event struct {
	Type     string         `json:"type"`
	Message  *Message       `json:"message,omitempty"`
	Location *LocationPush  `json:"location,omitempty"`
	SOS      *SOSPush       `json:"sos,omitempty"`
	Error    string         `json:"error,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// LocationPush is sent to each friend on a visible location update.
type LocationPush struct {
	FriendID int     `json:"friendId"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// SOSPush is the real-time companion of a durable SOS notification.
type SOSPush struct {
	FromUserID   int       `json:"fromUserId"`
	FromUsername string    `json:"fromUsername"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}
