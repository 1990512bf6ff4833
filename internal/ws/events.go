package ws

// Inbound event names, matching what the mobile and web clients emit.
const (
	actionJoin           = "join"
	actionUpdateLocation = "updateLocation"
	actionSendMessage    = "sendMessage"
	actionSendSOS        = "sendSOS"
)

// inboundEvent is the superset of all client-to-server event payloads.
type inboundEvent struct {
	Type       string  `json:"type"`
	Token      string  `json:"token,omitempty"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
	ReceiverID int     `json:"receiverId,omitempty"`
	Message    string  `json:"message,omitempty"`
}
