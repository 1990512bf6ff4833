package ws

import "time"

// ConnInfo carries identity and correlation metadata for one connection,
// captured at handshake time and attached to every lifecycle event.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
