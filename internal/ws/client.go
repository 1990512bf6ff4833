package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"location-service/internal/models"
)

// client is one live websocket connection. It starts unbound; a join event
// binds it to a user id and registers it with the presence registry. Only
// the connection's read loop mutates userID, so no lock guards it; Send may
// be called from any dispatch goroutine and serializes writes itself.
type client struct {
	conn      *websocket.Conn
	info      ConnInfo
	writeWait time.Duration

	writeMu sync.Mutex

	// 0 while unbound.
	userID int
}

// Send writes one event with a bounded deadline. A slow or dead peer fails
// the write instead of stalling the dispatcher.
func (c *client) Send(event models.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteJSON(event)
}

// Close closes the underlying transport.
func (c *client) Close() error {
	return c.conn.Close()
}
