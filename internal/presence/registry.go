package presence

import (
	"sync"

	"location-service/internal/models"
)

// Conn is a live connection handle the registry tracks and the dispatcher
// pushes to. Implementations bound their own write time.
type Conn interface {
	Send(event models.Event) error
	Close() error
}

// Registry maps user ids to their live connections. A user may hold any
// number of simultaneous connections (several devices or tabs); a
// connection belongs to at most one user at a time.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int]map[Conn]struct{}
	byConn map[Conn]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int]map[Conn]struct{}),
		byConn: make(map[Conn]int),
	}
}

// Join registers conn under userID. Idempotent per connection; if the
// connection was registered under a different user it is moved, never left
// dual-registered.
func (r *Registry) Join(userID int, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[conn]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(prev, conn)
	}

	if _, ok := r.byUser[userID]; !ok {
		r.byUser[userID] = make(map[Conn]struct{})
	}
	r.byUser[userID][conn] = struct{}{}
	r.byConn[conn] = userID
}

// Leave removes the connection from whatever user it was registered under.
// Safe to call for connections that never joined.
func (r *Registry) Leave(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[conn]
	if !ok {
		return
	}
	r.removeLocked(userID, conn)
}

// ConnectionsFor returns a copy of the user's live connection set. An empty
// slice means offline. Callers iterate and push without holding any
// registry lock.
func (r *Registry) ConnectionsFor(userID int) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	conns := make([]Conn, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

// UserFor reports which user the connection is currently bound to.
func (r *Registry) UserFor(conn Conn) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byConn[conn]
	return userID, ok
}

// Online reports whether the user has at least one live connection.
func (r *Registry) Online(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID]) > 0
}

func (r *Registry) removeLocked(userID int, conn Conn) {
	delete(r.byConn, conn)
	if set, ok := r.byUser[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
}
