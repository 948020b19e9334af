package realtime

import "sync"

// Registry tracks which user owns which live connection. One connection
// per user: registering a user who is already connected displaces the
// earlier connection, so the most recent connect always wins. It also
// tracks every attached connection, registered or not, so broadcasts
// reach unauthenticated clients too.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]Conn
	attached map[Conn]struct{}
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[string]Conn),
		attached: make(map[Conn]struct{}),
	}
}

// Attach adds conn to the broadcast set without binding it to a user.
func (r *Registry) Attach(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached[conn] = struct{}{}
}

// Detach removes conn from the broadcast set.
func (r *Registry) Detach(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attached, conn)
}

// Register maps userID to conn, replacing any existing mapping. A
// displaced connection is closed asynchronously so its own cleanup path
// cannot deadlock against the registry lock.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.conns[userID]; ok && existing != conn {
		delete(r.attached, existing)
		go existing.Close()
	}
	r.conns[userID] = conn
	r.attached[conn] = struct{}{}
}

// Unregister removes the mapping for userID, but only if conn is the
// connection currently registered. A stale connection cleaning up after
// itself never evicts the user's newer connection.
func (r *Registry) Unregister(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if registered, ok := r.conns[userID]; ok && registered == conn {
		delete(r.conns, userID)
		delete(r.attached, conn)
	}
}

// Lookup returns the live connection for userID, if any.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// ActiveUserIDs returns a snapshot of every connected user id.
func (r *Registry) ActiveUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast writes an event to every attached connection, including
// connections that never registered a user. Delivery is best effort;
// write failures are ignored.
func (r *Registry) Broadcast(event Event) {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.attached))
	for conn := range r.attached {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.WriteJSON(event)
	}
}
