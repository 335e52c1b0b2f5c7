package notification

import (
	"sync"

	"propertyhub/internal/domain"
)

// Registry maps identities to their live connections. One identity may hold
// several connections (tabs, devices, chat rooms).
type Registry struct {
	mu     sync.RWMutex
	conns  map[domain.Identity]map[Conn]struct{}
	owners map[Conn]domain.Identity
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[domain.Identity]map[Conn]struct{}),
		owners: make(map[Conn]domain.Identity),
	}
}

// Register adds conn under id. Registering the same connection again is a no-op;
// a connection moved to another identity is removed from the previous one.
func (r *Registry) Register(id domain.Identity, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owners[conn]; ok {
		if prev == id {
			return
		}
		r.removeLocked(prev, conn)
	}

	set, ok := r.conns[id]
	if !ok {
		set = make(map[Conn]struct{})
		r.conns[id] = set
	}
	set[conn] = struct{}{}
	r.owners[conn] = id
}

// Unregister removes conn from id. Other connections of the same identity are untouched.
func (r *Registry) Unregister(id domain.Identity, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[conn]; !ok || owner != id {
		return false
	}
	r.removeLocked(id, conn)
	return true
}

// Evict removes conn from whichever identity holds it.
func (r *Registry) Evict(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.owners[conn]
	if !ok {
		return false
	}
	r.removeLocked(id, conn)
	return true
}

func (r *Registry) removeLocked(id domain.Identity, conn Conn) {
	delete(r.owners, conn)
	set := r.conns[id]
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, id)
	}
}

// ConnectionsFor returns a snapshot; callers may send without holding the lock.
func (r *Registry) ConnectionsFor(id domain.Identity) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[id]
	out := make([]Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (r *Registry) AllManagers() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Conn
	for id, set := range r.conns {
		if id.Role != domain.RoleManager {
			continue
		}
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) IsOnline(id domain.Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns[id]) > 0
}

// Stats counts live notification connections per role. Chat room sockets
// are not included.
func (r *Registry) Stats() map[domain.UserRole]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[domain.UserRole]int{
		domain.RoleOwner:   0,
		domain.RoleWorker:  0,
		domain.RoleManager: 0,
	}
	for id, set := range r.conns {
		for c := range set {
			if c.Channel() == NotificationChannel {
				out[id.Role]++
			}
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.owners)
}

// CloseAll closes and forgets every connection. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.owners))
	for c := range r.owners {
		conns = append(conns, c)
	}
	r.conns = make(map[domain.Identity]map[Conn]struct{})
	r.owners = make(map[Conn]domain.Identity)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
