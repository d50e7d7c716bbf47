// Package registry tracks live connections and the identity bound to each.
package registry

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Conn is a live duplex connection owned by the transport layer.
type Conn interface {
	ID() string
	// Token is the bearer token supplied at handshake, or "".
	Token() string
	// Send queues a text frame. It must not block.
	Send(data []byte) error
	IsOpen() bool
}

// Registry maps connection ids to handles and emails to connection ids.
// At most one connection is bound to an email at any time. All methods are
// safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]Conn
	byEmail map[string]string
}

func New() *Registry {
	return &Registry{
		conns:   make(map[string]Conn),
		byEmail: make(map[string]string),
	}
}

// Put stores or replaces the handle for its connection id.
func (r *Registry) Put(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID()] = conn
}

// Remove forgets the handle for id. Email bindings are left untouched; see
// UnbindByConnection.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Conn returns the handle stored for id.
func (r *Registry) Conn(id string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Bind makes id the connection for email and returns the connection that
// was bound before, or "" if there was none. When email was bound to a
// different connection, every binding of that previous connection is dropped
// first. The previous transport itself is not closed.
func (r *Registry) Bind(email, id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byEmail[email]
	if ok && prev != id {
		r.unbindLocked(prev)
		log.Info().Str("module", "registry").Str("email", email).
			Str("previous", prev).Str("connection", id).Msg("rebound identity")
	}
	r.byEmail[email] = id
	return prev
}

// ConnectionFor returns the connection currently bound to email.
func (r *Registry) ConnectionFor(email string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	return id, ok
}

// UnbindByConnection removes every email bound to id.
func (r *Registry) UnbindByConnection(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbindLocked(id)
}

func (r *Registry) unbindLocked(id string) {
	for email, bound := range r.byEmail {
		if bound == id {
			delete(r.byEmail, email)
		}
	}
}

// Others returns a snapshot of every open connection except exclude.
func (r *Registry) Others(exclude string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0, len(r.conns))
	for id, c := range r.conns {
		if id != exclude && c.IsOpen() {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of tracked connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Bound returns a copy of the email to connection bindings.
func (r *Registry) Bound() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.byEmail))
	for email, id := range r.byEmail {
		out[email] = id
	}
	return out
}
