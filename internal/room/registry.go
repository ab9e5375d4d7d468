// internal/room/registry.go
package room

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Registry owns every active room and the connection-to-room memberships.
// It is injected into the session handlers rather than living as a package
// global, so membership discipline stays testable in isolation.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	memberships map[uuid.UUID]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		memberships: make(map[uuid.UUID]map[string]struct{}),
	}
}

// Join adds conn to the room for hash, creating the room if absent.
// Double-joins are idempotent.
func (reg *Registry) Join(conn *Conn, hash string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[hash]
	if !ok {
		r = newRoom(hash)
		reg.rooms[hash] = r
		log.Printf("Registry: Created room %s.", hash)
	}
	r.Members[conn.ID] = conn

	if reg.memberships[conn.ID] == nil {
		reg.memberships[conn.ID] = make(map[string]struct{})
	}
	reg.memberships[conn.ID][hash] = struct{}{}
	return r
}

// Leave removes conn from one room. Removing the last member drops the room.
func (reg *Registry) Leave(conn *Conn, hash string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.leaveLocked(conn, hash)
}

// LeaveAll removes conn from every room it has joined. Called on disconnect.
func (reg *Registry) LeaveAll(conn *Conn) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for hash := range reg.memberships[conn.ID] {
		reg.leaveLocked(conn, hash)
	}
	delete(reg.memberships, conn.ID)
}

func (reg *Registry) leaveLocked(conn *Conn, hash string) {
	r, ok := reg.rooms[hash]
	if !ok {
		return
	}
	delete(r.Members, conn.ID)
	if set := reg.memberships[conn.ID]; set != nil {
		delete(set, hash)
	}
	if len(r.Members) == 0 {
		delete(reg.rooms, hash)
		log.Printf("Registry: Room %s empty, removed.", hash)
	}
}

// Get returns the room for hash, if it exists.
func (reg *Registry) Get(hash string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[hash]
	return r, ok
}

// Rooms returns an immutable snapshot of the hashes conn has joined.
func (reg *Registry) Rooms(conn *Conn) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	hashes := make([]string, 0, len(reg.memberships[conn.ID]))
	for hash := range reg.memberships[conn.ID] {
		hashes = append(hashes, hash)
	}
	return hashes
}

// Broadcast delivers an event to every member of the room except the sender,
// if given. A missing or empty room is a no-op, not an error.
func (reg *Registry) Broadcast(hash, event string, payload map[string]interface{}, except *Conn) {
	reg.mu.Lock()
	r, ok := reg.rooms[hash]
	if !ok {
		reg.mu.Unlock()
		return
	}
	conns := r.members()
	reg.mu.Unlock()

	msg := make(map[string]interface{}, len(payload)+1)
	msg["type"] = event
	for k, v := range payload {
		msg[k] = v
	}

	for _, c := range conns {
		if except != nil && c.ID == except.ID {
			continue
		}
		c.Write(msg)
	}
}
