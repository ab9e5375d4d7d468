// internal/room/room.go

// Package room tracks which live connections share which playlist, and fans
// event payloads out to a room's members. Rooms are ephemeral: created on
// first join, dropped when the last member leaves. Nothing here survives a
// restart.
package room

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/tribalfm/tribal/internal/models"
)

// Conn is a single client's live presence: an opaque identifier plus the
// outgoing channel its websocket write pump drains.
type Conn struct {
	ID      uuid.UUID
	Cancel  func()
	OutChan chan map[string]interface{}
}

// NewConn allocates a connection handle with a buffered outgoing channel.
func NewConn() *Conn {
	return &Conn{
		ID:      uuid.New(),
		OutChan: make(chan map[string]interface{}, 16),
	}
}

// Write pushes a message onto the connection's OutChan non-blockingly.
// Logs if the channel is closed or full and the message is dropped.
func (c *Conn) Write(msg map[string]interface{}) {
	select {
	case c.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("room.Conn Write WARNING: OutChan for conn %s closed or full. Dropped message type '%s'.", c.ID, msgType)
	}
}

// WriteError sends a typed error event to this connection only.
func (c *Conn) WriteError(msg string) {
	c.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// Room is the set of connections currently associated with one playlist,
// keyed by the playlist's shareable hash, plus the room's shared playback
// state.
type Room struct {
	Hash    string
	Members map[uuid.UUID]*Conn

	// State is the room's transport state: stopped, playing or paused.
	State string
	// Current points at the song the room is listening to, nil when stopped.
	Current *models.Song

	// Mu serializes mutating session events for this room. Holding it across
	// an event's store round-trips is what prevents two concurrent votes from
	// reading the same pre-vote ordering.
	Mu sync.Mutex
}

func newRoom(hash string) *Room {
	return &Room{
		Hash:    hash,
		Members: make(map[uuid.UUID]*Conn),
		State:   models.StatusStopped,
	}
}

// members returns a snapshot of the member set so broadcast delivery never
// iterates a map that a concurrent join/leave is mutating.
func (r *Room) members() []*Conn {
	conns := make([]*Conn, 0, len(r.Members))
	for _, c := range r.Members {
		conns = append(conns, c)
	}
	return conns
}
