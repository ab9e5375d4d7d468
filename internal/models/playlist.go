// internal/models/playlist.go
package models

import "github.com/google/uuid"

// Playback status values stored on a playlist row.
const (
	StatusStopped = "stopped"
	StatusPlaying = "playing"
	StatusPaused  = "paused"
)

// Playlist represents a row in the playlists table. Hash is the shareable
// identifier clients use to join the playlist's room.
type Playlist struct {
	ID        uuid.UUID `json:"id"`
	Hash      string    `json:"hash"`
	Name      string    `json:"name"`
	AccountID uuid.UUID `json:"accountId"`

	// SpotifyID is the external playlist identifier used as the playback
	// context when issuing remote play commands.
	SpotifyID string `json:"spotifyId"`

	Status string `json:"status"`
}
