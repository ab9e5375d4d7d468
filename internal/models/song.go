// internal/models/song.go
package models

import "github.com/google/uuid"

// Song represents one queued track within a playlist.
//
// Among songs of one playlist with Played == false, Index is contiguous
// (0..n-1) and ordered by descending net score, ties kept in insertion order.
type Song struct {
	ID           uuid.UUID `json:"id"`
	PlaylistHash string    `json:"playlistHash"`

	TrackURI   string `json:"trackUri"`
	Artist     string `json:"artist"`
	Title      string `json:"title"`
	ArtworkURL string `json:"artworkUrl"`
	DurationMs int    `json:"durationMs"`

	Upvotes   int  `json:"upvotes"`
	Downvotes int  `json:"downvotes"`
	Index     int  `json:"index"`
	Played    bool `json:"played"`
}

// Score returns the song's net score (upvotes minus downvotes).
func (s *Song) Score() int {
	return s.Upvotes - s.Downvotes
}
