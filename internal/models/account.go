// internal/models/account.go
package models

import "github.com/google/uuid"

// Account is the external music-service identity owning a playlist. The core
// never mutates it; its access token is read when issuing playback commands.
type Account struct {
	ID            uuid.UUID `json:"id"`
	SpotifyUserID string    `json:"spotifyUserId"`
	AccessToken   string    `json:"-"`
	RefreshToken  string    `json:"-"`
}
