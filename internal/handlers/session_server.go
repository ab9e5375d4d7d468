// internal/handlers/session_server.go
package handlers

import (
	"github.com/sirupsen/logrus"
	"github.com/tribalfm/tribal/internal/player"
	"github.com/tribalfm/tribal/internal/room"
	"github.com/tribalfm/tribal/internal/spotify"
)

// SessionServer carries the shared dependencies of the session websocket
// flow: the room registry, the playback coordinator, the catalog client and
// the persistence surface.
type SessionServer struct {
	Registry *room.Registry
	Player   *player.Coordinator
	Spotify  *spotify.Client
	Store    Store
	Log      *logrus.Logger
}

func NewSessionServer(logger *logrus.Logger, sp *spotify.Client) *SessionServer {
	return &SessionServer{
		Registry: room.NewRegistry(),
		Player:   player.NewCoordinator(sp, logger),
		Spotify:  sp,
		Store:    dbStore{},
		Log:      logger,
	}
}
