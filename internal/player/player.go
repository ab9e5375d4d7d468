// internal/player/player.go

// Package player coordinates a room's shared transport state (stopped,
// playing, paused) and issues the matching remote commands to the external
// playback API.
package player

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/tribalfm/tribal/internal/database"
	"github.com/tribalfm/tribal/internal/models"
	"github.com/tribalfm/tribal/internal/queue"
	"github.com/tribalfm/tribal/internal/room"
)

// ErrEmptyQueue is returned when playback is requested on a playlist whose
// not-yet-played list is empty. No remote call is made in that case.
var ErrEmptyQueue = errors.New("playlist has no unplayed songs")

// ErrNoAccount is returned when the playlist's owning account has no row in
// the accounts table, so there is no token to drive playback with.
var ErrNoAccount = errors.New("playlist has no linked playback account")

// PlaybackAPI is the remote control surface the coordinator drives.
// *spotify.Client satisfies it.
type PlaybackAPI interface {
	PlayContext(ctx context.Context, token, contextURI string, position int) error
	Resume(ctx context.Context, token string) error
	Pause(ctx context.Context, token string) error
}

// Coordinator mediates transport-control events for rooms. Store accessors
// are function fields so tests can run it without a database.
type Coordinator struct {
	API PlaybackAPI
	Log *logrus.Logger

	GetSongs   func(ctx context.Context, hash string) ([]*models.Song, error)
	GetAccount func(ctx context.Context, id uuid.UUID) (*models.Account, error)
	SetStatus  func(ctx context.Context, hash, status string) error
	MarkPlayed func(ctx context.Context, songID uuid.UUID) error
}

// NewCoordinator wires a coordinator against the real database layer.
func NewCoordinator(api PlaybackAPI, logger *logrus.Logger) *Coordinator {
	return &Coordinator{
		API:        api,
		Log:        logger,
		GetSongs:   database.GetSongsForPlaylist,
		GetAccount: database.GetAccount,
		SetStatus:  database.SetPlaylistStatus,
		MarkPlayed: database.MarkSongPlayed,
	}
}

// account resolves the playlist owner's playback account, mapping a missing
// row to ErrNoAccount so callers can tell it apart from an empty queue.
func (c *Coordinator) account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := c.GetAccount(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoAccount
	}
	return account, err
}

// Play starts playback from the head of the unplayed queue: stopped ->
// playing. The caller holds the room's mutex. Returns the song now playing.
func (c *Coordinator) Play(ctx context.Context, r *room.Room, playlist *models.Playlist) (*models.Song, error) {
	songs, err := c.GetSongs(ctx, playlist.Hash)
	if err != nil {
		return nil, err
	}
	unplayed := queue.SortUnplayed(songs)
	if len(unplayed) == 0 {
		return nil, ErrEmptyQueue
	}

	account, err := c.account(ctx, playlist.AccountID)
	if err != nil {
		return nil, err
	}

	contextURI := "spotify:playlist:" + playlist.SpotifyID
	if err := c.API.PlayContext(ctx, account.AccessToken, contextURI, 0); err != nil {
		c.Log.Warnf("player: play command failed for playlist %s: %v", playlist.Hash, err)
		return nil, err
	}

	if err := c.SetStatus(ctx, playlist.Hash, models.StatusPlaying); err != nil {
		c.Log.Warnf("player: failed to persist playing status for %s: %v", playlist.Hash, err)
	}
	r.State = models.StatusPlaying
	r.Current = unplayed[0]
	return unplayed[0], nil
}

// Resume continues a paused session: paused -> playing. The remote command is
// best effort; local state is updated either way. Caller holds the room's mutex.
func (c *Coordinator) Resume(ctx context.Context, r *room.Room, playlist *models.Playlist) error {
	account, err := c.account(ctx, playlist.AccountID)
	if err != nil {
		return err
	}
	if err := c.API.Resume(ctx, account.AccessToken); err != nil {
		c.Log.Warnf("player: resume command failed for playlist %s: %v", playlist.Hash, err)
	}
	if err := c.SetStatus(ctx, playlist.Hash, models.StatusPlaying); err != nil {
		c.Log.Warnf("player: failed to persist playing status for %s: %v", playlist.Hash, err)
	}
	r.State = models.StatusPlaying
	return nil
}

// Pause halts a playing session: playing -> paused. Same best-effort remote
// semantics as Resume. Caller holds the room's mutex.
func (c *Coordinator) Pause(ctx context.Context, r *room.Room, playlist *models.Playlist) error {
	account, err := c.account(ctx, playlist.AccountID)
	if err != nil {
		return err
	}
	if err := c.API.Pause(ctx, account.AccessToken); err != nil {
		c.Log.Warnf("player: pause command failed for playlist %s: %v", playlist.Hash, err)
	}
	if err := c.SetStatus(ctx, playlist.Hash, models.StatusPaused); err != nil {
		c.Log.Warnf("player: failed to persist paused status for %s: %v", playlist.Hash, err)
	}
	r.State = models.StatusPaused
	return nil
}

// Advance marks the room's current song played and moves the pointer to the
// next unplayed entry. A nil song result means the playlist is exhausted.
// Caller holds the room's mutex.
func (c *Coordinator) Advance(ctx context.Context, r *room.Room, hash string) (*models.Song, error) {
	if r.Current != nil {
		if err := c.MarkPlayed(ctx, r.Current.ID); err != nil {
			return nil, err
		}
		r.Current.Played = true
	}

	songs, err := c.GetSongs(ctx, hash)
	if err != nil {
		return nil, err
	}
	unplayed := queue.SortUnplayed(songs)
	if len(unplayed) == 0 {
		r.Current = nil
		r.State = models.StatusStopped
		if err := c.SetStatus(ctx, hash, models.StatusStopped); err != nil {
			c.Log.Warnf("player: failed to persist stopped status for %s: %v", hash, err)
		}
		return nil, nil
	}

	r.Current = unplayed[0]
	return unplayed[0], nil
}
