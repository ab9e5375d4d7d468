// internal/handlers/store.go
package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/tribalfm/tribal/internal/database"
	"github.com/tribalfm/tribal/internal/models"
)

// Store is the persistence surface the session router consumes. Production
// code uses the pgx layer via dbStore; tests substitute an in-memory fake.
type Store interface {
	GetPlaylistByHash(ctx context.Context, hash string) (*models.Playlist, error)
	GetSongsForPlaylist(ctx context.Context, hash string) ([]*models.Song, error)
	GetSongForPlaylist(ctx context.Context, songID uuid.UUID, hash string) (*models.Song, error)
	InsertSong(ctx context.Context, s *models.Song) error
	AddSongUpvote(ctx context.Context, hash string, songID uuid.UUID) (up, down int, err error)
	AddSongDownvote(ctx context.Context, hash string, songID uuid.UUID) (up, down int, err error)
	UpdateSongOrderAfterVote(ctx context.Context, hash string, unplayed []*models.Song) error
}

// dbStore delegates to the database package.
type dbStore struct{}

func (dbStore) GetPlaylistByHash(ctx context.Context, hash string) (*models.Playlist, error) {
	return database.GetPlaylistByHash(ctx, hash)
}

func (dbStore) GetSongsForPlaylist(ctx context.Context, hash string) ([]*models.Song, error) {
	return database.GetSongsForPlaylist(ctx, hash)
}

func (dbStore) GetSongForPlaylist(ctx context.Context, songID uuid.UUID, hash string) (*models.Song, error) {
	return database.GetSongForPlaylist(ctx, songID, hash)
}

func (dbStore) InsertSong(ctx context.Context, s *models.Song) error {
	return database.InsertSong(ctx, s)
}

func (dbStore) AddSongUpvote(ctx context.Context, hash string, songID uuid.UUID) (int, int, error) {
	return database.AddSongUpvote(ctx, hash, songID)
}

func (dbStore) AddSongDownvote(ctx context.Context, hash string, songID uuid.UUID) (int, int, error) {
	return database.AddSongDownvote(ctx, hash, songID)
}

func (dbStore) UpdateSongOrderAfterVote(ctx context.Context, hash string, unplayed []*models.Song) error {
	return database.UpdateSongOrderAfterVote(ctx, hash, unplayed)
}
