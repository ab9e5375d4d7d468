// internal/database/playlist.go
package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tribalfm/tribal/internal/models"
)

// InsertPlaylist creates a new playlist row. If the playlist has no hash yet,
// a random shareable one is generated.
func InsertPlaylist(ctx context.Context, p *models.Playlist) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Hash == "" {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		p.Hash = hex.EncodeToString(buf)
	}
	if p.Status == "" {
		p.Status = models.StatusStopped
	}

	q := `
	INSERT INTO playlists (id, hash, name, account_id, spotify_id, status)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, p.ID, p.Hash, p.Name, p.AccountID, p.SpotifyID, p.Status)
		return err
	})
}

// GetPlaylistByHash fetches a playlist by its shareable hash.
// Returns pgx.ErrNoRows if absent.
func GetPlaylistByHash(ctx context.Context, hash string) (*models.Playlist, error) {
	var p models.Playlist
	q := `
	SELECT id, hash, name, account_id, spotify_id, status
	FROM playlists
	WHERE hash = $1
	`
	err := DB.QueryRow(ctx, q, hash).Scan(
		&p.ID, &p.Hash, &p.Name, &p.AccountID, &p.SpotifyID, &p.Status,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPlaylistsForAccount returns every playlist owned by an account.
func GetPlaylistsForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Playlist, error) {
	q := `
	SELECT id, hash, name, account_id, spotify_id, status
	FROM playlists
	WHERE account_id = $1
	`
	rows, err := DB.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Hash, &p.Name, &p.AccountID, &p.SpotifyID, &p.Status); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// SetPlaylistStatus persists the playback status (stopped/playing/paused).
func SetPlaylistStatus(ctx context.Context, hash, status string) error {
	q := `UPDATE playlists SET status = $1 WHERE hash = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, status, hash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

// EnsureAccount creates the account row backing a user's playback identity if
// none exists yet. Accounts are keyed by user id; the Spotify tokens land on
// the row through the external OAuth exchange.
func EnsureAccount(ctx context.Context, id uuid.UUID) error {
	q := `
	INSERT INTO accounts (id, spotify_user_id, access_token, refresh_token)
	VALUES ($1, '', '', '')
	ON CONFLICT (id) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, id)
		return err
	})
}

// GetAccount fetches the account owning a playlist, including its access token.
// Returns pgx.ErrNoRows if absent.
func GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	q := `
	SELECT id, spotify_user_id, access_token, refresh_token
	FROM accounts
	WHERE id = $1
	`
	err := DB.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.SpotifyUserID, &a.AccessToken, &a.RefreshToken,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
