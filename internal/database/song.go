// internal/database/song.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tribalfm/tribal/internal/models"
)

const songColumns = `
	id, playlist_hash, track_uri, artist, title, artwork_url,
	duration_ms, upvotes, downvotes, position, played
`

func scanSong(row pgx.Row, s *models.Song) error {
	return row.Scan(
		&s.ID, &s.PlaylistHash, &s.TrackURI, &s.Artist, &s.Title,
		&s.ArtworkURL, &s.DurationMs, &s.Upvotes, &s.Downvotes,
		&s.Index, &s.Played,
	)
}

// GetSongsForPlaylist returns every song for a playlist ordered by stored
// position index (unplayed first, then played).
func GetSongsForPlaylist(ctx context.Context, hash string) ([]*models.Song, error) {
	q := `
	SELECT ` + songColumns + `
	FROM songs
	WHERE playlist_hash = $1
	ORDER BY played ASC, position ASC
	`
	rows, err := DB.Query(ctx, q, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []*models.Song
	for rows.Next() {
		var s models.Song
		if err := scanSong(rows, &s); err != nil {
			return nil, err
		}
		songs = append(songs, &s)
	}
	return songs, rows.Err()
}

// GetSongForPlaylist fetches one song by ID within a playlist.
// Returns pgx.ErrNoRows if absent.
func GetSongForPlaylist(ctx context.Context, songID uuid.UUID, hash string) (*models.Song, error) {
	var s models.Song
	q := `
	SELECT ` + songColumns + `
	FROM songs
	WHERE id = $1 AND playlist_hash = $2
	`
	if err := scanSong(DB.QueryRow(ctx, q, songID, hash), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertSong appends a song to a playlist: vote counters start at zero and
// the song takes the next free index among unplayed entries.
func InsertSong(ctx context.Context, s *models.Song) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Upvotes = 0
	s.Downvotes = 0
	s.Played = false

	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(position) + 1, 0)
			FROM songs
			WHERE playlist_hash = $1 AND played = false
		`, s.PlaylistHash).Scan(&s.Index)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO songs (`+songColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			s.ID, s.PlaylistHash, s.TrackURI, s.Artist, s.Title,
			s.ArtworkURL, s.DurationMs, s.Upvotes, s.Downvotes,
			s.Index, s.Played,
		)
		return err
	})
}

// AddSongUpvote increments a song's upvote counter in SQL, so two concurrent
// votes cannot clobber each other, and returns the fresh counters.
func AddSongUpvote(ctx context.Context, hash string, songID uuid.UUID) (up, down int, err error) {
	err = DB.QueryRow(ctx, `
		UPDATE songs SET upvotes = upvotes + 1
		WHERE id = $1 AND playlist_hash = $2
		RETURNING upvotes, downvotes
	`, songID, hash).Scan(&up, &down)
	return up, down, err
}

// AddSongDownvote increments a song's downvote counter and returns the fresh counters.
func AddSongDownvote(ctx context.Context, hash string, songID uuid.UUID) (up, down int, err error) {
	err = DB.QueryRow(ctx, `
		UPDATE songs SET downvotes = downvotes + 1
		WHERE id = $1 AND playlist_hash = $2
		RETURNING upvotes, downvotes
	`, songID, hash).Scan(&up, &down)
	return up, down, err
}

// UpdateSongOrderAfterVote persists the recomputed queue order: every unplayed
// song's position is rewritten in one transaction. Writing the whole set keeps
// the stored order identical to the order that was broadcast, even when played
// songs have left a gap before the unplayed positions.
func UpdateSongOrderAfterVote(ctx context.Context, hash string, unplayed []*models.Song) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, s := range unplayed {
			_, err := tx.Exec(ctx, `
				UPDATE songs SET position = $1
				WHERE id = $2 AND playlist_hash = $3
			`, s.Index, s.ID, hash)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkSongPlayed flags a song as played; it leaves remaining unplayed indices
// untouched, their relative order is already consistent.
func MarkSongPlayed(ctx context.Context, songID uuid.UUID) error {
	q := `UPDATE songs SET played = true WHERE id = $1`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, songID)
		return err
	})
}
