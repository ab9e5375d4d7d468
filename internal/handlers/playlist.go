// internal/handlers/playlist.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/tribalfm/tribal/internal/database"
	"github.com/tribalfm/tribal/internal/models"
	"github.com/tribalfm/tribal/internal/queue"
)

// CreatePlaylistHandler creates a playlist owned by the authenticated user's
// account and returns it, including the shareable hash.
func CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := authenticatedUserID(r)
	if err != nil {
		if errors.Is(err, errNoAuthCookie) {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	var req struct {
		Name      string `json:"name"`
		SpotifyID string `json:"spotifyId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad playlist request payload", http.StatusBadRequest)
		return
	}

	// The playback path resolves AccountID against the accounts table, so the
	// row must exist before the playlist points at it.
	if err := database.EnsureAccount(r.Context(), accountID); err != nil {
		http.Error(w, "error creating playlist", http.StatusInternalServerError)
		return
	}

	playlist := &models.Playlist{
		Name:      req.Name,
		AccountID: accountID,
		SpotifyID: req.SpotifyID,
	}
	if err := database.InsertPlaylist(r.Context(), playlist); err != nil {
		http.Error(w, "error creating playlist", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(playlist)
}

// ListPlaylistsHandler returns every playlist owned by the authenticated
// user's account.
func ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := authenticatedUserID(r)
	if err != nil {
		if errors.Is(err, errNoAuthCookie) {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	playlists, err := database.GetPlaylistsForAccount(r.Context(), accountID)
	if err != nil {
		http.Error(w, "error fetching playlists", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(playlists)
}

// PlaylistRouter dispatches /playlist/{hash} and /playlist/{hash}/songs.
func PlaylistRouter(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/songs") {
		GetPlaylistSongsHandler(w, r)
		return
	}
	GetPlaylistHandler(w, r)
}

// GetPlaylistHandler returns one playlist by hash: /playlist/{hash}.
func GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	hash := strings.TrimPrefix(r.URL.Path, "/playlist/")
	if hash == "" || strings.Contains(hash, "/") {
		http.Error(w, "missing playlist hash", http.StatusBadRequest)
		return
	}

	playlist, err := database.GetPlaylistByHash(r.Context(), hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "playlist not found", http.StatusNotFound)
			return
		}
		http.Error(w, "error fetching playlist", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(playlist)
}

// GetPlaylistSongsHandler returns the not-yet-played queue in play order:
// /playlist/{hash}/songs.
func GetPlaylistSongsHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/playlist/")
	hash := strings.TrimSuffix(path, "/songs")
	if hash == "" || hash == path {
		http.Error(w, "missing playlist hash", http.StatusBadRequest)
		return
	}

	if _, err := database.GetPlaylistByHash(r.Context(), hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "playlist not found", http.StatusNotFound)
			return
		}
		http.Error(w, "error fetching playlist", http.StatusInternalServerError)
		return
	}

	songs, err := database.GetSongsForPlaylist(r.Context(), hash)
	if err != nil {
		http.Error(w, "error fetching songs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(queue.SortUnplayed(songs))
}
