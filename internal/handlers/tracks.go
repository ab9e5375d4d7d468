// internal/handlers/tracks.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/tribalfm/tribal/internal/database"
)

// TestHandler reports database connectivity as plain text, matching the
// client's expectations for the /test endpoint.
func TestHandler(w http.ResponseWriter, r *http.Request) {
	status := "NOT connected"
	if database.Connected(r.Context()) {
		status = "Connected"
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Database connection status: %s", status)
}

// TracksHandler queries the music catalog by free-text track name and returns
// the ranked matches. The bearer token comes from the playlist's owning
// account when a hash is given, else from the service-level token.
func (ss *SessionServer) TracksHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("trackName")
	if query == "" {
		http.Error(w, "missing trackName", http.StatusBadRequest)
		return
	}

	token := os.Getenv("SPOTIFY_ACCESS_TOKEN")
	if hash := r.URL.Query().Get("hash"); hash != "" {
		playlist, err := ss.Store.GetPlaylistByHash(r.Context(), hash)
		if err != nil {
			http.Error(w, "playlist not found", http.StatusNotFound)
			return
		}
		account, err := database.GetAccount(r.Context(), playlist.AccountID)
		if err != nil {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		token = account.AccessToken
	}

	tracks, err := ss.Spotify.Search(r.Context(), token, query)
	if err != nil {
		ss.Log.Warnf("tracks: search failed for %q: %v", query, err)
		http.Error(w, "catalog search failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tracks)
}
