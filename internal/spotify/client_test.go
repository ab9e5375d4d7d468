// internal/spotify/client_test.go
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParsesTracks(t *testing.T) {
	var gotAuth, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"tracks": {"items": [
				{
					"uri": "spotify:track:1",
					"name": "Song One",
					"artists": [{"name": "Artist A"}, {"name": "Feature B"}],
					"duration_ms": 201000,
					"album": {"images": [{"url": "http://img/1"}]}
				},
				{
					"uri": "spotify:track:2",
					"name": "Song Two",
					"artists": [],
					"duration_ms": 95000,
					"album": {"images": []}
				}
			]}
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	tracks, err := c.Search(context.Background(), "tok-123", "song")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "song", gotQuery)
	require.Len(t, tracks, 2)
	assert.Equal(t, "spotify:track:1", tracks[0].URI)
	assert.Equal(t, "Artist A", tracks[0].Artist, "first artist wins")
	assert.Equal(t, "http://img/1", tracks[0].ArtworkURL)
	assert.Equal(t, "Song Two", tracks[1].Title)
	assert.Empty(t, tracks[1].Artist)
}

func TestSearchEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"tracks": map[string]interface{}{"items": []interface{}{}}})
	}))
	defer server.Close()

	tracks, err := NewClient(server.URL).Search(context.Background(), "tok", "nothing")
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestPlayContextSendsOffset(t *testing.T) {
	var gotBody map[string]interface{}
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewClient(server.URL).PlayContext(context.Background(), "tok", "spotify:playlist:xyz", 0)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/me/player/play", gotPath)
	assert.Equal(t, "spotify:playlist:xyz", gotBody["context_uri"])
	offset := gotBody["offset"].(map[string]interface{})
	assert.EqualValues(t, 0, offset["position"])
}

func TestAuthFailureIsDistinguishable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The access token expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewClient(server.URL).Pause(context.Background(), "stale")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
