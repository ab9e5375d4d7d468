// internal/spotify/client.go

// Package spotify is a thin client for the external music catalog and
// playback-control API. All calls carry a bearer token; failures surface as
// *APIError so callers can tell a remote rejection from a local one.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://api.spotify.com/v1"

// APIError is a non-2xx response from the remote service. Auth failures come
// back as 401/403, which is how token expiry shows up to callers.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: status %d: %s", e.Status, e.Body)
}

// Track is one search result, trimmed to what queue clients render.
type Track struct {
	URI        string `json:"uri"`
	Artist     string `json:"artist"`
	Title      string `json:"title"`
	ArtworkURL string `json:"image"`
	DurationMs int    `json:"durationMs"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			URI     string `json:"uri"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			DurationMs int `json:"duration_ms"`
			Album      struct {
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
		} `json:"items"`
	} `json:"tracks"`
}

// Search queries the catalog by free text and returns the ranked tracks.
// An empty result set is returned as an empty slice, not an error.
func (c *Client) Search(ctx context.Context, token, query string) ([]Track, error) {
	val := url.Values{}
	val.Set("q", query)
	val.Set("type", "track")

	body, err := c.do(ctx, http.MethodGet, "/search?"+val.Encode(), token, nil)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("spotify: decode search response: %w", err)
	}

	tracks := make([]Track, 0, len(parsed.Tracks.Items))
	for _, item := range parsed.Tracks.Items {
		t := Track{
			URI:        item.URI,
			Title:      item.Name,
			DurationMs: item.DurationMs,
		}
		if len(item.Artists) > 0 {
			t.Artist = item.Artists[0].Name
		}
		if len(item.Album.Images) > 0 {
			t.ArtworkURL = item.Album.Images[0].URL
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// PlayContext starts playback of a context (playlist) at the given track
// offset on the account's active device.
func (c *Client) PlayContext(ctx context.Context, token, contextURI string, position int) error {
	payload := map[string]interface{}{
		"context_uri": contextURI,
		"offset":      map[string]int{"position": position},
	}
	_, err := c.do(ctx, http.MethodPut, "/me/player/play", token, payload)
	return err
}

// Resume continues playback where it was paused.
func (c *Client) Resume(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPut, "/me/player/play", token, nil)
	return err
}

// Pause halts playback.
func (c *Client) Pause(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPut, "/me/player/pause", token, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, payload interface{}) ([]byte, error) {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: buf.String()}
	}
	return buf.Bytes(), nil
}
