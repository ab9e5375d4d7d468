// internal/handlers/session_router.go
package handlers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tribalfm/tribal/internal/cache"
	"github.com/tribalfm/tribal/internal/models"
	"github.com/tribalfm/tribal/internal/player"
	"github.com/tribalfm/tribal/internal/queue"
	"github.com/tribalfm/tribal/internal/room"
)

// handleSessionMessage interprets one client event. Persistence failures are
// logged and the corresponding broadcast suppressed; the sender gets a typed
// error event instead, and the connection is never torn down over a
// data-layer failure.
func (ss *SessionServer) handleSessionMessage(ctx context.Context, conn *room.Conn, packet map[string]interface{}) {
	action, _ := packet["type"].(string)
	hash, _ := packet["hash"].(string)

	switch action {
	case "playlist":
		ss.handleJoin(ctx, conn, hash)
	case "add song":
		ss.handleAddSong(ctx, conn, hash, packet)
	case "voting":
		ss.handleVote(ctx, conn, hash, packet)
	case "reorder":
		ss.handleReorder(ctx, conn, hash)
	case "start":
		ss.handleTransport(ctx, conn, hash, "start")
	case "resume":
		ss.handleTransport(ctx, conn, hash, "resume")
	case "pause":
		ss.handleTransport(ctx, conn, hash, "pause")
	case "songEnded":
		ss.handleSongEnded(ctx, conn, hash)
	case "removeLastPlayed":
		// Pure notification, nothing persisted.
		ss.Registry.Broadcast(hash, "remove last song", nil, conn)
	case "playlistEnded":
		ss.Registry.Broadcast(hash, "restart playlist", nil, conn)
	default:
		ss.Log.Warnf("session: unknown action '%s' from conn %s", action, conn.ID)
		conn.WriteError("unknown action type: " + action)
	}
}

// handleJoin resolves the playlist hash and adds the connection to its room.
// Join is silent: no broadcast.
func (ss *SessionServer) handleJoin(ctx context.Context, conn *room.Conn, hash string) {
	if _, err := ss.Store.GetPlaylistByHash(ctx, hash); err != nil {
		ss.Log.Warnf("session: join failed for hash %s: %v", hash, err)
		conn.WriteError("playlist not found")
		return
	}
	ss.Registry.Join(conn, hash)
	ss.Log.Infof("session: conn %s joined room %s", conn.ID, hash)
}

func (ss *SessionServer) handleAddSong(ctx context.Context, conn *room.Conn, hash string, packet map[string]interface{}) {
	raw, _ := packet["song"].(map[string]interface{})
	if raw == nil {
		conn.WriteError("missing song payload")
		return
	}

	song := &models.Song{PlaylistHash: hash}
	song.TrackURI, _ = raw["trackUri"].(string)
	song.Artist, _ = raw["artist"].(string)
	song.Title, _ = raw["title"].(string)
	song.ArtworkURL, _ = raw["artworkUrl"].(string)
	if d, ok := raw["durationMs"].(float64); ok {
		song.DurationMs = int(d)
	}

	r, ok := ss.Registry.Get(hash)
	if !ok {
		conn.WriteError("not in a room for this playlist")
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	// InsertSong zeroes the vote counters and assigns the next free index.
	if err := ss.Store.InsertSong(ctx, song); err != nil {
		ss.Log.Warnf("session: failed to persist song for %s: %v", hash, err)
		conn.WriteError("failed to add song")
		return
	}

	ss.Registry.Broadcast(hash, "song added", map[string]interface{}{"song": song}, conn)
	ss.journal(ctx, hash, conn.ID, "song added", map[string]interface{}{"trackUri": song.TrackURI})
}

func (ss *SessionServer) handleVote(ctx context.Context, conn *room.Conn, hash string, packet map[string]interface{}) {
	songIDStr, _ := packet["songId"].(string)
	songID, err := uuid.Parse(songIDStr)
	if err != nil {
		conn.WriteError("invalid songId")
		return
	}
	dir := queue.Upvote
	if d, _ := packet["direction"].(string); d == string(queue.Downvote) {
		dir = queue.Downvote
	}
	origin, _ := packet["index"].(float64)

	if _, err := ss.Store.GetPlaylistByHash(ctx, hash); err != nil {
		ss.Log.Warnf("session: vote on unknown playlist %s: %v", hash, err)
		conn.WriteError("playlist not found")
		return
	}

	r, ok := ss.Registry.Get(hash)
	if !ok {
		conn.WriteError("not in a room for this playlist")
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	songs, err := ss.Store.GetSongsForPlaylist(ctx, hash)
	if err != nil {
		ss.Log.Warnf("session: vote failed to load songs for %s: %v", hash, err)
		conn.WriteError("failed to load playlist songs")
		return
	}

	res, err := queue.ApplyVote(songs, songID, dir)
	if err != nil {
		ss.Log.Warnf("session: vote on unknown song %s in %s: %v", songID, hash, err)
		conn.WriteError("song not found")
		return
	}

	// Counter increment is SQL-side; the returned values are authoritative.
	var up, down int
	if dir == queue.Downvote {
		up, down, err = ss.Store.AddSongDownvote(ctx, hash, songID)
	} else {
		up, down, err = ss.Store.AddSongUpvote(ctx, hash, songID)
	}
	if err != nil {
		ss.Log.Warnf("session: failed to persist vote for song %s: %v", songID, err)
		conn.WriteError("failed to record vote")
		return
	}
	res.Song.Upvotes = up
	res.Song.Downvotes = down

	// res.Unplayed is nil for votes on already-played songs; nothing moved.
	if res.Unplayed != nil {
		if err := ss.Store.UpdateSongOrderAfterVote(ctx, hash, res.Unplayed); err != nil {
			ss.Log.Warnf("session: failed to persist reorder for song %s: %v", songID, err)
			conn.WriteError("failed to persist queue order")
			return
		}
	}

	upvotes := make([]int, len(res.Unplayed))
	downvotes := make([]int, len(res.Unplayed))
	for i, s := range res.Unplayed {
		upvotes[i] = s.Upvotes
		downvotes[i] = s.Downvotes
	}

	ss.Registry.Broadcast(hash, "voted", map[string]interface{}{
		"songId":    songID.String(),
		"index":     int(origin),
		"upvotes":   upvotes,
		"downvotes": downvotes,
	}, conn)
	ss.journal(ctx, hash, conn.ID, "voted", map[string]interface{}{
		"songId":    songID.String(),
		"direction": string(dir),
	})
}

func (ss *SessionServer) handleReorder(ctx context.Context, conn *room.Conn, hash string) {
	songs, err := ss.Store.GetSongsForPlaylist(ctx, hash)
	if err != nil {
		ss.Log.Warnf("session: reorder failed to load songs for %s: %v", hash, err)
		conn.WriteError("failed to load playlist songs")
		return
	}
	unplayed := queue.SortUnplayed(songs)
	ss.Registry.Broadcast(hash, "reordered", map[string]interface{}{"songs": unplayed}, conn)
}

// handleTransport runs the play/resume/pause transitions through the
// playback coordinator and fans out the state-change notification.
func (ss *SessionServer) handleTransport(ctx context.Context, conn *room.Conn, hash, action string) {
	playlist, err := ss.Store.GetPlaylistByHash(ctx, hash)
	if err != nil {
		ss.Log.Warnf("session: %s on unknown playlist %s: %v", action, hash, err)
		conn.WriteError("playlist not found")
		return
	}

	r, ok := ss.Registry.Get(hash)
	if !ok {
		conn.WriteError("not in a room for this playlist")
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	switch action {
	case "start":
		song, err := ss.Player.Play(ctx, r, playlist)
		if err != nil {
			switch {
			case errors.Is(err, player.ErrEmptyQueue):
				conn.WriteError("nothing to play")
			case errors.Is(err, player.ErrNoAccount):
				conn.WriteError("no playback account linked")
			default:
				conn.WriteError("failed to start playback")
			}
			ss.Log.Warnf("session: start failed for %s: %v", hash, err)
			return
		}
		ss.Registry.Broadcast(hash, "starting", map[string]interface{}{"song": song}, conn)
	case "resume":
		if err := ss.Player.Resume(ctx, r, playlist); err != nil {
			ss.Log.Warnf("session: resume failed for %s: %v", hash, err)
			if errors.Is(err, player.ErrNoAccount) {
				conn.WriteError("no playback account linked")
			} else {
				conn.WriteError("failed to resume playback")
			}
			return
		}
		ss.Registry.Broadcast(hash, "resuming", nil, conn)
	case "pause":
		if err := ss.Player.Pause(ctx, r, playlist); err != nil {
			ss.Log.Warnf("session: pause failed for %s: %v", hash, err)
			if errors.Is(err, player.ErrNoAccount) {
				conn.WriteError("no playback account linked")
			} else {
				conn.WriteError("failed to pause playback")
			}
			return
		}
		ss.Registry.Broadcast(hash, "paused", nil, conn)
	}
	ss.journal(ctx, hash, conn.ID, action, nil)
}

func (ss *SessionServer) handleSongEnded(ctx context.Context, conn *room.Conn, hash string) {
	r, ok := ss.Registry.Get(hash)
	if !ok {
		conn.WriteError("not in a room for this playlist")
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	next, err := ss.Player.Advance(ctx, r, hash)
	if err != nil {
		ss.Log.Warnf("session: failed to advance playlist %s: %v", hash, err)
		conn.WriteError("failed to advance queue")
		return
	}

	payload := map[string]interface{}{}
	if next != nil {
		payload["song"] = next
	}
	ss.Registry.Broadcast(hash, "currentSong", payload, conn)
}

// journal pushes an event record to the Redis analytics list, best effort.
func (ss *SessionServer) journal(ctx context.Context, hash string, connID uuid.UUID, event string, payload map[string]interface{}) {
	err := cache.PublishQueueEvent(ctx, cache.QueueEventRecord{
		PlaylistHash: hash,
		ConnID:       connID,
		EventType:    event,
		Payload:      payload,
	})
	if err != nil {
		ss.Log.Warnf("session: failed to journal %s event for %s: %v", event, hash, err)
	}
}
