// internal/handlers/session_router_test.go
package handlers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribalfm/tribal/internal/models"
	"github.com/tribalfm/tribal/internal/player"
	"github.com/tribalfm/tribal/internal/room"
)

// fakeStore is an in-memory Store for router tests.
type fakeStore struct {
	playlists map[string]*models.Playlist
	songs     map[string][]*models.Song
	insertErr error

	// persisted captures the song order written by UpdateSongOrderAfterVote,
	// front of queue first.
	persisted map[string][]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		playlists: make(map[string]*models.Playlist),
		songs:     make(map[string][]*models.Song),
		persisted: make(map[string][]uuid.UUID),
	}
}

func (f *fakeStore) GetPlaylistByHash(ctx context.Context, hash string) (*models.Playlist, error) {
	p, ok := f.playlists[hash]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) GetSongsForPlaylist(ctx context.Context, hash string) ([]*models.Song, error) {
	return f.songs[hash], nil
}

func (f *fakeStore) GetSongForPlaylist(ctx context.Context, songID uuid.UUID, hash string) (*models.Song, error) {
	for _, s := range f.songs[hash] {
		if s.ID == songID {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) InsertSong(ctx context.Context, s *models.Song) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	s.ID = uuid.New()
	s.Index = len(f.songs[s.PlaylistHash])
	f.songs[s.PlaylistHash] = append(f.songs[s.PlaylistHash], s)
	return nil
}

func (f *fakeStore) AddSongUpvote(ctx context.Context, hash string, songID uuid.UUID) (int, int, error) {
	s, err := f.GetSongForPlaylist(ctx, songID, hash)
	if err != nil {
		return 0, 0, err
	}
	// The engine already bumped the in-memory counter; the store is the same
	// object here, so just report it.
	return s.Upvotes, s.Downvotes, nil
}

func (f *fakeStore) AddSongDownvote(ctx context.Context, hash string, songID uuid.UUID) (int, int, error) {
	s, err := f.GetSongForPlaylist(ctx, songID, hash)
	if err != nil {
		return 0, 0, err
	}
	return s.Upvotes, s.Downvotes, nil
}

func (f *fakeStore) UpdateSongOrderAfterVote(ctx context.Context, hash string, unplayed []*models.Song) error {
	order := make([]uuid.UUID, len(unplayed))
	for _, s := range unplayed {
		order[s.Index] = s.ID
	}
	f.persisted[hash] = order
	return nil
}

// fakeAPI counts remote playback commands.
type fakeAPI struct {
	plays, resumes, pauses int
}

func (f *fakeAPI) PlayContext(ctx context.Context, token, contextURI string, position int) error {
	f.plays++
	return nil
}
func (f *fakeAPI) Resume(ctx context.Context, token string) error { f.resumes++; return nil }
func (f *fakeAPI) Pause(ctx context.Context, token string) error  { f.pauses++; return nil }

func newTestSession(fs *fakeStore, api *fakeAPI) *SessionServer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	coord := &player.Coordinator{
		API:      api,
		Log:      logger,
		GetSongs: fs.GetSongsForPlaylist,
		GetAccount: func(ctx context.Context, id uuid.UUID) (*models.Account, error) {
			return &models.Account{ID: id, AccessToken: "tok"}, nil
		},
		SetStatus: func(ctx context.Context, hash, status string) error {
			if p, ok := fs.playlists[hash]; ok {
				p.Status = status
			}
			return nil
		},
		MarkPlayed: func(ctx context.Context, songID uuid.UUID) error {
			for _, songs := range fs.songs {
				for _, s := range songs {
					if s.ID == songID {
						s.Played = true
					}
				}
			}
			return nil
		},
	}
	return &SessionServer{
		Registry: room.NewRegistry(),
		Player:   coord,
		Store:    fs,
		Log:      logger,
	}
}

func drain(c *room.Conn) []map[string]interface{} {
	var msgs []map[string]interface{}
	for {
		select {
		case m := <-c.OutChan:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func joinedPair(t *testing.T, ss *SessionServer, hash string) (*room.Conn, *room.Conn) {
	t.Helper()
	a := room.NewConn()
	b := room.NewConn()
	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{"type": "playlist", "hash": hash})
	ss.handleSessionMessage(context.Background(), b, map[string]interface{}{"type": "playlist", "hash": hash})
	require.Empty(t, drain(a), "join must be silent")
	require.Empty(t, drain(b), "join must be silent")
	return a, b
}

func TestJoinUnknownPlaylistSendsError(t *testing.T) {
	ss := newTestSession(newFakeStore(), &fakeAPI{})
	conn := room.NewConn()

	ss.handleSessionMessage(context.Background(), conn, map[string]interface{}{
		"type": "playlist", "hash": "missing",
	})

	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0]["type"])
	_, exists := ss.Registry.Get("missing")
	assert.False(t, exists)
}

func TestAddSongBroadcastsToOthersOnly(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	ss := newTestSession(fs, &fakeAPI{})
	a, b := joinedPair(t, ss, "p1")

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{
		"type": "add song",
		"hash": "p1",
		"song": map[string]interface{}{
			"trackUri": "spotify:track:x",
			"artist":   "Artist",
			"title":    "X",
		},
	})

	assert.Empty(t, drain(a), "sender must not receive song added")

	msgs := drain(b)
	require.Len(t, msgs, 1)
	assert.Equal(t, "song added", msgs[0]["type"])
	song := msgs[0]["song"].(*models.Song)
	assert.Equal(t, 0, song.Upvotes)
	assert.Equal(t, 0, song.Downvotes)
	assert.Equal(t, "spotify:track:x", song.TrackURI)
}

func TestVoteOnUnknownHashFailsWithoutBroadcast(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	ss := newTestSession(fs, &fakeAPI{})
	a, b := joinedPair(t, ss, "p1")

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{
		"type":      "voting",
		"hash":      "no-such-playlist",
		"songId":    uuid.New().String(),
		"direction": "upvote",
		"index":     float64(0),
	})

	msgs := drain(a)
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0]["type"])
	assert.Empty(t, drain(b), "failed vote must not broadcast")
}

func TestVoteBroadcastsCountersAndReorders(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	for i := 0; i < 3; i++ {
		fs.songs["p1"] = append(fs.songs["p1"], &models.Song{
			ID: uuid.New(), PlaylistHash: "p1", Index: i,
		})
	}
	ss := newTestSession(fs, &fakeAPI{})
	a, b := joinedPair(t, ss, "p1")
	third := fs.songs["p1"][2]

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{
		"type":      "voting",
		"hash":      "p1",
		"songId":    third.ID.String(),
		"direction": "upvote",
		"index":     float64(2),
	})

	assert.Empty(t, drain(a), "sender must not receive voted")

	msgs := drain(b)
	require.Len(t, msgs, 1)
	assert.Equal(t, "voted", msgs[0]["type"])
	assert.Equal(t, third.ID.String(), msgs[0]["songId"])
	assert.Equal(t, 2, msgs[0]["index"])
	assert.Equal(t, []int{1, 0, 0}, msgs[0]["upvotes"], "upvoted song leads the queue")
	assert.Equal(t, []int{0, 0, 0}, msgs[0]["downvotes"])
	assert.Equal(t, 0, third.Index)
}

func TestVoteAfterAdvancePersistsBroadcastOrder(t *testing.T) {
	// Once the first song has played, stored positions of the unplayed songs
	// start at 1. The order written back must still match the order clients
	// were shown, not a window computed from stored positions.
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	played := &models.Song{ID: uuid.New(), PlaylistHash: "p1", Index: 0, Played: true}
	a := &models.Song{ID: uuid.New(), PlaylistHash: "p1", Index: 1}
	b := &models.Song{ID: uuid.New(), PlaylistHash: "p1", Index: 2}
	c := &models.Song{ID: uuid.New(), PlaylistHash: "p1", Index: 3}
	fs.songs["p1"] = []*models.Song{played, a, b, c}
	ss := newTestSession(fs, &fakeAPI{})
	sender, other := joinedPair(t, ss, "p1")

	ss.handleSessionMessage(context.Background(), sender, map[string]interface{}{
		"type":      "voting",
		"hash":      "p1",
		"songId":    a.ID.String(),
		"direction": "downvote",
		"index":     float64(0),
	})

	msgs := drain(other)
	require.Len(t, msgs, 1)
	assert.Equal(t, "voted", msgs[0]["type"])
	assert.Equal(t, []int{0, 0, 1}, msgs[0]["downvotes"], "downvoted song trails the queue")

	require.Len(t, fs.persisted["p1"], 3)
	assert.Equal(t, []uuid.UUID{b.ID, c.ID, a.ID}, fs.persisted["p1"],
		"persisted order must equal the broadcast order")
}

func TestReorderBroadcastsSortedUnplayed(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	played := &models.Song{ID: uuid.New(), PlaylistHash: "p1", Played: true}
	s0 := &models.Song{ID: uuid.New(), PlaylistHash: "p1", Index: 1}
	s1 := &models.Song{ID: uuid.New(), PlaylistHash: "p1", Index: 0}
	fs.songs["p1"] = []*models.Song{played, s0, s1}
	ss := newTestSession(fs, &fakeAPI{})
	a, b := joinedPair(t, ss, "p1")

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{
		"type": "reorder", "hash": "p1",
	})

	msgs := drain(b)
	require.Len(t, msgs, 1)
	assert.Equal(t, "reordered", msgs[0]["type"])
	songs := msgs[0]["songs"].([]*models.Song)
	require.Len(t, songs, 2, "played songs are filtered out")
	assert.Equal(t, s1.ID, songs[0].ID)
	assert.Equal(t, s0.ID, songs[1].ID)
	assert.Empty(t, drain(a))
}

func TestTransportLifecycle(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1", SpotifyID: "ext"}
	song := &models.Song{ID: uuid.New(), PlaylistHash: "p1"}
	fs.songs["p1"] = []*models.Song{song}
	api := &fakeAPI{}
	ss := newTestSession(fs, api)
	a, b := joinedPair(t, ss, "p1")

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{"type": "start", "hash": "p1"})
	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{"type": "pause", "hash": "p1"})
	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{"type": "resume", "hash": "p1"})

	assert.Empty(t, drain(a))

	msgs := drain(b)
	require.Len(t, msgs, 3)
	assert.Equal(t, "starting", msgs[0]["type"])
	assert.Equal(t, "paused", msgs[1]["type"])
	assert.Equal(t, "resuming", msgs[2]["type"])

	assert.Equal(t, 1, api.plays)
	assert.Equal(t, 1, api.pauses)
	assert.Equal(t, 1, api.resumes)

	r, ok := ss.Registry.Get("p1")
	require.True(t, ok)
	assert.Equal(t, models.StatusPlaying, r.State)
	assert.Equal(t, models.StatusPlaying, fs.playlists["p1"].Status)
}

func TestStartWithoutAccountReportsDistinctError(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	fs.songs["p1"] = []*models.Song{{ID: uuid.New(), PlaylistHash: "p1"}}
	api := &fakeAPI{}
	ss := newTestSession(fs, api)
	ss.Player.GetAccount = func(ctx context.Context, id uuid.UUID) (*models.Account, error) {
		return nil, pgx.ErrNoRows
	}
	a, b := joinedPair(t, ss, "p1")

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{"type": "start", "hash": "p1"})

	msgs := drain(a)
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0]["type"])
	assert.Equal(t, "no playback account linked", msgs[0]["message"],
		"a missing account must not read as an empty queue")
	assert.Empty(t, drain(b))
	assert.Zero(t, api.plays)
}

func TestStartOnEmptyQueueReportsError(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	api := &fakeAPI{}
	ss := newTestSession(fs, api)
	a, b := joinedPair(t, ss, "p1")

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{"type": "start", "hash": "p1"})

	msgs := drain(a)
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0]["type"])
	assert.Empty(t, drain(b), "no broadcast when playback cannot start")
	assert.Zero(t, api.plays, "no remote call on empty queue")
}

func TestSongEndedAdvancesAndBroadcastsCurrent(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	first := &models.Song{ID: uuid.New(), PlaylistHash: "p1", Index: 0}
	second := &models.Song{ID: uuid.New(), PlaylistHash: "p1", Index: 1}
	fs.songs["p1"] = []*models.Song{first, second}
	ss := newTestSession(fs, &fakeAPI{})
	a, b := joinedPair(t, ss, "p1")

	r, _ := ss.Registry.Get("p1")
	r.Current = first
	r.State = models.StatusPlaying

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{"type": "songEnded", "hash": "p1"})

	msgs := drain(b)
	require.Len(t, msgs, 1)
	assert.Equal(t, "currentSong", msgs[0]["type"])
	next := msgs[0]["song"].(*models.Song)
	assert.Equal(t, second.ID, next.ID)
	assert.True(t, first.Played)
	assert.Empty(t, drain(a))
}

func TestPureNotificationEvents(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	ss := newTestSession(fs, &fakeAPI{})
	a, b := joinedPair(t, ss, "p1")

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{"type": "removeLastPlayed", "hash": "p1"})
	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{"type": "playlistEnded", "hash": "p1"})

	msgs := drain(b)
	require.Len(t, msgs, 2)
	assert.Equal(t, "remove last song", msgs[0]["type"])
	assert.Equal(t, "restart playlist", msgs[1]["type"])
	assert.Empty(t, drain(a))
}

func TestDisconnectLeavesEveryRoom(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["r1"] = &models.Playlist{Hash: "r1"}
	fs.playlists["r2"] = &models.Playlist{Hash: "r2"}
	ss := newTestSession(fs, &fakeAPI{})

	gone := room.NewConn()
	stay := room.NewConn()
	for _, h := range []string{"r1", "r2"} {
		ss.handleSessionMessage(context.Background(), gone, map[string]interface{}{"type": "playlist", "hash": h})
		ss.handleSessionMessage(context.Background(), stay, map[string]interface{}{"type": "playlist", "hash": h})
	}

	ss.Registry.LeaveAll(gone)

	ss.Registry.Broadcast("r1", "voted", nil, nil)
	ss.Registry.Broadcast("r2", "reordered", nil, nil)
	assert.Empty(t, drain(gone))
	assert.Len(t, drain(stay), 2)
}

func TestPersistenceFailureSuppressesBroadcast(t *testing.T) {
	fs := newFakeStore()
	fs.playlists["p1"] = &models.Playlist{Hash: "p1"}
	fs.insertErr = assert.AnError
	ss := newTestSession(fs, &fakeAPI{})
	a, b := joinedPair(t, ss, "p1")

	ss.handleSessionMessage(context.Background(), a, map[string]interface{}{
		"type": "add song",
		"hash": "p1",
		"song": map[string]interface{}{"trackUri": "spotify:track:x"},
	})

	msgs := drain(a)
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0]["type"])
	assert.Empty(t, drain(b), "failed persistence must suppress the broadcast")
}
