// internal/player/player_test.go
package player

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribalfm/tribal/internal/models"
	"github.com/tribalfm/tribal/internal/room"
)

// mockAPI records remote playback commands instead of issuing them.
type mockAPI struct {
	plays   []string
	resumes int
	pauses  int
	fail    error
}

func (m *mockAPI) PlayContext(ctx context.Context, token, contextURI string, position int) error {
	m.plays = append(m.plays, contextURI)
	return m.fail
}

func (m *mockAPI) Resume(ctx context.Context, token string) error {
	m.resumes++
	return m.fail
}

func (m *mockAPI) Pause(ctx context.Context, token string) error {
	m.pauses++
	return m.fail
}

func newTestCoordinator(api *mockAPI, songs []*models.Song) (*Coordinator, *[]string) {
	statuses := &[]string{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &Coordinator{
		API: api,
		Log: logger,
		GetSongs: func(ctx context.Context, hash string) ([]*models.Song, error) {
			return songs, nil
		},
		GetAccount: func(ctx context.Context, id uuid.UUID) (*models.Account, error) {
			return &models.Account{ID: id, AccessToken: "tok"}, nil
		},
		SetStatus: func(ctx context.Context, hash, status string) error {
			*statuses = append(*statuses, status)
			return nil
		},
		MarkPlayed: func(ctx context.Context, songID uuid.UUID) error {
			for _, s := range songs {
				if s.ID == songID {
					s.Played = true
				}
			}
			return nil
		},
	}, statuses
}

func testRoom(hash string) *room.Room {
	reg := room.NewRegistry()
	return reg.Join(room.NewConn(), hash)
}

func queueOf(n int) []*models.Song {
	songs := make([]*models.Song, 0, n)
	for i := 0; i < n; i++ {
		songs = append(songs, &models.Song{ID: uuid.New(), Index: i})
	}
	return songs
}

func TestPlayStartsFirstUnplayedSong(t *testing.T) {
	api := &mockAPI{}
	songs := queueOf(3)
	songs[0].Played = true
	c, statuses := newTestCoordinator(api, songs)
	r := testRoom("h1")
	p := &models.Playlist{Hash: "h1", SpotifyID: "xyz"}

	current, err := c.Play(context.Background(), r, p)
	require.NoError(t, err)

	assert.Equal(t, songs[1].ID, current.ID)
	assert.Equal(t, []string{"spotify:playlist:xyz"}, api.plays)
	assert.Equal(t, models.StatusPlaying, r.State)
	assert.Equal(t, []string{models.StatusPlaying}, *statuses)
}

func TestPlayOnEmptyQueueSkipsRemoteCall(t *testing.T) {
	api := &mockAPI{}
	songs := queueOf(2)
	songs[0].Played = true
	songs[1].Played = true
	c, _ := newTestCoordinator(api, songs)
	r := testRoom("h1")

	_, err := c.Play(context.Background(), r, &models.Playlist{Hash: "h1"})

	assert.ErrorIs(t, err, ErrEmptyQueue)
	assert.Empty(t, api.plays, "no external API call on empty queue")
	assert.Equal(t, models.StatusStopped, r.State)
}

func TestPlayWithoutLinkedAccount(t *testing.T) {
	api := &mockAPI{}
	c, statuses := newTestCoordinator(api, queueOf(2))
	c.GetAccount = func(ctx context.Context, id uuid.UUID) (*models.Account, error) {
		return nil, pgx.ErrNoRows
	}
	r := testRoom("h1")

	_, err := c.Play(context.Background(), r, &models.Playlist{Hash: "h1"})

	assert.ErrorIs(t, err, ErrNoAccount)
	assert.Empty(t, api.plays, "no external API call without an account")
	assert.Empty(t, *statuses)
	assert.Equal(t, models.StatusStopped, r.State)
}

func TestPlayReportsRemoteFailure(t *testing.T) {
	api := &mockAPI{fail: errors.New("device offline")}
	c, statuses := newTestCoordinator(api, queueOf(1))
	r := testRoom("h1")

	_, err := c.Play(context.Background(), r, &models.Playlist{Hash: "h1"})

	require.Error(t, err)
	assert.Empty(t, *statuses, "status must not be persisted when play fails")
	assert.Equal(t, models.StatusStopped, r.State)
}

func TestPauseResumeAreOptimistic(t *testing.T) {
	api := &mockAPI{fail: errors.New("network down")}
	c, statuses := newTestCoordinator(api, queueOf(1))
	r := testRoom("h1")
	p := &models.Playlist{Hash: "h1"}

	require.NoError(t, c.Pause(context.Background(), r, p))
	assert.Equal(t, models.StatusPaused, r.State)

	require.NoError(t, c.Resume(context.Background(), r, p))
	assert.Equal(t, models.StatusPlaying, r.State)

	assert.Equal(t, 1, api.pauses)
	assert.Equal(t, 1, api.resumes)
	assert.Equal(t, []string{models.StatusPaused, models.StatusPlaying}, *statuses)
}

func TestAdvanceMovesToNextSong(t *testing.T) {
	api := &mockAPI{}
	songs := queueOf(2)
	c, _ := newTestCoordinator(api, songs)
	r := testRoom("h1")
	r.Current = songs[0]
	r.State = models.StatusPlaying

	next, err := c.Advance(context.Background(), r, "h1")
	require.NoError(t, err)

	require.NotNil(t, next)
	assert.Equal(t, songs[1].ID, next.ID)
	assert.True(t, songs[0].Played)
	assert.Equal(t, songs[1].ID, r.Current.ID)
}

func TestAdvancePastLastSongStops(t *testing.T) {
	api := &mockAPI{}
	songs := queueOf(1)
	c, statuses := newTestCoordinator(api, songs)
	r := testRoom("h1")
	r.Current = songs[0]
	r.State = models.StatusPlaying

	next, err := c.Advance(context.Background(), r, "h1")
	require.NoError(t, err)

	assert.Nil(t, next)
	assert.Nil(t, r.Current)
	assert.Equal(t, models.StatusStopped, r.State)
	assert.Equal(t, []string{models.StatusStopped}, *statuses)
}
