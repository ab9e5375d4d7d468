// internal/queue/vote.go

// Package queue holds the pure vote-tally and reorder logic for a playlist's
// not-yet-played songs. It never touches the database; callers persist the
// results it reports.
package queue

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/tribalfm/tribal/internal/models"
)

// Direction is the vote direction sent by a client.
type Direction string

const (
	Upvote   Direction = "upvote"
	Downvote Direction = "downvote"
)

var ErrSongNotFound = errors.New("song not found in playlist")

// Result describes the outcome of applying one vote.
type Result struct {
	// Song is the voted-on entry with its counter and index updated.
	Song *models.Song

	// Delta is the signed rank movement of the voted song among unplayed
	// entries. Upvotes move toward the front (delta <= 0), downvotes toward
	// the back (delta >= 0). Zero for votes on already-played songs.
	Delta int

	// Unplayed is the resorted not-yet-played subsequence with contiguous
	// indices 0..n-1 assigned. Nil when the voted song was already played.
	Unplayed []*models.Song
}

// ApplyVote increments the matching counter on the identified song by exactly
// one, then recomputes the ordering of the unplayed subsequence: descending
// net score, stable on ties, indices reassigned 0..n-1.
//
// A vote on an already-played song records the counter but produces no
// reorder; the engine only operates on the unplayed subsequence.
func ApplyVote(songs []*models.Song, songID uuid.UUID, dir Direction) (*Result, error) {
	var voted *models.Song
	for _, s := range songs {
		if s.ID == songID {
			voted = s
			break
		}
	}
	if voted == nil {
		return nil, ErrSongNotFound
	}

	switch dir {
	case Downvote:
		voted.Downvotes++
	default:
		voted.Upvotes++
	}

	if voted.Played {
		return &Result{Song: voted}, nil
	}

	unplayed := SortUnplayed(songs)

	// Stored positions and ranks diverge once played songs leave a gap at the
	// front, so the movement is measured in rank space on both sides.
	before := 0
	for i, s := range unplayed {
		if s.ID == voted.ID {
			before = i
			break
		}
	}

	sort.SliceStable(unplayed, func(i, j int) bool {
		return unplayed[i].Score() > unplayed[j].Score()
	})
	for i, s := range unplayed {
		s.Index = i
	}

	return &Result{
		Song:     voted,
		Delta:    voted.Index - before,
		Unplayed: unplayed,
	}, nil
}

// SortUnplayed returns the not-yet-played subsequence ordered by stored
// position index. Applying it twice with no intervening vote yields the same
// ordering.
func SortUnplayed(songs []*models.Song) []*models.Song {
	unplayed := make([]*models.Song, 0, len(songs))
	for _, s := range songs {
		if !s.Played {
			unplayed = append(unplayed, s)
		}
	}
	sort.SliceStable(unplayed, func(i, j int) bool {
		return unplayed[i].Index < unplayed[j].Index
	})
	return unplayed
}
