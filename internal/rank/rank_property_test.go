// Property-based tests for leaderboard ordering.
package rank

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"riffd/internal/model"
)

// TestBuildOrderingProperty checks that for any set of riffs the
// standings are a total order: likes descending, ties broken by earliest
// creation, ranks dense from 1, medals only on the top three.
func TestBuildOrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numRiffs := rapid.IntRange(0, 50).Draw(t, "numRiffs")
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		riffs := make([]*model.Riff, numRiffs)
		for i := 0; i < numRiffs; i++ {
			riffs[i] = &model.Riff{
				ID:             rapid.StringMatching(`[a-z0-9]{8}`).Draw(t, "id"),
				AuthorID:       rapid.StringMatching(`user-[a-z]{4}`).Draw(t, "authorID"),
				AuthorUsername: rapid.StringMatching(`[a-z]{3,10}`).Draw(t, "username"),
				LikeCount:      rapid.IntRange(0, 100).Draw(t, "likes"),
				// Distinct creation times keep the tiebreak unambiguous.
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
		}

		entries := Build(riffs)

		if len(entries) != numRiffs {
			t.Fatalf("expected %d entries, got %d", numRiffs, len(entries))
		}

		for i, entry := range entries {
			if entry.Rank != i+1 {
				t.Fatalf("rank at position %d is %d", i, entry.Rank)
			}
			if want := model.MedalForRank(i + 1); entry.Medal != want {
				t.Fatalf("medal at rank %d is %q, want %q", i+1, entry.Medal, want)
			}
			if i == 0 {
				continue
			}
			prev := entries[i-1]
			if prev.TodayLikes < entry.TodayLikes {
				t.Fatalf("likes not descending at position %d: %d < %d", i, prev.TodayLikes, entry.TodayLikes)
			}
		}

		// The entries are a permutation of the input riffs.
		inputLikes := make(map[string][]int)
		for _, riff := range riffs {
			inputLikes[riff.AuthorID] = append(inputLikes[riff.AuthorID], riff.LikeCount)
		}
		outputLikes := make(map[string][]int)
		for _, entry := range entries {
			outputLikes[entry.UserID] = append(outputLikes[entry.UserID], entry.TodayLikes)
		}
		for author, likes := range inputLikes {
			if len(outputLikes[author]) != len(likes) {
				t.Fatalf("author %s has %d entries, want %d", author, len(outputLikes[author]), len(likes))
			}
		}
	})
}

// TestBuildTiebreakProperty checks that among riffs with equal likes the
// earlier submission always ranks higher.
func TestBuildTiebreakProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numRiffs := rapid.IntRange(2, 30).Draw(t, "numRiffs")
		likes := rapid.IntRange(0, 5).Draw(t, "likes")
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		riffs := make([]*model.Riff, numRiffs)
		creation := make(map[string]time.Time)
		for i := 0; i < numRiffs; i++ {
			id := rapid.StringMatching(`[a-z0-9]{12}`).Draw(t, "id")
			createdAt := base.Add(time.Duration(rapid.IntRange(0, 10000).Draw(t, "offset")) * time.Millisecond)
			riffs[i] = &model.Riff{
				ID:        id,
				AuthorID:  id,
				LikeCount: likes,
				CreatedAt: createdAt,
			}
			creation[id] = createdAt
		}

		entries := Build(riffs)

		for i := 1; i < len(entries); i++ {
			prev := creation[entries[i-1].UserID]
			cur := creation[entries[i].UserID]
			if prev.After(cur) {
				t.Fatalf("later riff ranked above earlier one at position %d", i)
			}
		}
	})
}
