// Package rank derives daily leaderboard standings from a snapshot of
// riffs. It is a pure transformation: no state, no persistence, safe to
// recompute on every read.
package rank

import (
	"sort"

	"riffd/internal/model"
)

// Build orders a day's riffs into leaderboard entries. Riffs are sorted
// by like count descending; ties break by earliest creation time so the
// ordering is a deterministic total order. Rank is the 1-based position
// and ranks 1-3 carry medals.
func Build(riffs []*model.Riff) []model.LeaderboardEntry {
	sorted := make([]*model.Riff, len(riffs))
	copy(sorted, riffs)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LikeCount != sorted[j].LikeCount {
			return sorted[i].LikeCount > sorted[j].LikeCount
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	entries := make([]model.LeaderboardEntry, 0, len(sorted))
	for i, riff := range sorted {
		position := i + 1
		entries = append(entries, model.LeaderboardEntry{
			UserID:     riff.AuthorID,
			Username:   riff.AuthorUsername,
			TodayLikes: riff.LikeCount,
			Rank:       position,
			Medal:      model.MedalForRank(position),
		})
	}
	return entries
}
