package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"riffd/internal/model"
	"riffd/internal/rank"
)

// LeaderboardCache caches a day's computed standings. Get returns a nil
// slice on a miss. Implementations may fail soft; the ranking service
// falls back to recomputing.
type LeaderboardCache interface {
	Get(ctx context.Context, day string) ([]model.LeaderboardEntry, error)
	Set(ctx context.Context, day string, entries []model.LeaderboardEntry, ttl time.Duration) error
	Invalidate(ctx context.Context, day string) error
}

// Ranking serves daily leaderboards. Standings are a pure function of
// the day's riffs, recomputed on every read; the optional cache only
// short-circuits the recomputation, Postgres stays authoritative.
type Ranking struct {
	store RiffStore
	cycle *DailyCycle
	cache LeaderboardCache // nil disables caching
	now   func() time.Time
}

// NewRanking creates a Ranking service. cache may be nil.
func NewRanking(store RiffStore, cycle *DailyCycle, cache LeaderboardCache) *Ranking {
	return &Ranking{
		store: store,
		cycle: cycle,
		cache: cache,
		now:   time.Now,
	}
}

// DailyLeaderboard returns the current day's standings.
func (r *Ranking) DailyLeaderboard(ctx context.Context) (string, []model.LeaderboardEntry, error) {
	now := r.now()
	day := DayKey(now)

	if r.cache != nil {
		entries, err := r.cache.Get(ctx, day)
		if err != nil {
			log.Warn().Err(err).Str("day", day).Msg("leaderboard cache read failed")
		} else if entries != nil {
			return day, entries, nil
		}
	}

	entries, err := r.LeaderboardForDay(ctx, day)
	if err != nil {
		return "", nil, err
	}

	if r.cache != nil {
		ttl := r.cycle.NextReset(now).Sub(now)
		if err := r.cache.Set(ctx, day, entries, ttl); err != nil {
			log.Warn().Err(err).Str("day", day).Msg("leaderboard cache write failed")
		}
	}
	return day, entries, nil
}

// LeaderboardForDay computes standings for an arbitrary day, bypassing
// the cache.
func (r *Ranking) LeaderboardForDay(ctx context.Context, day string) ([]model.LeaderboardEntry, error) {
	riffs, err := r.store.ListByDay(ctx, day, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load riffs for %s: %w", day, err)
	}
	return rank.Build(riffs), nil
}

// InvalidateToday drops the cached standings for the current day. The
// ledger does not push leaderboard updates; callers invalidate after a
// successful create, edit or vote.
func (r *Ranking) InvalidateToday(ctx context.Context) {
	if r.cache == nil {
		return
	}
	day := DayKey(r.now())
	if err := r.cache.Invalidate(ctx, day); err != nil {
		log.Warn().Err(err).Str("day", day).Msg("leaderboard cache invalidation failed")
	}
}
