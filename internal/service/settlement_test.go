package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riffd/internal/model"
	"riffd/internal/repository"
)

// fakeSettlementStore settles each day at most once, like the Postgres
// repository's settlement claim. riffDays lists the days that have
// riffs and are therefore eligible for settlement.
type fakeSettlementStore struct {
	riffDays []string
	settled  map[string]bool
	boards   map[string][]model.LeaderboardEntry
	calls    int
}

func newFakeSettlementStore() *fakeSettlementStore {
	return &fakeSettlementStore{
		settled: make(map[string]bool),
		boards:  make(map[string][]model.LeaderboardEntry),
	}
}

func (s *fakeSettlementStore) SettleDay(_ context.Context, day string) ([]model.LeaderboardEntry, error) {
	s.calls++
	if s.settled[day] {
		return nil, repository.ErrDaySettled
	}
	s.settled[day] = true
	return s.boards[day], nil
}

func (s *fakeSettlementStore) UnsettledDays(_ context.Context, through string) ([]string, error) {
	var days []string
	for _, day := range s.riffDays {
		if day <= through && !s.settled[day] {
			days = append(days, day)
		}
	}
	sort.Strings(days)
	return days, nil
}

func TestClosingDay(t *testing.T) {
	// A settlement run just after the boundary closes yesterday.
	runAt := time.Date(2026, 3, 11, 4, 0, 1, 0, time.UTC)
	assert.Equal(t, "2026-03-10", ClosingDay(runAt))

	// Month and year boundaries roll over correctly.
	runAt = time.Date(2026, 1, 1, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-12-31", ClosingDay(runAt))
}

func TestSettlement_SettleDay(t *testing.T) {
	store := newFakeSettlementStore()
	store.boards["2026-03-10"] = []model.LeaderboardEntry{
		{UserID: "u1", Rank: 1, Medal: model.MedalGold},
		{UserID: "u2", Rank: 2, Medal: model.MedalSilver},
	}
	cycle, err := NewDailyCycle(testCatalog, 4)
	require.NoError(t, err)
	settlement := NewSettlement(store, cycle)

	entries, err := settlement.SettleDay(context.Background(), "2026-03-10")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// A repeat run is a conflict.
	_, err = settlement.SettleDay(context.Background(), "2026-03-10")
	assert.ErrorIs(t, err, ErrDaySettled)
}

func TestSettlement_SettleClosedDay_Idempotent(t *testing.T) {
	store := newFakeSettlementStore()
	store.riffDays = []string{"2026-03-10"}
	cycle, err := NewDailyCycle(testCatalog, 4)
	require.NoError(t, err)

	settlement := NewSettlement(store, cycle)
	settlement.now = func() time.Time {
		return time.Date(2026, 3, 11, 4, 0, 5, 0, time.UTC)
	}

	// The first run settles; repeats find nothing left to do.
	require.NoError(t, settlement.SettleClosedDay(context.Background()))
	require.NoError(t, settlement.SettleClosedDay(context.Background()))
	require.NoError(t, settlement.SettleClosedDay(context.Background()))

	assert.Equal(t, 1, store.calls)
	assert.True(t, store.settled["2026-03-10"])
	assert.Len(t, store.settled, 1)
}

func TestSettlement_SettleClosedDay_BackfillsMissedDays(t *testing.T) {
	store := newFakeSettlementStore()
	// Three riff days closed during an outage; a fourth is still open.
	store.riffDays = []string{"2026-03-08", "2026-03-09", "2026-03-10", "2026-03-11"}
	cycle, err := NewDailyCycle(testCatalog, 4)
	require.NoError(t, err)

	settlement := NewSettlement(store, cycle)
	settlement.now = func() time.Time {
		return time.Date(2026, 3, 11, 4, 0, 5, 0, time.UTC)
	}

	require.NoError(t, settlement.SettleClosedDay(context.Background()))

	assert.True(t, store.settled["2026-03-08"])
	assert.True(t, store.settled["2026-03-09"])
	assert.True(t, store.settled["2026-03-10"])

	// The day still in progress is untouched.
	assert.False(t, store.settled["2026-03-11"])
	assert.Equal(t, 3, store.calls)
}
