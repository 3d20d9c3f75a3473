package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"riffd/internal/model"
	"riffd/internal/repository"
)

// SettlementStore claims a day and awards its medals in one atomic
// unit, and reports which riff days still await settlement.
type SettlementStore interface {
	SettleDay(ctx context.Context, day string) ([]model.LeaderboardEntry, error)
	UnsettledDays(ctx context.Context, through string) ([]string, error)
}

// Settlement runs the daily medal award: at each reset boundary the
// closing day's final top three are converted into lifetime tallies,
// exactly once per day.
type Settlement struct {
	store SettlementStore
	cycle *DailyCycle
	now   func() time.Time
}

// NewSettlement creates a Settlement service.
func NewSettlement(store SettlementStore, cycle *DailyCycle) *Settlement {
	return &Settlement{store: store, cycle: cycle, now: time.Now}
}

// SettleDay awards medals for the given day key.
func (s *Settlement) SettleDay(ctx context.Context, day string) ([]model.LeaderboardEntry, error) {
	entries, err := s.store.SettleDay(ctx, day)
	if err != nil {
		if errors.Is(err, repository.ErrDaySettled) {
			return nil, ErrDaySettled
		}
		return nil, fmt.Errorf("failed to settle %s: %w", day, err)
	}
	return entries, nil
}

// ClosingDay returns the day key a settlement run at the given instant
// should close: the previous UTC calendar date.
func ClosingDay(runAt time.Time) string {
	return DayKey(runAt.AddDate(0, 0, -1))
}

// SettleClosedDay settles every riff day up to and including the one
// that closed before the current instant, oldest first. Days missed
// during downtime are backfilled, so medals survive multi-day outages.
// A day claimed by a concurrent replica mid-loop is not an error.
func (s *Settlement) SettleClosedDay(ctx context.Context) error {
	through := ClosingDay(s.now())
	days, err := s.store.UnsettledDays(ctx, through)
	if err != nil {
		return fmt.Errorf("failed to list unsettled days: %w", err)
	}
	if len(days) == 0 {
		log.Debug().Str("through", through).Msg("no days awaiting settlement")
		return nil
	}

	for _, day := range days {
		entries, err := s.SettleDay(ctx, day)
		if err != nil {
			if errors.Is(err, ErrDaySettled) {
				log.Debug().Str("day", day).Msg("day already settled")
				continue
			}
			return err
		}

		awarded := 0
		for _, e := range entries {
			if e.Medal != "" {
				awarded++
			}
		}
		log.Info().Str("day", day).Int("entries", len(entries)).Int("medals", awarded).Msg("day settled")
	}
	return nil
}

// Run settles at every reset boundary until the context is canceled.
// The fire instant comes from the cycle resolver, so the loop and the
// countdown shown to users always agree.
func (s *Settlement) Run(ctx context.Context) {
	for {
		now := s.now()
		timer := time.NewTimer(s.cycle.NextReset(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		settleCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := s.SettleClosedDay(settleCtx); err != nil {
			log.Error().Err(err).Msg("daily settlement failed")
		}
		cancel()
	}
}
