package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"riffd/internal/model"
	"riffd/internal/rank"
)

// ErrDaySettled reports that a day's medals were already awarded.
var ErrDaySettled = errors.New("day already settled")

// SettlementRepository converts a closed day's final standings into
// lifetime medal tallies, exactly once per day.
type SettlementRepository struct {
	pool *pgxpool.Pool
}

// NewSettlementRepository creates a new SettlementRepository instance.
func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

var medalColumns = map[string]string{
	model.MedalGold:   "gold_medals",
	model.MedalSilver: "silver_medals",
	model.MedalBronze: "bronze_medals",
}

// UnsettledDays lists riff days at or before the given day that have no
// settlement recorded, oldest first. Days without riffs never appear in
// the riffs table, so they are naturally skipped.
func (r *SettlementRepository) UnsettledDays(ctx context.Context, through string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT riff_day::text AS day
		FROM riffs
		WHERE riff_day <= $1::date
			AND NOT EXISTS (
				SELECT 1 FROM daily_settlements s WHERE s.riff_day = riffs.riff_day
			)
		ORDER BY day ASC
	`, through)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan unsettled day: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unsettled days: %w", err)
	}
	return days, nil
}

// SettleDay claims the day and awards medals to its top three authors.
// The claim (an insert into daily_settlements guarded by the day's
// primary key) and the tally increments share one transaction, so a
// concurrent second run either loses the claim or sees ErrDaySettled;
// medals can never be granted twice for the same day.
func (r *SettlementRepository) SettleDay(ctx context.Context, day string) ([]model.LeaderboardEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO daily_settlements (riff_day, settled_at)
		VALUES ($1::date, NOW())
		ON CONFLICT (riff_day) DO NOTHING
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to claim settlement day: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDaySettled
	}

	rows, err := tx.Query(ctx, `
		SELECT `+riffColumns+`
		FROM riffs
		WHERE riff_day = $1::date
		ORDER BY created_at ASC, id ASC
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read day riffs: %w", err)
	}

	var riffs []*model.Riff
	for rows.Next() {
		riff, err := scanRiff(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan riff: %w", err)
		}
		riffs = append(riffs, riff)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating day riffs: %w", err)
	}

	entries := rank.Build(riffs)
	for _, entry := range entries {
		column, ok := medalColumns[entry.Medal]
		if !ok {
			break // entries are rank-ordered; past third place nothing is awarded
		}
		_, err := tx.Exec(ctx, fmt.Sprintf(`
			UPDATE users SET %s = %s + 1, updated_at = NOW() WHERE id = $1
		`, column, column), entry.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to award %s medal: %w", entry.Medal, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return entries, nil
}
