// Package service provides business logic implementations.
package service

import (
	"errors"
	"fmt"
	"time"

	"riffd/internal/model"
)

// DayKey maps a timestamp to the calendar day string that partitions
// riffs. Days are keyed by the UTC date so every user shares the same
// boundary.
func DayKey(now time.Time) string {
	return now.UTC().Format(model.DayFormat)
}

// DailyCycle derives the prompt for a calendar day and the next reset
// instant from a fixed ordered catalog. Pure: the same inputs always
// produce the same outputs.
type DailyCycle struct {
	catalog   []string
	resetHour int
}

// NewDailyCycle creates a resolver over the prompt catalog. An empty
// catalog is a configuration error, not a runtime condition.
func NewDailyCycle(catalog []string, resetHourUTC int) (*DailyCycle, error) {
	if len(catalog) == 0 {
		return nil, errors.New("prompt catalog must not be empty")
	}
	if resetHourUTC < 0 || resetHourUTC > 23 {
		return nil, fmt.Errorf("reset hour %d out of range", resetHourUTC)
	}
	return &DailyCycle{catalog: catalog, resetHour: resetHourUTC}, nil
}

// NextReset returns the next occurrence of the reset instant (04:00 UTC
// by default) strictly after now. At 03:59 that is one minute away; at
// 04:01 it is tomorrow.
func (c *DailyCycle) NextReset(now time.Time) time.Time {
	utc := now.UTC()
	reset := time.Date(utc.Year(), utc.Month(), utc.Day(), c.resetHour, 0, 0, 0, time.UTC)
	if !reset.After(utc) {
		reset = reset.AddDate(0, 0, 1)
	}
	return reset
}

// PromptForDay selects the catalog entry for a day key: index is the
// day-of-year modulo the catalog length. ResetAt is the instant the
// day's standings settle (the reset following the day).
func (c *DailyCycle) PromptForDay(dayKey string) (model.Prompt, error) {
	day, err := time.ParseInLocation(model.DayFormat, dayKey, time.UTC)
	if err != nil {
		return model.Prompt{}, fmt.Errorf("invalid day key %q: %w", dayKey, err)
	}

	index := day.YearDay() % len(c.catalog)
	return model.Prompt{
		ID:      "prompt_" + dayKey,
		Text:    c.catalog[index],
		Date:    dayKey,
		ResetAt: time.Date(day.Year(), day.Month(), day.Day()+1, c.resetHour, 0, 0, 0, time.UTC),
	}, nil
}

// PromptFor resolves the prompt in effect at the given instant, with
// ResetAt set to the next reset after that instant.
func (c *DailyCycle) PromptFor(now time.Time) model.Prompt {
	prompt, err := c.PromptForDay(DayKey(now))
	if err != nil {
		// DayKey always yields a parseable key.
		panic(err)
	}
	prompt.ResetAt = c.NextReset(now)
	return prompt
}
