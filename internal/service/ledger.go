package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"riffd/internal/model"
	"riffd/internal/repository"
)

// Riff content bounds, in runes, measured after sanitizing and trimming.
const (
	minContentLen = 1
	maxContentLen = 500
)

// RiffStore is the persistence contract the ledger writes through. The
// store must enforce its conditional semantics atomically: create is an
// insert-if-absent on (author, day), votes are add/remove-if-absent on
// (riff, voter), and the edit gates are evaluated with the write.
type RiffStore interface {
	Create(ctx context.Context, authorID, authorUsername, content, day string, createdAt time.Time) (*model.Riff, error)
	GetByID(ctx context.Context, id string) (*model.Riff, error)
	ListByDay(ctx context.Context, day, viewerID string) ([]*model.Riff, error)
	ListByAuthor(ctx context.Context, authorID string, limit int) ([]*model.Riff, error)
	UpdateContent(ctx context.Context, riffID, authorID, content string) (*model.Riff, error)
	AddVote(ctx context.Context, riffID, voterID string) (*model.Riff, error)
	RemoveVote(ctx context.Context, riffID, voterID string) (*model.Riff, error)
}

// Ledger is the single writer of riff records. It owns the creation,
// edit and voting rules; identity and "today" come in from outside.
type Ledger struct {
	store     RiffStore
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewLedger creates a Ledger over the given store.
func NewLedger(store RiffStore) *Ledger {
	return &Ledger{
		store:     store,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// cleanContent sanitizes and validates riff content, returning the text
// that will be persisted.
func (l *Ledger) cleanContent(content string) (string, error) {
	cleaned := strings.TrimSpace(l.sanitizer.Sanitize(content))
	length := utf8.RuneCountInString(cleaned)
	if length < minContentLen || length > maxContentLen {
		return "", ErrContentLength
	}
	return cleaned, nil
}

// CreateRiff submits the author's riff for the current day. The author's
// username is snapshotted onto the riff at creation time. A second
// submission on the same day fails with ErrDailyRiffExists no matter its
// content.
func (l *Ledger) CreateRiff(ctx context.Context, authorID, authorUsername, content string) (*model.Riff, error) {
	cleaned, err := l.cleanContent(content)
	if err != nil {
		return nil, err
	}

	now := l.now()
	riff, err := l.store.Create(ctx, authorID, authorUsername, cleaned, DayKey(now), now)
	if err != nil {
		if errors.Is(err, repository.ErrRiffExists) {
			return nil, ErrDailyRiffExists
		}
		return nil, fmt.Errorf("failed to create riff: %w", err)
	}
	return riff, nil
}

// EditRiff replaces a riff's content. A riff can be edited once, by its
// author, and only while nobody has voted on it. Retracting every vote
// re-opens editing as long as the single edit was never consumed.
func (l *Ledger) EditRiff(ctx context.Context, riffID, authorID, content string) (*model.Riff, error) {
	cleaned, err := l.cleanContent(content)
	if err != nil {
		return nil, err
	}

	riff, err := l.store.UpdateContent(ctx, riffID, authorID, cleaned)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRiffNotFound):
			return nil, ErrRiffNotFound
		case errors.Is(err, repository.ErrNotAuthor):
			return nil, ErrNotRiffAuthor
		case errors.Is(err, repository.ErrRiffEdited):
			return nil, ErrEditConsumed
		case errors.Is(err, repository.ErrRiffHasVotes):
			return nil, ErrEditLocked
		}
		return nil, fmt.Errorf("failed to edit riff: %w", err)
	}
	return riff, nil
}

// Vote casts or retracts the voter's single vote on a riff. Authors may
// not vote on their own riffs in either direction.
func (l *Ledger) Vote(ctx context.Context, riffID, voterID, direction string) (*model.Riff, error) {
	if direction != model.VoteUpvote && direction != model.VoteRetract {
		return nil, ErrInvalidDirection
	}

	// The author id is immutable, so checking it outside the vote
	// transaction cannot race with anything.
	riff, err := l.store.GetByID(ctx, riffID)
	if err != nil {
		if errors.Is(err, repository.ErrRiffNotFound) {
			return nil, ErrRiffNotFound
		}
		return nil, fmt.Errorf("failed to load riff: %w", err)
	}
	if riff.AuthorID == voterID {
		return nil, ErrSelfVote
	}

	if direction == model.VoteUpvote {
		riff, err = l.store.AddVote(ctx, riffID, voterID)
		if errors.Is(err, repository.ErrVoteExists) {
			return nil, ErrAlreadyVoted
		}
	} else {
		riff, err = l.store.RemoveVote(ctx, riffID, voterID)
		if errors.Is(err, repository.ErrVoteNotFound) {
			return nil, ErrVoteMissing
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrRiffNotFound) {
			return nil, ErrRiffNotFound
		}
		return nil, fmt.Errorf("failed to apply vote: %w", err)
	}
	return riff, nil
}

// TodaysRiffs lists the current day's riffs, each annotated with whether
// the viewer has voted on it.
func (l *Ledger) TodaysRiffs(ctx context.Context, viewerID string) ([]*model.Riff, error) {
	riffs, err := l.store.ListByDay(ctx, DayKey(l.now()), viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list today's riffs: %w", err)
	}
	return riffs, nil
}

// UserRiffs lists a user's historical riffs, newest first, capped at
// limit (a non-positive limit applies the store default).
func (l *Ledger) UserRiffs(ctx context.Context, userID string, limit int) ([]*model.Riff, error) {
	riffs, err := l.store.ListByAuthor(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user riffs: %w", err)
	}
	return riffs, nil
}

// Today returns the day key the ledger is currently writing to.
func (l *Ledger) Today() string {
	return DayKey(l.now())
}
