package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"riffd/internal/model"
)

// Riff-specific errors. The conditional-write methods report which gate
// rejected the write so the service layer can surface the right kind.
var (
	ErrRiffNotFound = errors.New("riff not found")
	ErrRiffExists   = errors.New("riff already exists for this author and day")
	ErrRiffEdited   = errors.New("riff already edited")
	ErrRiffHasVotes = errors.New("riff has votes")
	ErrNotAuthor    = errors.New("riff belongs to another author")
	ErrVoteExists   = errors.New("vote already recorded")
	ErrVoteNotFound = errors.New("vote not recorded")
)

// RiffRepository handles riff and vote persistence. All mutating methods
// are single conditional statements or short transactions, so concurrent
// attempts against the same riff serialize instead of losing updates.
type RiffRepository struct {
	pool *pgxpool.Pool
}

// NewRiffRepository creates a new RiffRepository instance.
func NewRiffRepository(pool *pgxpool.Pool) *RiffRepository {
	return &RiffRepository{pool: pool}
}

const riffColumns = `id, author_id, author_username, content, like_count,
	edited, riff_day::text, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRiff(row rowScanner) (*model.Riff, error) {
	var riff model.Riff
	err := row.Scan(
		&riff.ID,
		&riff.AuthorID,
		&riff.AuthorUsername,
		&riff.Content,
		&riff.LikeCount,
		&riff.Edited,
		&riff.Day,
		&riff.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &riff, nil
}

// Create inserts a riff for the given author and day. The one-riff-per-day
// rule rides on the (author_id, riff_day) unique index: the insert and the
// existence check are a single conditional statement, not read-then-write.
func (r *RiffRepository) Create(ctx context.Context, authorID, authorUsername, content, day string, createdAt time.Time) (*model.Riff, error) {
	query := `
		INSERT INTO riffs (id, author_id, author_username, content, like_count, edited, riff_day, created_at)
		VALUES ($1, $2, $3, $4, 0, FALSE, $5::date, $6)
		ON CONFLICT (author_id, riff_day) DO NOTHING
		RETURNING ` + riffColumns

	riff, err := scanRiff(r.pool.QueryRow(ctx, query, uuid.NewString(), authorID, authorUsername, content, day, createdAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRiffExists
		}
		return nil, fmt.Errorf("failed to create riff: %w", err)
	}
	return riff, nil
}

// GetByID retrieves a riff by id. Returns ErrRiffNotFound if absent.
func (r *RiffRepository) GetByID(ctx context.Context, id string) (*model.Riff, error) {
	query := `SELECT ` + riffColumns + ` FROM riffs WHERE id = $1`

	riff, err := scanRiff(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRiffNotFound
		}
		return nil, fmt.Errorf("failed to get riff: %w", err)
	}
	return riff, nil
}

// ListByDay retrieves all riffs for a day, oldest first. When viewerID is
// non-empty each riff is annotated with whether that viewer has voted on
// it; the annotation is computed in the query, never stored.
func (r *RiffRepository) ListByDay(ctx context.Context, day, viewerID string) ([]*model.Riff, error) {
	const query = `
		SELECT r.id, r.author_id, r.author_username, r.content, r.like_count,
			r.edited, r.riff_day::text, r.created_at,
			($2 <> '' AND EXISTS (
				SELECT 1 FROM riff_votes v WHERE v.riff_id = r.id AND v.voter_id = $2
			)) AS viewer_voted
		FROM riffs r
		WHERE r.riff_day = $1::date
		ORDER BY r.created_at ASC, r.id ASC
	`

	rows, err := r.pool.Query(ctx, query, day, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list riffs by day: %w", err)
	}
	defer rows.Close()

	var riffs []*model.Riff
	for rows.Next() {
		var riff model.Riff
		err := rows.Scan(
			&riff.ID,
			&riff.AuthorID,
			&riff.AuthorUsername,
			&riff.Content,
			&riff.LikeCount,
			&riff.Edited,
			&riff.Day,
			&riff.CreatedAt,
			&riff.ViewerVoted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan riff: %w", err)
		}
		riffs = append(riffs, &riff)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating riffs: %w", err)
	}
	return riffs, nil
}

// ListByAuthor retrieves a user's riffs across all days, newest first.
func (r *RiffRepository) ListByAuthor(ctx context.Context, authorID string, limit int) ([]*model.Riff, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + riffColumns + `
		FROM riffs
		WHERE author_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list riffs by author: %w", err)
	}
	defer rows.Close()

	var riffs []*model.Riff
	for rows.Next() {
		riff, err := scanRiff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan riff: %w", err)
		}
		riffs = append(riffs, riff)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating riffs: %w", err)
	}
	return riffs, nil
}

// UpdateContent applies the single permitted edit. The edit gates (author
// match, never edited, no votes) are evaluated inside one conditional
// UPDATE; when it matches nothing, the riff is re-read in the same
// transaction to report which gate failed.
func (r *RiffRepository) UpdateContent(ctx context.Context, riffID, authorID, content string) (*model.Riff, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin edit: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE riffs
		SET content = $3, edited = TRUE
		WHERE id = $1 AND author_id = $2 AND edited = FALSE
			AND NOT EXISTS (SELECT 1 FROM riff_votes v WHERE v.riff_id = $1)
		RETURNING ` + riffColumns

	riff, err := scanRiff(tx.QueryRow(ctx, query, riffID, authorID, content))
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit edit: %w", err)
		}
		return riff, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to edit riff: %w", err)
	}

	// Nothing matched; find out why.
	var (
		ownerID  string
		edited   bool
		hasVotes bool
	)
	err = tx.QueryRow(ctx, `
		SELECT author_id, edited,
			EXISTS (SELECT 1 FROM riff_votes v WHERE v.riff_id = id)
		FROM riffs WHERE id = $1
	`, riffID).Scan(&ownerID, &edited, &hasVotes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRiffNotFound
		}
		return nil, fmt.Errorf("failed to inspect riff: %w", err)
	}

	switch {
	case ownerID != authorID:
		return nil, ErrNotAuthor
	case edited:
		return nil, ErrRiffEdited
	case hasVotes:
		return nil, ErrRiffHasVotes
	default:
		return nil, fmt.Errorf("edit riff %s: update matched no rows", riffID)
	}
}

// AddVote records an upvote. The vote row insert and the counter bump run
// in one transaction; the (riff_id, voter_id) primary key makes a repeat
// vote a no-op insert, reported as ErrVoteExists.
func (r *RiffRepository) AddVote(ctx context.Context, riffID, voterID string) (*model.Riff, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin vote: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO riff_votes (riff_id, voter_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (riff_id, voter_id) DO NOTHING
	`, riffID, voterID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrRiffNotFound
		}
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrVoteExists
	}

	riff, err := scanRiff(tx.QueryRow(ctx, `
		UPDATE riffs SET like_count = like_count + 1
		WHERE id = $1
		RETURNING `+riffColumns, riffID))
	if err != nil {
		return nil, fmt.Errorf("failed to bump like count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}
	riff.ViewerVoted = true
	return riff, nil
}

// RemoveVote retracts a previously recorded vote and decrements the like
// count, floored at zero.
func (r *RiffRepository) RemoveVote(ctx context.Context, riffID, voterID string) (*model.Riff, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin retraction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		DELETE FROM riff_votes WHERE riff_id = $1 AND voter_id = $2
	`, riffID, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing riff from a missing vote.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM riffs WHERE id = $1)`, riffID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to inspect riff: %w", err)
		}
		if !exists {
			return nil, ErrRiffNotFound
		}
		return nil, ErrVoteNotFound
	}

	riff, err := scanRiff(tx.QueryRow(ctx, `
		UPDATE riffs SET like_count = GREATEST(like_count - 1, 0)
		WHERE id = $1
		RETURNING `+riffColumns, riffID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRiffNotFound
		}
		return nil, fmt.Errorf("failed to drop like count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit retraction: %w", err)
	}
	return riff, nil
}
