// Package repository tests run against a real PostgreSQL instance
// provided by testcontainers-go, because the interesting behavior here
// is the conditional SQL, not the Go around it.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"riffd/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = applySchema(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// applySchema mirrors the migrations the server runs at startup.
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username VARCHAR(20) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password_hash TEXT NOT NULL,
			gold_medals INT NOT NULL DEFAULT 0,
			silver_medals INT NOT NULL DEFAULT 0,
			bronze_medals INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_users_username ON users(LOWER(username));
		CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON users(email);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS riffs (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			author_username VARCHAR(20) NOT NULL,
			content TEXT NOT NULL,
			like_count INT NOT NULL DEFAULT 0,
			edited BOOLEAN NOT NULL DEFAULT FALSE,
			riff_day DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_riffs_author_day UNIQUE (author_id, riff_day)
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS riff_votes (
			riff_id TEXT NOT NULL REFERENCES riffs(id) ON DELETE CASCADE,
			voter_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (riff_id, voter_id)
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS daily_settlements (
			riff_day DATE PRIMARY KEY,
			settled_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func createTestUser(t *testing.T, pool *pgxpool.Pool, username string) *model.User {
	t.Helper()
	repo := NewUserRepository(pool)
	user, err := repo.Create(context.Background(), username, username+"@example.com", "hash")
	require.NoError(t, err)
	return user
}

const testDay = "2026-03-10"

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.Username)
	assert.Zero(t, created.Medals.Gold)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestUserRepository_Uniqueness(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)

	// Username uniqueness is case insensitive.
	_, err = repo.Create(ctx, "ALICE", "other@example.com", "hash")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = repo.Create(ctx, "alice2", "alice@example.com", "hash")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// ============================================================================
// RiffRepository Tests
// ============================================================================

func TestRiffRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRiffRepository(pool)
	ctx := context.Background()
	author := createTestUser(t, pool, "alice")

	riff, err := repo.Create(ctx, author.ID, author.Username, "my riff", testDay, time.Now().UTC())
	require.NoError(t, err)
	assert.NotEmpty(t, riff.ID)
	assert.Equal(t, testDay, riff.Day)
	assert.Zero(t, riff.LikeCount)
	assert.False(t, riff.Edited)

	// Second riff for the same author and day loses to the unique index.
	_, err = repo.Create(ctx, author.ID, author.Username, "another", testDay, time.Now().UTC())
	assert.ErrorIs(t, err, ErrRiffExists)

	// A different day is fine.
	_, err = repo.Create(ctx, author.ID, author.Username, "next day", "2026-03-11", time.Now().UTC())
	assert.NoError(t, err)
}

func TestRiffRepository_ListByDay(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRiffRepository(pool)
	ctx := context.Background()
	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")
	carol := createTestUser(t, pool, "carol")

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	first, err := repo.Create(ctx, alice.ID, alice.Username, "first", testDay, base)
	require.NoError(t, err)
	_, err = repo.Create(ctx, bob.ID, bob.Username, "second", testDay, base.Add(time.Minute))
	require.NoError(t, err)
	_, err = repo.Create(ctx, carol.ID, carol.Username, "other day", "2026-03-11", base)
	require.NoError(t, err)

	_, err = repo.AddVote(ctx, first.ID, carol.ID)
	require.NoError(t, err)

	riffs, err := repo.ListByDay(ctx, testDay, carol.ID)
	require.NoError(t, err)
	require.Len(t, riffs, 2)
	assert.Equal(t, "first", riffs[0].Content)
	assert.True(t, riffs[0].ViewerVoted)
	assert.False(t, riffs[1].ViewerVoted)

	// Anonymous listing carries no vote state.
	riffs, err = repo.ListByDay(ctx, testDay, "")
	require.NoError(t, err)
	for _, riff := range riffs {
		assert.False(t, riff.ViewerVoted)
	}
}

func TestRiffRepository_ListByAuthor(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRiffRepository(pool)
	ctx := context.Background()
	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")

	base := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	days := []string{"2026-03-08", "2026-03-09", "2026-03-10", "2026-03-11"}
	for i, day := range days {
		_, err := repo.Create(ctx, alice.ID, alice.Username, "riff "+day, day, base.AddDate(0, 0, i))
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, bob.ID, bob.Username, "from bob", testDay, base)
	require.NoError(t, err)

	// History is newest first and excludes other authors.
	riffs, err := repo.ListByAuthor(ctx, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, riffs, 4)
	for i, riff := range riffs {
		assert.Equal(t, alice.ID, riff.AuthorID)
		assert.Equal(t, days[len(days)-1-i], riff.Day)
	}

	// The limit caps the page at the newest entries.
	capped, err := repo.ListByAuthor(ctx, alice.ID, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, "2026-03-11", capped[0].Day)
	assert.Equal(t, "2026-03-10", capped[1].Day)
}

func TestRiffRepository_UpdateContent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRiffRepository(pool)
	ctx := context.Background()
	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")

	riff, err := repo.Create(ctx, alice.ID, alice.Username, "original", testDay, time.Now().UTC())
	require.NoError(t, err)

	// Wrong author is rejected before anything changes.
	_, err = repo.UpdateContent(ctx, riff.ID, bob.ID, "hijacked")
	assert.ErrorIs(t, err, ErrNotAuthor)

	edited, err := repo.UpdateContent(ctx, riff.ID, alice.ID, "revised")
	require.NoError(t, err)
	assert.Equal(t, "revised", edited.Content)
	assert.True(t, edited.Edited)

	// The single edit is consumed.
	_, err = repo.UpdateContent(ctx, riff.ID, alice.ID, "again")
	assert.ErrorIs(t, err, ErrRiffEdited)

	_, err = repo.UpdateContent(ctx, "missing", alice.ID, "text")
	assert.ErrorIs(t, err, ErrRiffNotFound)
}

func TestRiffRepository_UpdateContent_VoteGate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRiffRepository(pool)
	ctx := context.Background()
	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")

	riff, err := repo.Create(ctx, alice.ID, alice.Username, "original", testDay, time.Now().UTC())
	require.NoError(t, err)

	_, err = repo.AddVote(ctx, riff.ID, bob.ID)
	require.NoError(t, err)

	_, err = repo.UpdateContent(ctx, riff.ID, alice.ID, "revised")
	assert.ErrorIs(t, err, ErrRiffHasVotes)

	// Retracting the only vote re-opens the edit window.
	_, err = repo.RemoveVote(ctx, riff.ID, bob.ID)
	require.NoError(t, err)

	edited, err := repo.UpdateContent(ctx, riff.ID, alice.ID, "revised")
	require.NoError(t, err)
	assert.True(t, edited.Edited)
}

func TestRiffRepository_Votes(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRiffRepository(pool)
	ctx := context.Background()
	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")
	carol := createTestUser(t, pool, "carol")

	riff, err := repo.Create(ctx, alice.ID, alice.Username, "original", testDay, time.Now().UTC())
	require.NoError(t, err)

	voted, err := repo.AddVote(ctx, riff.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, voted.LikeCount)
	assert.True(t, voted.ViewerVoted)

	// One vote per user per riff.
	_, err = repo.AddVote(ctx, riff.ID, bob.ID)
	assert.ErrorIs(t, err, ErrVoteExists)

	voted, err = repo.AddVote(ctx, riff.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, voted.LikeCount)

	retracted, err := repo.RemoveVote(ctx, riff.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, retracted.LikeCount)

	// The vote is gone, so a second retraction has nothing to remove.
	_, err = repo.RemoveVote(ctx, riff.ID, bob.ID)
	assert.ErrorIs(t, err, ErrVoteNotFound)

	_, err = repo.AddVote(ctx, "missing", bob.ID)
	assert.ErrorIs(t, err, ErrRiffNotFound)

	_, err = repo.RemoveVote(ctx, "missing", bob.ID)
	assert.ErrorIs(t, err, ErrRiffNotFound)
}

// ============================================================================
// SettlementRepository Tests
// ============================================================================

func TestSettlementRepository_SettleDay(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	riffRepo := NewRiffRepository(pool)
	userRepo := NewUserRepository(pool)
	repo := NewSettlementRepository(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")
	carol := createTestUser(t, pool, "carol")
	dave := createTestUser(t, pool, "dave")

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	riffA, err := riffRepo.Create(ctx, alice.ID, alice.Username, "a", testDay, base)
	require.NoError(t, err)
	riffB, err := riffRepo.Create(ctx, bob.ID, bob.Username, "b", testDay, base.Add(time.Minute))
	require.NoError(t, err)
	_, err = riffRepo.Create(ctx, carol.ID, carol.Username, "c", testDay, base.Add(2*time.Minute))
	require.NoError(t, err)

	// bob 2 likes, alice 1, carol 0.
	_, err = riffRepo.AddVote(ctx, riffB.ID, alice.ID)
	require.NoError(t, err)
	_, err = riffRepo.AddVote(ctx, riffB.ID, carol.ID)
	require.NoError(t, err)
	_, err = riffRepo.AddVote(ctx, riffA.ID, dave.ID)
	require.NoError(t, err)

	entries, err := repo.SettleDay(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, bob.ID, entries[0].UserID)
	assert.Equal(t, model.MedalGold, entries[0].Medal)
	assert.Equal(t, alice.ID, entries[1].UserID)
	assert.Equal(t, carol.ID, entries[2].UserID)

	goldWinner, err := userRepo.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, goldWinner.Medals.Gold)
	assert.Zero(t, goldWinner.Medals.Silver)

	silverWinner, err := userRepo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, silverWinner.Medals.Silver)

	// The day can only be settled once; tallies stay put.
	_, err = repo.SettleDay(ctx, testDay)
	assert.ErrorIs(t, err, ErrDaySettled)

	goldWinner, err = userRepo.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, goldWinner.Medals.Gold)
}

func TestSettlementRepository_UnsettledDays(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	riffRepo := NewRiffRepository(pool)
	repo := NewSettlementRepository(pool)
	ctx := context.Background()
	alice := createTestUser(t, pool, "alice")

	base := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	for i, day := range []string{"2026-03-08", "2026-03-09", "2026-03-12"} {
		_, err := riffRepo.Create(ctx, alice.ID, alice.Username, "riff "+day, day, base.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	_, err := repo.SettleDay(ctx, "2026-03-08")
	require.NoError(t, err)

	// Settled days and days after the cutoff are excluded; days with no
	// riffs at all never show up.
	days, err := repo.UnsettledDays(ctx, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-09"}, days)

	days, err = repo.UnsettledDays(ctx, "2026-03-12")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-09", "2026-03-12"}, days)
}

func TestSettlementRepository_SettleEmptyDay(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettlementRepository(pool)

	entries, err := repo.SettleDay(context.Background(), "2026-01-01")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = repo.SettleDay(context.Background(), "2026-01-01")
	assert.ErrorIs(t, err, ErrDaySettled)
}
