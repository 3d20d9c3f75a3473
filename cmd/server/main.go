// Package main is the entry point for the riffd API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"riffd/internal/cache"
	"riffd/internal/config"
	"riffd/internal/handler"
	"riffd/internal/pkg/db"
	"riffd/internal/pkg/token"
	"riffd/internal/repository"
	"riffd/internal/server"
	"riffd/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	riffRepo := repository.NewRiffRepository(dbPool.Pool)
	settlementRepo := repository.NewSettlementRepository(dbPool.Pool)

	// Initialize the daily cycle resolver
	cycle, err := service.NewDailyCycle(cfg.Daily.Prompts, cfg.Daily.ResetHourUTC)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid daily cycle configuration")
	}

	// Optional Redis leaderboard cache
	var boardCache service.LeaderboardCache
	if cfg.Redis.Addr != "" {
		redisCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		boardCache = redisCache
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Leaderboard cache enabled")
	} else {
		log.Info().Msg("Leaderboard cache disabled, standings recomputed per read")
	}

	// Initialize services
	tokens := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := service.NewAuth(userRepo, tokens, cfg.Auth.BcryptCost)
	ledger := service.NewLedger(riffRepo)
	rankingService := service.NewRanking(riffRepo, cycle, boardCache)
	settlement := service.NewSettlement(settlementRepo, cycle)

	// Backfill any days that closed while the process was down, then
	// run the boundary loop.
	if err := settlement.SettleClosedDay(ctx); err != nil {
		log.Error().Err(err).Msg("Startup settlement failed")
	}
	go settlement.Run(ctx)

	// Initialize HTTP server
	srv := server.New(&cfg.Server, tokens, server.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Prompt:      handler.NewPromptHandler(cycle),
		Riff:        handler.NewRiffHandler(ledger, rankingService),
		Leaderboard: handler.NewLeaderboardHandler(rankingService),
		User:        handler.NewUserHandler(authService, ledger),
	}, dbPool.HealthCheck)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Server is starting...")
		if err := srv.Run(); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
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
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create riffs table
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
		CREATE INDEX IF NOT EXISTS idx_riffs_day_created ON riffs(riff_day, created_at);
		CREATE INDEX IF NOT EXISTS idx_riffs_author_created ON riffs(author_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: riffs table created")

	// Migration 3: Create riff_votes table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS riff_votes (
			riff_id TEXT NOT NULL REFERENCES riffs(id) ON DELETE CASCADE,
			voter_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (riff_id, voter_id)
		);
		CREATE INDEX IF NOT EXISTS idx_riff_votes_voter ON riff_votes(voter_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: riff_votes table created")

	// Migration 4: Create daily_settlements table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS daily_settlements (
			riff_day DATE PRIMARY KEY,
			settled_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: daily_settlements table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
