// Package server wires the HTTP transport: router, middleware and the
// http.Server lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"riffd/internal/config"
	"riffd/internal/handler"
	"riffd/internal/pkg/token"
)

// Handlers collects the API handlers the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Prompt      *handler.PromptHandler
	Riff        *handler.RiffHandler
	Leaderboard *handler.LeaderboardHandler
	User        *handler.UserHandler
}

// Server is the HTTP front of the riff engine.
type Server struct {
	httpServer *http.Server
}

// New builds the router and returns a Server ready to run.
func New(cfg *config.ServerConfig, tokens *token.Manager, h Handlers, healthCheck func(ctx context.Context) error) *Server {
	gin.SetMode(cfg.Mode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		defer cancel()
		if err := healthCheck(checkCtx); err != nil {
			handler.Error(ctx, http.StatusServiceUnavailable, 50301, "unhealthy")
			return
		}
		handler.Success(ctx, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// One shared limiter for all routes. Identity must resolve before it
	// runs, so it is installed after the auth middleware on every chain;
	// signed-in traffic is then budgeted per user, anonymous per IP.
	limit := RateLimit(cfg.RateLimitPerMinute)

	public := api.Group("")
	public.Use(limit)
	public.POST("/auth/register", h.Auth.Register)
	public.POST("/auth/login", h.Auth.Login)
	public.GET("/prompts/daily", h.Prompt.Daily)
	public.GET("/leaderboard/daily", h.Leaderboard.Daily)
	public.GET("/users/:id", h.User.Get)
	public.GET("/users/:id/riffs", h.User.Riffs)
	public.GET("/users/:id/medals", h.User.Medals)

	// Today's feed is public but annotates vote state for signed-in
	// viewers.
	feed := api.Group("")
	feed.Use(OptionalAuth(tokens), limit)
	feed.GET("/riffs", h.Riff.List)

	authed := api.Group("")
	authed.Use(AuthRequired(tokens), limit)
	authed.GET("/auth/me", h.Auth.Me)
	authed.POST("/riffs", h.Riff.Create)
	authed.PUT("/riffs/:id", h.Riff.Edit)
	authed.POST("/riffs/:id/vote", h.Riff.Vote)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
