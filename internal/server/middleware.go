package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"riffd/internal/handler"
	"riffd/internal/pkg/token"
)

// AuthRequired validates the Bearer token and stores the caller's
// identity in the gin context for handlers downstream.
func AuthRequired(tokens *token.Manager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			handler.Error(ctx, http.StatusUnauthorized, 40101, "missing authorization header")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			handler.Error(ctx, http.StatusUnauthorized, 40101, "invalid authorization header")
			ctx.Abort()
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			handler.Error(ctx, http.StatusUnauthorized, 40101, "invalid or expired token")
			ctx.Abort()
			return
		}

		ctx.Set(handler.ContextUserIDKey, claims.UserID)
		ctx.Set(handler.ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// OptionalAuth resolves the caller's identity when a valid Bearer token
// is present but lets anonymous requests through. Read endpoints use it
// to annotate responses with per-viewer state.
func OptionalAuth(tokens *token.Manager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if claims, err := tokens.Parse(parts[1]); err == nil {
				ctx.Set(handler.ContextUserIDKey, claims.UserID)
				ctx.Set(handler.ContextUsernameKey, claims.Username)
			}
		}
		ctx.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a per-client token bucket keyed by authenticated
// user id, falling back to the client IP. Idle buckets are dropped
// after a few minutes to bound memory.
func RateLimit(perMinute int) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		clients = make(map[string]*clientLimiter)
	)

	go func() {
		for range time.Tick(time.Minute) {
			mu.Lock()
			for key, c := range clients {
				if time.Since(c.lastSeen) > 3*time.Minute {
					delete(clients, key)
				}
			}
			mu.Unlock()
		}
	}()

	limit := rate.Limit(float64(perMinute) / 60.0)
	burst := perMinute
	if burst < 1 {
		burst = 1
	}

	return func(ctx *gin.Context) {
		key := ctx.GetString(handler.ContextUserIDKey)
		if key == "" {
			key = ctx.ClientIP()
		}

		mu.Lock()
		c, ok := clients[key]
		if !ok {
			c = &clientLimiter{limiter: rate.NewLimiter(limit, burst)}
			clients[key] = c
		}
		c.lastSeen = time.Now()
		mu.Unlock()

		if !c.limiter.Allow() {
			handler.Error(ctx, http.StatusTooManyRequests, 42901, "too many requests")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
