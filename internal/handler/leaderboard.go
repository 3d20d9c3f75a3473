package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"riffd/internal/model"
	"riffd/internal/service"
)

// LeaderboardHandler serves daily standings.
type LeaderboardHandler struct {
	ranking *service.Ranking
}

// NewLeaderboardHandler creates a LeaderboardHandler.
func NewLeaderboardHandler(ranking *service.Ranking) *LeaderboardHandler {
	return &LeaderboardHandler{ranking: ranking}
}

// Daily handles GET /api/leaderboard/daily. An optional day query
// parameter (2006-01-02) selects a historical day.
func (h *LeaderboardHandler) Daily(ctx *gin.Context) {
	if day := ctx.Query("day"); day != "" {
		if _, err := time.ParseInLocation(model.DayFormat, day, time.UTC); err != nil {
			Error(ctx, http.StatusBadRequest, 40001, "invalid day")
			return
		}
		entries, err := h.ranking.LeaderboardForDay(ctx.Request.Context(), day)
		if err != nil {
			Fail(ctx, err)
			return
		}
		Success(ctx, gin.H{"date": day, "entries": entries})
		return
	}

	day, entries, err := h.ranking.DailyLeaderboard(ctx.Request.Context())
	if err != nil {
		Fail(ctx, err)
		return
	}
	Success(ctx, gin.H{"date": day, "entries": entries})
}
