package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riffd/internal/service"
)

// RiffHandler handles riff submissions, edits and votes.
type RiffHandler struct {
	ledger  *service.Ledger
	ranking *service.Ranking
}

// NewRiffHandler creates a RiffHandler.
func NewRiffHandler(ledger *service.Ledger, ranking *service.Ranking) *RiffHandler {
	return &RiffHandler{ledger: ledger, ranking: ranking}
}

type riffRequest struct {
	Content string `json:"content" binding:"required"`
}

type voteRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// List handles GET /api/riffs, returning today's riffs annotated with
// the caller's vote state.
func (h *RiffHandler) List(ctx *gin.Context) {
	viewerID, _ := currentUser(ctx)

	riffs, err := h.ledger.TodaysRiffs(ctx.Request.Context(), viewerID)
	if err != nil {
		Fail(ctx, err)
		return
	}
	Success(ctx, gin.H{"date": h.ledger.Today(), "riffs": riffs})
}

// Create handles POST /api/riffs.
func (h *RiffHandler) Create(ctx *gin.Context) {
	userID, username := currentUser(ctx)

	var req riffRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}

	riff, err := h.ledger.CreateRiff(ctx.Request.Context(), userID, username, req.Content)
	if err != nil {
		Fail(ctx, err)
		return
	}

	h.ranking.InvalidateToday(ctx.Request.Context())
	Success(ctx, riff)
}

// Edit handles PUT /api/riffs/:id.
func (h *RiffHandler) Edit(ctx *gin.Context) {
	userID, _ := currentUser(ctx)
	riffID := ctx.Param("id")

	var req riffRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}

	riff, err := h.ledger.EditRiff(ctx.Request.Context(), riffID, userID, req.Content)
	if err != nil {
		Fail(ctx, err)
		return
	}

	h.ranking.InvalidateToday(ctx.Request.Context())
	Success(ctx, riff)
}

// Vote handles POST /api/riffs/:id/vote. The direction is "upvote" or
// "retract".
func (h *RiffHandler) Vote(ctx *gin.Context) {
	userID, _ := currentUser(ctx)
	riffID := ctx.Param("id")

	var req voteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}

	riff, err := h.ledger.Vote(ctx.Request.Context(), riffID, userID, req.Direction)
	if err != nil {
		Fail(ctx, err)
		return
	}

	h.ranking.InvalidateToday(ctx.Request.Context())
	Success(ctx, riff)
}
