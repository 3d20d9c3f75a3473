package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"riffd/internal/service"
)

// PromptHandler serves the daily writing prompt.
type PromptHandler struct {
	cycle *service.DailyCycle
}

// NewPromptHandler creates a PromptHandler.
func NewPromptHandler(cycle *service.DailyCycle) *PromptHandler {
	return &PromptHandler{cycle: cycle}
}

// Daily handles GET /api/prompts/daily. The prompt carries the next
// reset instant so clients can render the countdown.
func (h *PromptHandler) Daily(ctx *gin.Context) {
	Success(ctx, h.cycle.PromptFor(time.Now()))
}
