package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"riffd/internal/service"
)

// UserHandler serves public user profiles and riff history.
type UserHandler struct {
	auth   *service.Auth
	ledger *service.Ledger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(auth *service.Auth, ledger *service.Ledger) *UserHandler {
	return &UserHandler{auth: auth, ledger: ledger}
}

// Get handles GET /api/users/:id, returning the profile with the
// lifetime medal tally.
func (h *UserHandler) Get(ctx *gin.Context) {
	user, err := h.auth.Profile(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		Fail(ctx, err)
		return
	}

	// Email is private to the account owner.
	user.Email = ""
	Success(ctx, user)
}

// Medals handles GET /api/users/:id/medals.
func (h *UserHandler) Medals(ctx *gin.Context) {
	user, err := h.auth.Profile(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		Fail(ctx, err)
		return
	}
	Success(ctx, user.Medals)
}

// Riffs handles GET /api/users/:id/riffs, newest first. An optional
// limit query parameter caps the page size.
func (h *UserHandler) Riffs(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))

	riffs, err := h.ledger.UserRiffs(ctx.Request.Context(), ctx.Param("id"), limit)
	if err != nil {
		Fail(ctx, err)
		return
	}
	Success(ctx, riffs)
}
