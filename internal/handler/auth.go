package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riffd/internal/model"
	"riffd/internal/service"
)

// AuthHandler handles registration and login requests.
type AuthHandler struct {
	auth *service.Auth
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.Auth) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}

	user, token, err := h.auth.Register(ctx.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		Fail(ctx, err)
		return
	}
	Success(ctx, sessionResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}

	user, token, err := h.auth.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		Fail(ctx, err)
		return
	}
	Success(ctx, sessionResponse{Token: token, User: user})
}

// Me handles GET /api/auth/me for the authenticated user.
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, _ := currentUser(ctx)

	user, err := h.auth.Profile(ctx.Request.Context(), userID)
	if err != nil {
		Fail(ctx, err)
		return
	}
	Success(ctx, user)
}
