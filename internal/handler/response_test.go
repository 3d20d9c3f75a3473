package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"riffd/internal/service"
)

func statusFor(t *testing.T, err error) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Fail(ctx, err)
	return recorder.Code
}

func TestFail_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", service.ErrContentLength, http.StatusBadRequest},
		{"not found", service.ErrRiffNotFound, http.StatusNotFound},
		{"conflict daily riff", service.ErrDailyRiffExists, http.StatusConflict},
		{"conflict double vote", service.ErrAlreadyVoted, http.StatusConflict},
		{"conflict edit consumed", service.ErrEditConsumed, http.StatusConflict},
		{"forbidden self vote", service.ErrSelfVote, http.StatusForbidden},
		{"forbidden wrong author", service.ErrNotRiffAuthor, http.StatusForbidden},
		{"unauthorized credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"storage", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(t, tt.err))
		})
	}
}
