package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndParse(t *testing.T) {
	manager := NewManager("test-secret", time.Hour)

	signed, err := manager.Issue("user-1", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := manager.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestManager_Parse_ExpiredToken(t *testing.T) {
	manager := NewManager("test-secret", -time.Minute)

	signed, err := manager.Issue("user-1", "alice")
	require.NoError(t, err)

	_, err = manager.Parse(signed)
	assert.Error(t, err)
}

func TestManager_Parse_WrongSecret(t *testing.T) {
	signed, err := NewManager("secret-a", time.Hour).Issue("user-1", "alice")
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Parse(signed)
	assert.Error(t, err)
}

func TestManager_Parse_Garbage(t *testing.T) {
	manager := NewManager("test-secret", time.Hour)

	_, err := manager.Parse("not.a.token")
	assert.Error(t, err)

	_, err = manager.Parse("")
	assert.Error(t, err)
}
