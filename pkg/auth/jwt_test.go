package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Issue(5, "elevated")
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(5), claims.UserID)
	assert.Equal(t, "elevated", claims.Role)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	raw, err := tokens.Issue(1, "regular")
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tokens.Parse(raw)
	assert.Error(t, err)

	other := NewTokens("other", time.Hour)
	_, err = other.Parse(raw)
	assert.Error(t, err)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))

	_, err = HashPassword(string(make([]byte, 73)))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
