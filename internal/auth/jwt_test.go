package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")

	token, err := GenerateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestValidateToken_Garbage(t *testing.T) {
	SetSecret("test-secret")

	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	SetSecret("first-secret")
	token, err := GenerateToken(42)
	require.NoError(t, err)

	SetSecret("second-secret")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateToken_NoSecret(t *testing.T) {
	SetSecret("")
	defer SetSecret("test-secret")

	_, err := GenerateToken(42)
	assert.Error(t, err)
}
