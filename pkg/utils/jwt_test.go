package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("secret-key", "did:plc:abc123", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken("secret-key", token)
	require.NoError(t, err)
	assert.Equal(t, "did:plc:abc123", claims.UserID)
}

func TestValidateTokenWrongKey(t *testing.T) {
	token, err := GenerateToken("secret-key", "did:plc:abc123", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("other-key", token)
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	token, err := GenerateToken("secret-key", "did:plc:abc123", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken("secret-key", token)
	assert.Error(t, err)
}

func TestValidateGarbageToken(t *testing.T) {
	_, err := ValidateToken("secret-key", "not-a-token")
	assert.Error(t, err)
}
