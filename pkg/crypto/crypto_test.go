package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("inbox-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "inbox-pass", hash)

	assert.True(t, CheckPasswordHash("inbox-pass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash("inbox-pass", "not-a-hash"))
}

func TestHashPassword_InvalidCost(t *testing.T) {
	_, err := HashPassword("x", bcrypt.MaxCost+1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HashPassword error")
}

func TestGenerateSecrets(t *testing.T) {
	share, err := GenerateShareSecret()
	require.NoError(t, err)
	raw, err := hex.DecodeString(share)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, err := GenerateShareSecret()
	require.NoError(t, err)
	assert.NotEqual(t, share, other)

	wh, err := GenerateWebhookSecret()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(wh, "whsec_"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(wh, "whsec_"))
	require.NoError(t, err)
	assert.Len(t, decoded, 24)
}
