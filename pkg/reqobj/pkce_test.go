package reqobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeVerifierAndChallenge(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	assert.Len(t, verifier, codeVerifierLength)

	challenge := GenerateCodeChallenge(verifier)
	assert.NotEmpty(t, challenge)
	assert.Equal(t, challenge, GenerateCodeChallenge(verifier), "challenge derivation is deterministic")
}

func TestGenerateQR(t *testing.T) {
	qr, err := GenerateQR("openid4vp://authorize?client_id=verifier.example.com", 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, qr.Base64Image)
	assert.Equal(t, "openid4vp://authorize?client_id=verifier.example.com", qr.URI)
}

func TestCache_SetGetDelete(t *testing.T) {
	c := NewCache(DefaultTTL)
	defer c.Stop()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("req-1", &CacheEntry{JWS: "a.b.c"})
	entry, ok := c.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, "a.b.c", entry.JWS)

	c.Delete("req-1")
	_, ok = c.Get("req-1")
	assert.False(t, ok)
}
