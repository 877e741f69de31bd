package jose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateJWK(t *testing.T) {
	keyPath := createTestECKey(t)

	jwk, privateKey, err := CreateJWK(keyPath)
	require.NoError(t, err)
	require.NotNil(t, privateKey)

	assert.Equal(t, "EC", jwk.KTY)
	assert.Equal(t, "P-256", jwk.CRV)
	assert.NotEmpty(t, jwk.X)
	assert.NotEmpty(t, jwk.Y)
	assert.NotEmpty(t, jwk.D)
}

func TestCreateJWK_MissingFile(t *testing.T) {
	_, _, err := CreateJWK("/nonexistent/path.pem")
	assert.Error(t, err)
}

func TestCreateJWK_InvalidKey(t *testing.T) {
	keyPath := createInvalidKeyFile(t)

	_, _, err := CreateJWK(keyPath)
	assert.Error(t, err)
}
