package reqobj

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidverify/oid4vp/pkg/model"
)

func selfSignedLeaf(t *testing.T, cn string) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{cn},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func TestBuildX5C_ExtractX5C_RoundTrips(t *testing.T) {
	leaf := selfSignedLeaf(t, "verifier.example.com")

	req, err := Build(BuildParams{
		ClientID:     "verifier.example.com",
		ResponseMode: model.ResponseModeDirectPost,
		ResponseURI:  "https://verifier.example.com/cb",
		Nonce:        "n-0s6",
		Definition:   testDefinition(),
	})
	require.NoError(t, err)

	x5c := BuildX5C([]*x509.Certificate{leaf})
	signed, err := Sign(req, jwt.SigningMethodHS256, []byte("test-secret"), x5c)
	require.NoError(t, err)

	chain, err := ExtractX5C(signed)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, leaf.Raw, chain[0].Raw)
}

func TestExtractX5C_MissingChainErrors(t *testing.T) {
	req, err := Build(BuildParams{
		ClientID:     "verifier.example.com",
		ResponseMode: model.ResponseModeDirectPost,
		ResponseURI:  "https://verifier.example.com/cb",
		Nonce:        "n-0s6",
		Definition:   testDefinition(),
	})
	require.NoError(t, err)

	signed, err := Sign(req, jwt.SigningMethodHS256, []byte("test-secret"), nil)
	require.NoError(t, err)

	_, err = ExtractX5C(signed)
	assert.Error(t, err)
}

func TestExtractX5C_MalformedJWSErrors(t *testing.T) {
	_, err := ExtractX5C("not-a-jws")
	assert.Error(t, err)
}
