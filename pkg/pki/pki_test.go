package pki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T, cn string) *x509.Certificate {
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

func TestParseCertificateFromFile(t *testing.T) {
	tts := []struct {
		name          string
		fileName      string
		numberOfCerts int
	}{
		{
			name:          "one cert, no chain",
			fileName:      "testdata/chain_1.golden",
			numberOfCerts: 1,
		},
		{
			name:          "one cert, one root",
			fileName:      "testdata/chain_2.golden",
			numberOfCerts: 2,
		},
		{
			name:          "one cert, one intermediate, one root",
			fileName:      "testdata/chain_3.golden",
			numberOfCerts: 3,
		},
	}
	for _, tt := range tts {
		t.Run(tt.name, func(t *testing.T) {
			cert, chain, err := ParseX509CertificateFromFile(tt.fileName)
			assert.NoError(t, err)
			assert.NotNil(t, cert)
			assert.NotNil(t, chain)
			assert.Equal(t, tt.numberOfCerts, len(chain))
			for i, v := range chain {
				fmt.Println(i, v.Subject, v.NotAfter, v.DNSNames)
			}
		})
	}
}

func TestEncodeX5CChain_RoundTripsThroughParseX5CChain(t *testing.T) {
	leaf := selfSignedCert(t, "verifier.example.com")
	root := selfSignedCert(t, "root.example.com")

	x5c := EncodeX5CChain([]*x509.Certificate{leaf, root})
	require.Len(t, x5c, 2)

	chain, err := ParseX5CChain(x5c)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, leaf.Raw, chain[0].Raw)
	assert.Equal(t, root.Raw, chain[1].Raw)
}

func TestParseX5CChain_RejectsEmptyAndMalformed(t *testing.T) {
	_, err := ParseX5CChain(nil)
	assert.Error(t, err)

	_, err = ParseX5CChain([]string{"not-base64!!"})
	assert.Error(t, err)
}
