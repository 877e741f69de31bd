package clientid

import (
	"context"
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
	"github.com/eidverify/oid4vp/pkg/reqobj"
	"github.com/eidverify/oid4vp/pkg/trust"
)

func TestAuthRedirectURI(t *testing.T) {
	r := New(nil, nil, nil, nil)

	req := &model.AuthorizationRequest{ClientID: "https://verifier.example.com/cb", ResponseURI: "https://verifier.example.com/cb"}
	d, err := r.Authenticate(context.Background(), req, Evidence{})
	require.NoError(t, err)
	assert.True(t, d.Trusted)

	req.ClientID = "https://attacker.example.com/cb"
	d, err = r.Authenticate(context.Background(), req, Evidence{})
	require.NoError(t, err)
	assert.False(t, d.Trusted)
}

func certChainForDNS(t *testing.T, dnsName string) []*x509.Certificate {
	t.Helper()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	rootCert, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: dnsName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		DNSNames:     []string{dnsName},
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, rootCert, &leafKey.PublicKey, rootKey)
	require.NoError(t, err)
	leafCert, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)

	return []*x509.Certificate{leafCert, rootCert}
}

func newEvaluatorWithRoot(t *testing.T, chain []*x509.Certificate) *trust.LocalTrustEvaluator {
	t.Helper()
	root := chain[len(chain)-1]
	e := trust.NewLocalTrustEvaluator(trust.LocalTrustConfig{})
	e.AddTrustedRoot(root)
	return e
}

func TestAuthX509SANDNS(t *testing.T) {
	chain := certChainForDNS(t, "verifier.example.com")
	e := newEvaluatorWithRoot(t, chain)

	r := New(e, nil, nil, nil)
	req := &model.AuthorizationRequest{ClientID: "verifier.example.com", ClientIDScheme: model.SchemeX509SANDNS}

	d, err := r.Authenticate(context.Background(), req, Evidence{X5C: chain})
	require.NoError(t, err)
	assert.True(t, d.Trusted, d.Reason)

	req.ClientID = "impostor.example.com"
	d, err = r.Authenticate(context.Background(), req, Evidence{X5C: chain})
	require.NoError(t, err)
	assert.False(t, d.Trusted)
}

func TestAuthX509SANDNS_MissingEvidence(t *testing.T) {
	e := trust.NewLocalTrustEvaluator(trust.LocalTrustConfig{})
	r := New(e, nil, nil, nil)
	req := &model.AuthorizationRequest{ClientID: "verifier.example.com", ClientIDScheme: model.SchemeX509SANDNS}

	_, err := r.Authenticate(context.Background(), req, Evidence{})
	assert.Error(t, err)
}

type staticRegistry struct {
	entries map[string]*model.ClientMetadata
}

func (s *staticRegistry) Lookup(ctx context.Context, clientID string) (*model.ClientMetadata, bool, error) {
	m, ok := s.entries[clientID]
	return m, ok, nil
}

func TestAuthPreRegistered(t *testing.T) {
	reg := &staticRegistry{entries: map[string]*model.ClientMetadata{
		"verifier.example.com": {},
	}}
	r := New(nil, nil, reg, nil)

	req := &model.AuthorizationRequest{ClientID: "verifier.example.com", ClientIDScheme: model.SchemePreRegistered}
	d, err := r.Authenticate(context.Background(), req, Evidence{})
	require.NoError(t, err)
	assert.True(t, d.Trusted)

	req.ClientID = "unknown.example.com"
	d, err = r.Authenticate(context.Background(), req, Evidence{})
	require.NoError(t, err)
	assert.False(t, d.Trusted)
}

func TestAuthVerifierAttestation(t *testing.T) {
	secret := []byte("attester-secret")
	av := NewJWTAttestationVerifier(jwt.SigningMethodHS256, secret)
	r := New(nil, nil, nil, av)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "verifier.example.com"})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	req := &model.AuthorizationRequest{ClientID: "verifier.example.com", ClientIDScheme: model.SchemeVerifierAttestation}
	d, err := r.Authenticate(context.Background(), req, Evidence{AttestationJWT: signed})
	require.NoError(t, err)
	assert.True(t, d.Trusted)

	req.ClientID = "other.example.com"
	d, err = r.Authenticate(context.Background(), req, Evidence{AttestationJWT: signed})
	require.NoError(t, err)
	assert.False(t, d.Trusted)
}

func TestAuthenticate_UnsupportedScheme(t *testing.T) {
	r := New(nil, nil, nil, nil)
	req := &model.AuthorizationRequest{ClientID: "x", ClientIDScheme: "unknown_scheme"}
	_, err := r.Authenticate(context.Background(), req, Evidence{})
	assert.Error(t, err)
}

func TestEvidenceFromRequestObject_ExtractsX5C(t *testing.T) {
	chain := certChainForDNS(t, "verifier.example.com")

	req, err := reqobj.Build(reqobj.BuildParams{
		ClientID:     "verifier.example.com",
		ResponseMode: model.ResponseModeDirectPost,
		ResponseURI:  "https://verifier.example.com/cb",
		Nonce:        "n-0s6",
		Definition:   &model.PresentationDefinition{ID: "pd", InputDescriptors: []model.InputDescriptor{{ID: "id1"}}},
	})
	require.NoError(t, err)

	signed, err := reqobj.Sign(req, jwt.SigningMethodHS256, []byte("test-secret"), reqobj.BuildX5C(chain))
	require.NoError(t, err)

	ev, err := EvidenceFromRequestObject(signed)
	require.NoError(t, err)
	require.Len(t, ev.X5C, len(chain))
	assert.Equal(t, chain[0].Raw, ev.X5C[0].Raw)
}

func TestEvidenceFromRequestObject_NoX5CIsNotAnError(t *testing.T) {
	req, err := reqobj.Build(reqobj.BuildParams{
		ClientID:     "verifier.example.com",
		ResponseMode: model.ResponseModeDirectPost,
		ResponseURI:  "https://verifier.example.com/cb",
		Nonce:        "n-0s6",
		Definition:   &model.PresentationDefinition{ID: "pd", InputDescriptors: []model.InputDescriptor{{ID: "id1"}}},
	})
	require.NoError(t, err)

	signed, err := reqobj.Sign(req, jwt.SigningMethodHS256, []byte("test-secret"), nil)
	require.NoError(t, err)

	ev, err := EvidenceFromRequestObject(signed)
	require.NoError(t, err)
	assert.Nil(t, ev.X5C)
}

func TestSplitDIDURL(t *testing.T) {
	did, frag, ok := splitDIDURL("did:example:123#key-1")
	require.True(t, ok)
	assert.Equal(t, "did:example:123", did)
	assert.Equal(t, "key-1", frag)

	_, _, ok = splitDIDURL("did:example:123")
	assert.False(t, ok)
}
