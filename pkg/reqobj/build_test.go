package reqobj

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidverify/oid4vp/pkg/model"
	"github.com/eidverify/oid4vp/pkg/signing"
)

func testDefinition() *model.PresentationDefinition {
	return &model.PresentationDefinition{
		ID: "identity_verification",
		InputDescriptors: []model.InputDescriptor{
			{ID: "identity_credential", Constraints: model.Constraints{}},
		},
	}
}

func TestBuild_RejectsConflictingResponseURIs(t *testing.T) {
	_, err := Build(BuildParams{
		ClientID:     "verifier.example.com",
		ResponseMode: model.ResponseModeDirectPost,
		ResponseURI:  "https://verifier.example.com/cb",
		RedirectURI:  "https://verifier.example.com/cb2",
		Nonce:        "n-0s6",
		Definition:   testDefinition(),
	})
	require.Error(t, err)
}

func TestBuild_SameDeviceURL(t *testing.T) {
	req, err := Build(BuildParams{
		ClientID:     "verifier.example.com",
		ResponseMode: model.ResponseModeDirectPost,
		ResponseURI:  "https://verifier.example.com/cb",
		Nonce:        "n-0s6",
		Definition:   testDefinition(),
	})
	require.NoError(t, err)

	u, err := SameDeviceURL(req)
	require.NoError(t, err)
	assert.Contains(t, u, "openid4vp://authorize")
	assert.Contains(t, u, "nonce=n-0s6")
}

func TestSign_RoundTripsUnverified(t *testing.T) {
	req, err := Build(BuildParams{
		ClientID:     "verifier.example.com",
		ResponseMode: model.ResponseModeDirectPost,
		ResponseURI:  "https://verifier.example.com/cb",
		Nonce:        "n-0s6",
		State:        "state-1",
		Definition:   testDefinition(),
	})
	require.NoError(t, err)

	signed, err := Sign(req, jwt.SigningMethodHS256, []byte("test-secret"), nil)
	require.NoError(t, err)

	parsed, err := ParseUnverified(signed)
	require.NoError(t, err)
	assert.Equal(t, req.ClientID, parsed.ClientID)
	assert.Equal(t, req.Nonce, parsed.Nonce)
	assert.Equal(t, req.State, parsed.State)
}

func TestSign_RequiresKeyAndMethod(t *testing.T) {
	req, _ := Build(BuildParams{
		ClientID: "v", ResponseMode: model.ResponseModeDirectPost, ResponseURI: "https://v/cb",
		Nonce: "n", Definition: testDefinition(),
	})

	_, err := Sign(req, nil, []byte("x"), nil)
	assert.Error(t, err)

	_, err = Sign(req, jwt.SigningMethodHS256, nil, nil)
	assert.Error(t, err)
}

func TestSignWithSigner_RoundTripsUnverified(t *testing.T) {
	req, err := Build(BuildParams{
		ClientID:     "verifier.example.com",
		ResponseMode: model.ResponseModeDirectPost,
		ResponseURI:  "https://verifier.example.com/cb",
		Nonce:        "n-0s6",
		State:        "state-1",
		Definition:   testDefinition(),
	})
	require.NoError(t, err)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	signer, err := signing.NewSoftwareSigner(key, "verifier-key-1")
	require.NoError(t, err)

	signed, err := SignWithSigner(context.Background(), req, signer, nil)
	require.NoError(t, err)

	parsed, err := ParseUnverified(signed)
	require.NoError(t, err)
	assert.Equal(t, req.ClientID, parsed.ClientID)
	assert.Equal(t, req.Nonce, parsed.Nonce)
	assert.Equal(t, req.State, parsed.State)
}

func TestSignWithSigner_RequiresSigner(t *testing.T) {
	req, _ := Build(BuildParams{
		ClientID: "v", ResponseMode: model.ResponseModeDirectPost, ResponseURI: "https://v/cb",
		Nonce: "n", Definition: testDefinition(),
	})

	_, err := SignWithSigner(context.Background(), req, nil, nil)
	assert.Error(t, err)
}

func TestSignWithSigner_PKCS11SignerWithoutBuildTagErrors(t *testing.T) {
	// Without the pkcs11 build tag, NewPKCS11Signer always reports
	// ErrPKCS11NotSupported — a HSM-backed signing attempt fails loudly
	// rather than silently falling back to a software key.
	_, err := signing.NewPKCS11Signer(&signing.PKCS11Config{
		ModulePath: "/usr/lib/softhsm/libsofthsm2.so",
		KeyLabel:   "verifier-key",
		KeyID:      "verifier-key-1",
	})
	assert.ErrorIs(t, err, signing.ErrPKCS11NotSupported)
}
