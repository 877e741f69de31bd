package ldp

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContextURL = "https://ldp.test/context"

var testContext = map[string]any{
	"@context": map[string]any{
		"@vocab": "https://ldp.test/vocab#",
		"type":   "@type",
		"id":     "@id",
		"proof":  "https://w3id.org/security#proof",
	},
}

func newTestCanonicalizer() *Canonicalizer {
	loader := NewCachingDocumentLoader(map[string]any{testContextURL: testContext})
	return NewCanonicalizer(loader)
}

func signDataIntegrity(t *testing.T, canon *Canonicalizer, doc map[string]any, priv ed25519.PrivateKey, vm string) map[string]any {
	t.Helper()

	docHash, err := canon.Hash(doc)
	require.NoError(t, err)

	proof := map[string]any{
		"@context":           testContextURL,
		"type":               ProofTypeDataIntegrity,
		"cryptosuite":        CryptosuiteEdDSA2022,
		"verificationMethod": vm,
		"proofPurpose":       ProofPurposeAssertion,
		"created":            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
	proofHash, err := canon.Hash(proof)
	require.NoError(t, err)

	verifyData := append(append([]byte{}, proofHash[:]...), docHash[:]...)
	sig := ed25519.Sign(priv, verifyData)

	proofValue, err := multibase.Encode(multibase.Base58BTC, sig)
	require.NoError(t, err)
	proof["proofValue"] = proofValue

	signed := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		signed[k] = v
	}
	signed["proof"] = proof
	return signed
}

func TestVerifyProof_EdDSARoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	canon := newTestCanonicalizer()

	doc := map[string]any{
		"@context": testContextURL,
		"id":       "urn:uuid:test-credential",
		"type":     []any{"VerifiableCredential"},
		"credentialSubject": map[string]any{
			"name": "Alice",
		},
	}

	vm := "did:key:z6MkExample#z6MkExample"
	signed := signDataIntegrity(t, canon, doc, priv, vm)

	v := NewVerifier(canon)
	result, err := v.VerifyProof(signed, vm, pub)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, vm, result.VerificationMethod)
}

func TestVerifyProof_RejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	canon := newTestCanonicalizer()
	doc := map[string]any{
		"@context":          testContextURL,
		"type":              []any{"VerifiableCredential"},
		"credentialSubject": map[string]any{"name": "Alice"},
	}
	vm := "did:key:z6MkExample#z6MkExample"
	signed := signDataIntegrity(t, canon, doc, priv, vm)

	v := NewVerifier(canon)
	_, err = v.VerifyProof(signed, vm, otherPub)
	assert.Error(t, err)
}

func TestVerifyProof_RejectsTamperedDocument(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	canon := newTestCanonicalizer()
	doc := map[string]any{
		"@context":          testContextURL,
		"type":              []any{"VerifiableCredential"},
		"credentialSubject": map[string]any{"name": "Alice"},
	}
	vm := "did:key:z6MkExample#z6MkExample"
	signed := signDataIntegrity(t, canon, doc, priv, vm)

	signed["credentialSubject"] = map[string]any{"name": "Mallory"}

	v := NewVerifier(canon)
	_, err = v.VerifyProof(signed, vm, pub)
	assert.Error(t, err)
}

func TestExtractCredentials_MixedArray(t *testing.T) {
	vp := map[string]any{
		"@context": testContextURL,
		"type":     []any{"VerifiablePresentation"},
		"verifiableCredential": []any{
			"eyJhbGciOiJFUzI1NiJ9.eyJzdWIiOiJhbGljZSJ9.sig",
			map[string]any{"type": []any{"VerifiableCredential"}, "id": "urn:uuid:embedded"},
		},
	}

	creds, err := ExtractCredentials(vp)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.NotEmpty(t, creds[0].JWT)
	assert.Nil(t, creds[0].Doc)
	assert.Empty(t, creds[1].JWT)
	assert.Equal(t, "urn:uuid:embedded", creds[1].Doc["id"])
}

func TestExtractCredentials_SingleEmbedded(t *testing.T) {
	vp := map[string]any{
		"@context":             testContextURL,
		"type":                 []any{"VerifiablePresentation"},
		"verifiableCredential": map[string]any{"id": "urn:uuid:only"},
	}

	creds, err := ExtractCredentials(vp)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "urn:uuid:only", creds[0].Doc["id"])
}

func TestParsePresentation_RequiresVPType(t *testing.T) {
	_, err := ParsePresentation([]byte(`{"type":"VerifiableCredential"}`))
	assert.Error(t, err)

	doc, err := ParsePresentation([]byte(`{"type":"VerifiablePresentation"}`))
	require.NoError(t, err)
	assert.Equal(t, "VerifiablePresentation", doc["type"])
}

func TestClaimSource_RequiresValidResult(t *testing.T) {
	_, err := ClaimSource([]byte("{}"), map[string]any{}, &Result{Valid: false})
	assert.Error(t, err)

	_, err = ClaimSource([]byte("{}"), map[string]any{}, nil)
	assert.Error(t, err)
}
