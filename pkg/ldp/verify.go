package ldp

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/multiformats/go-multibase"
)

// Verifier checks Data Integrity and JsonWebSignature2020 proofs embedded in
// JSON-LD Verifiable Credentials and Verifiable Presentations.
type Verifier struct {
	canon *Canonicalizer
}

// NewVerifier creates a Verifier over an explicit Canonicalizer, letting
// callers supply a preloaded CachingDocumentLoader (or nil for json-gold's
// default, network-fetching loader via NewCanonicalizer(nil)).
func NewVerifier(canon *Canonicalizer) *Verifier {
	return &Verifier{canon: canon}
}

// Result describes the outcome of verifying one proof on a document.
type Result struct {
	Valid              bool
	VerificationMethod string
	ProofPurpose       string
	Proof              *Proof
}

// VerifyProof verifies doc's embedded proof(s) against publicKey, succeeding
// if at least one proof whose verificationMethod matches expectedVM (when
// non-empty) validates. Mirrors the "resolver returns one or more candidate
// keys, signature verification must succeed against at least one" contract
// credential format adapters share in this module.
func (v *Verifier) VerifyProof(doc map[string]any, expectedVM string, publicKey crypto.PublicKey) (*Result, error) {
	docWithoutProof, proofs, err := splitProof(doc)
	if err != nil {
		return nil, err
	}

	docHash, err := v.canon.Hash(docWithoutProof)
	if err != nil {
		return nil, fmt.Errorf("ldp: canonicalize document: %w", err)
	}

	var lastErr error
	for _, p := range proofs {
		if expectedVM != "" && p.VerificationMethod != expectedVM {
			continue
		}

		cfg := proofConfig(doc["@context"], p)
		proofHash, err := v.canon.Hash(cfg)
		if err != nil {
			lastErr = fmt.Errorf("ldp: canonicalize proof options: %w", err)
			continue
		}

		verifyData := append(append([]byte{}, proofHash[:]...), docHash[:]...)

		if err := verifySignature(p, verifyData, publicKey); err != nil {
			lastErr = err
			continue
		}

		return &Result{
			Valid:              true,
			VerificationMethod: p.VerificationMethod,
			ProofPurpose:       p.ProofPurpose,
			Proof:              p,
		}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("ldp: no proof matched verification method %q", expectedVM)
	}
	return &Result{Valid: false}, lastErr
}

func verifySignature(p *Proof, verifyData []byte, publicKey crypto.PublicKey) error {
	switch {
	case p.Type == ProofTypeDataIntegrity:
		return verifyDataIntegrityProof(p, verifyData, publicKey)
	case p.Type == ProofTypeJWS2020 || p.JWS != "":
		return verifyDetachedJWS(p.JWS, verifyData, publicKey)
	default:
		return fmt.Errorf("ldp: unsupported proof type %q", p.Type)
	}
}

func verifyDataIntegrityProof(p *Proof, verifyData []byte, publicKey crypto.PublicKey) error {
	if p.ProofValue == "" {
		return fmt.Errorf("ldp: proof has no proofValue")
	}
	_, sig, err := multibase.Decode(p.ProofValue)
	if err != nil {
		return fmt.Errorf("ldp: decode proofValue: %w", err)
	}

	switch key := publicKey.(type) {
	case ed25519.PublicKey:
		if p.Cryptosuite != CryptosuiteEdDSA2022 {
			return fmt.Errorf("ldp: cryptosuite %q does not match an Ed25519 key", p.Cryptosuite)
		}
		if !ed25519.Verify(key, verifyData, sig) {
			return fmt.Errorf("ldp: eddsa-rdfc-2022 signature invalid")
		}
		return nil
	case *ecdsa.PublicKey:
		if p.Cryptosuite != CryptosuiteECDSA2019 {
			return fmt.Errorf("ldp: cryptosuite %q does not match an ECDSA key", p.Cryptosuite)
		}
		keyBytes := (key.Curve.Params().BitSize + 7) / 8
		if len(sig) != 2*keyBytes {
			return fmt.Errorf("ldp: invalid signature length: expected %d, got %d", 2*keyBytes, len(sig))
		}
		r := new(big.Int).SetBytes(sig[:keyBytes])
		s := new(big.Int).SetBytes(sig[keyBytes:])
		if !ecdsa.Verify(key, verifyData, r, s) {
			return fmt.Errorf("ldp: ecdsa-rdfc-2019 signature invalid")
		}
		return nil
	default:
		return fmt.Errorf("ldp: unsupported public key type %T for DataIntegrityProof", publicKey)
	}
}

// verifyDetachedJWS verifies a JsonWebSignature2020 proof. The suite signs a
// detached JWS whose payload is never transmitted inline (it's the
// proofHash||docHash bytes this caller already computed); the wire form is
// "<b64header>..<b64signature>" and verification reconstructs the signing
// input by re-inserting the base64url payload.
func verifyDetachedJWS(jws string, verifyData []byte, publicKey crypto.PublicKey) error {
	parts := strings.Split(jws, ".")
	if len(parts) != 3 || parts[1] != "" {
		return fmt.Errorf("ldp: jws must be a detached compact JWS (\"header..signature\")")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("ldp: decode jws header: %w", err)
	}
	var header struct {
		Alg string `json:"alg"`
		B64 *bool  `json:"b64"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return fmt.Errorf("ldp: parse jws header: %w", err)
	}

	payload := base64.RawURLEncoding.EncodeToString(verifyData)
	signingInput := parts[0] + "." + payload

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("ldp: decode jws signature: %w", err)
	}

	switch key := publicKey.(type) {
	case *ecdsa.PublicKey:
		if header.Alg != "ES256" && header.Alg != "ES384" {
			return fmt.Errorf("ldp: jws alg %q does not match an ECDSA key", header.Alg)
		}
		keyBytes := (key.Curve.Params().BitSize + 7) / 8
		if len(sig) != 2*keyBytes {
			return fmt.Errorf("ldp: invalid jws signature length")
		}
		sum := sha256.Sum256([]byte(signingInput))
		r := new(big.Int).SetBytes(sig[:keyBytes])
		s := new(big.Int).SetBytes(sig[keyBytes:])
		if !ecdsa.Verify(key, sum[:], r, s) {
			return fmt.Errorf("ldp: jws signature invalid")
		}
		return nil
	case ed25519.PublicKey:
		if header.Alg != "EdDSA" {
			return fmt.Errorf("ldp: jws alg %q does not match an Ed25519 key", header.Alg)
		}
		if !ed25519.Verify(key, []byte(signingInput), sig) {
			return fmt.Errorf("ldp: jws signature invalid")
		}
		return nil
	default:
		return fmt.Errorf("ldp: unsupported public key type %T for JsonWebSignature2020", publicKey)
	}
}
