package keyresolver

import (
	"crypto"
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// JWKBytesToPublicKey parses a raw JWK (as found base64url-decoded out of
// a did:jwk identifier, or fetched from a JWKS endpoint) into a Go public
// key.
func JWKBytesToPublicKey(raw []byte) (crypto.PublicKey, error) {
	key, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, fmt.Errorf("keyresolver: parse jwk: %w", err)
	}
	return jwkToPublicKey(key)
}

// JWKMapToPublicKey parses a JWK already decoded into a map (as extracted
// from a DID document's publicKeyJwk field) into a Go public key.
func JWKMapToPublicKey(m map[string]any) (crypto.PublicKey, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("keyresolver: marshal jwk map: %w", err)
	}
	return JWKBytesToPublicKey(raw)
}

func jwkToPublicKey(key jwk.Key) (crypto.PublicKey, error) {
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("keyresolver: export jwk: %w", err)
	}
	return raw, nil
}

// PublicKeyToJWK converts a Go public key (ecdsa.PublicKey, ed25519.
// PublicKey, or rsa.PublicKey) into its JWK map representation.
func PublicKeyToJWK(pub crypto.PublicKey) (map[string]any, error) {
	key, err := jwk.Import(pub)
	if err != nil {
		return nil, fmt.Errorf("keyresolver: import public key: %w", err)
	}

	raw, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("keyresolver: marshal jwk: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("keyresolver: unmarshal jwk: %w", err)
	}
	return m, nil
}
